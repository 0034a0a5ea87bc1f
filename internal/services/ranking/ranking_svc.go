package ranking

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RankEntry is one solo-mode clear time on a board. Boards are keyed by
// (set, win score, condition type) so only comparable runs compete.
type RankEntry struct {
	Name          string  `json:"name"`
	Time          float64 `json:"time"`
	SetID         string  `json:"set_id"`
	WinScore      int     `json:"win_score"`
	ConditionType string  `json:"condition_type"`
}

const (
	boardKeyPrefix = "rank:"
	// Stream is tailed by syncrank into Postgres.
	Stream = "rank_stream"

	boardSize = 10
)

type IRankingService interface {
	// Submit records a run: ZADD onto the live board plus an XADD for
	// durable persistence.
	Submit(ctx context.Context, e RankEntry) error
	// Top returns the board's fastest runs, ascending. Served from the
	// Redis board; falls back to Postgres (repopulating the board) when
	// the board is cold.
	Top(ctx context.Context, setID string, winScore int, conditionType string) ([]RankEntry, error)
}

type rankingService struct {
	rdc *redis.Client
	db  *sql.DB
}

func NewRankingService(rdc *redis.Client, db *sql.DB) IRankingService {
	return &rankingService{rdc: rdc, db: db}
}

func boardKey(setID string, winScore int, conditionType string) string {
	return fmt.Sprintf("%s%s:%d:%s", boardKeyPrefix, setID, winScore, conditionType)
}

func (svc *rankingService) Submit(ctx context.Context, e RankEntry) error {
	key := boardKey(e.SetID, e.WinScore, e.ConditionType)

	// One board entry per name, best time wins: LT only lowers an
	// existing member's score. Postgres keeps every run; reads there
	// aggregate to the same per-name minimum.
	pipe := svc.rdc.Pipeline()
	pipe.ZAddLT(ctx, key, redis.Z{
		Score:  e.Time,
		Member: e.Name,
	})
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]any{
			"name": e.Name,
			"time": strconv.FormatFloat(e.Time, 'f', -1, 64),
			"set":  e.SetID,
			"win":  strconv.Itoa(e.WinScore),
			"cond": e.ConditionType,
		},
	})
	_, err := pipe.Exec(ctx)
	return err
}

func (svc *rankingService) Top(ctx context.Context, setID string, winScore int, conditionType string) ([]RankEntry, error) {
	key := boardKey(setID, winScore, conditionType)

	zs, err := svc.rdc.ZRangeWithScores(ctx, key, 0, boardSize-1).Result()
	if err == nil && len(zs) > 0 {
		out := make([]RankEntry, 0, len(zs))
		for _, z := range zs {
			name, _ := z.Member.(string)
			out = append(out, RankEntry{
				Name:          name,
				Time:          z.Score,
				SetID:         setID,
				WinScore:      winScore,
				ConditionType: conditionType,
			})
		}
		return out, nil
	}
	if err != nil {
		zap.L().Warn("ranking.board_read", zap.String("key", key), zap.Error(err))
	}

	return svc.topFromDb(ctx, key, setID, winScore, conditionType)
}

// topFromDb serves a cold board from Postgres and warms the Redis board
// back up on the way out.
func (svc *rankingService) topFromDb(ctx context.Context, key, setID string, winScore int, conditionType string) ([]RankEntry, error) {
	rows, err := svc.db.QueryContext(ctx,
		`SELECT name, MIN(time) AS time FROM rankings
		  WHERE set_id = $1 AND win_score = $2 AND condition_type = $3
		  GROUP BY name
		  ORDER BY MIN(time) ASC LIMIT $4`,
		setID, winScore, conditionType, boardSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RankEntry{}
	var warm []redis.Z
	for rows.Next() {
		e := RankEntry{SetID: setID, WinScore: winScore, ConditionType: conditionType}
		if err := rows.Scan(&e.Name, &e.Time); err != nil {
			return nil, err
		}
		out = append(out, e)
		warm = append(warm, redis.Z{Score: e.Time, Member: e.Name})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(warm) > 0 {
		warmCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := svc.rdc.ZAddLT(warmCtx, key, warm...).Err(); err != nil {
			zap.L().Debug("ranking.board_warm", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
