package syncrank

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"braingarden/internal/services/ranking"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run tails the ranking stream and persists every submitted run.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{ranking.Stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Warn("syncrank.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Error("syncrank.persist", zap.Error(err))
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// The stream entry id makes replays idempotent: every restart reads
	// the stream from the beginning, so re-persisting must be a no-op.
	const ins = `INSERT INTO rankings (stream_id, name, time, set_id, win_score, condition_type)
	             VALUES ($1, $2, $3, $4, $5, $6)
	             ON CONFLICT (stream_id) DO NOTHING`
	for _, m := range msgs {
		name, _ := m.Values["name"].(string)
		rawTime, _ := m.Values["time"].(string)
		setID, _ := m.Values["set"].(string)
		rawWin, _ := m.Values["win"].(string)
		cond, _ := m.Values["cond"].(string)

		clearTime, _ := strconv.ParseFloat(rawTime, 64)
		winScore, _ := strconv.Atoi(rawWin)
		if _, err := tx.ExecContext(ctx, ins, m.ID, name, clearTime, setID, winScore, cond); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
