package memoryset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// WordItem is one flashcard entry: the prompt text and its reading.
type WordItem struct {
	Text string `json:"text"`
	Kana string `json:"kana"`
}

type MemorySetDTO struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Words             []WordItem `json:"words"`
	MemorizeTime      int        `json:"memorize_time"`
	AnswerTime        int        `json:"answer_time"`
	QuestionsPerRound int        `json:"questions_per_round"`
	WinScore          int        `json:"win_score"`
	ConditionType     string     `json:"condition_type"`
	OrderType         string     `json:"order_type"`
	IsOfficial        bool       `json:"is_official"`
	OwnerID           int        `json:"owner_id,omitempty"`
}

// SetSummary is the id/name pair shown in room-creation pickers.
type SetSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateSetParams struct {
	Title             string
	Words             []WordItem
	MemorizeTime      int
	AnswerTime        int
	QuestionsPerRound int
	WinScore          int
	ConditionType     string
	OrderType         string
}

var (
	ErrSetNotFound = errors.New("memory set not found")
)

type IMemorySetService interface {
	ListAvailable(ctx context.Context, ownerID int) ([]SetSummary, error)
	ListOwned(ctx context.Context, ownerID int) ([]MemorySetDTO, error)
	Create(ctx context.Context, ownerID int, p CreateSetParams) (*MemorySetDTO, error)
	// Get returns a set the caller owns, an official set, or a built-in.
	Get(ctx context.Context, ownerID int, setID string) (*MemorySetDTO, error)
	Delete(ctx context.Context, ownerID int, setID string) error
	// Words resolves the problem pool for any set id, falling back to
	// the built-in default when the id is unknown. Never fails on a bad
	// id so problem generation always has something to serve.
	Words(ctx context.Context, setID string) ([]WordItem, string)
	// Timing returns the per-question timing parameters a room copies
	// from its set at creation. ok is false for unknown ids.
	Timing(ctx context.Context, setID string) (memorizeTime, questionsPerRound int, ok bool)
}

type memorySetService struct {
	db *sql.DB
}

func NewMemorySetService(db *sql.DB) IMemorySetService {
	return &memorySetService{db: db}
}

const setColumns = `id, title, words_json, memorize_time, answer_time,
       questions_per_round, win_score, condition_type, order_type,
       is_official, coalesce(owner_id, 0)`

func (svc *memorySetService) ListAvailable(ctx context.Context, ownerID int) ([]SetSummary, error) {
	out := make([]SetSummary, 0, len(builtinOrder))
	for _, id := range builtinOrder {
		out = append(out, SetSummary{ID: id, Name: builtinTitles[id]})
	}

	rows, err := svc.db.QueryContext(ctx,
		`SELECT id, title FROM memory_sets
		  WHERE is_official OR owner_id = $1
		  ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		out = append(out, SetSummary{ID: fmt.Sprint(id), Name: title})
	}
	return out, rows.Err()
}

func (svc *memorySetService) ListOwned(ctx context.Context, ownerID int) ([]MemorySetDTO, error) {
	rows, err := svc.db.QueryContext(ctx,
		`SELECT `+setColumns+` FROM memory_sets WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []MemorySetDTO{}
	for rows.Next() {
		dto, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *dto)
	}
	return list, rows.Err()
}

func (svc *memorySetService) Create(ctx context.Context, ownerID int, p CreateSetParams) (*MemorySetDTO, error) {
	wordsJSON, err := json.Marshal(p.Words)
	if err != nil {
		return nil, err
	}

	var id int
	err = svc.db.QueryRowContext(ctx,
		`INSERT INTO memory_sets (title, words_json, memorize_time, answer_time,
		         questions_per_round, win_score, condition_type, order_type,
		         is_official, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,FALSE,$9)
		 RETURNING id`,
		p.Title, string(wordsJSON), p.MemorizeTime, p.AnswerTime,
		p.QuestionsPerRound, p.WinScore, p.ConditionType, p.OrderType, ownerID,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &MemorySetDTO{
		ID:                fmt.Sprint(id),
		Title:             p.Title,
		Words:             p.Words,
		MemorizeTime:      p.MemorizeTime,
		AnswerTime:        p.AnswerTime,
		QuestionsPerRound: p.QuestionsPerRound,
		WinScore:          p.WinScore,
		ConditionType:     p.ConditionType,
		OrderType:         p.OrderType,
		OwnerID:           ownerID,
	}, nil
}

func (svc *memorySetService) Get(ctx context.Context, ownerID int, setID string) (*MemorySetDTO, error) {
	if b, ok := builtinSet(setID); ok {
		return b, nil
	}

	row := svc.db.QueryRowContext(ctx,
		`SELECT `+setColumns+` FROM memory_sets
		  WHERE id::text = $1 AND (is_official OR owner_id = $2)`, setID, ownerID)
	dto, err := scanSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *memorySetService) Delete(ctx context.Context, ownerID int, setID string) error {
	res, err := svc.db.ExecContext(ctx,
		`DELETE FROM memory_sets WHERE id::text = $1 AND owner_id = $2`, setID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (svc *memorySetService) Words(ctx context.Context, setID string) ([]WordItem, string) {
	if words, ok := builtinWords[setID]; ok {
		return words, "random"
	}

	var wordsJSON, orderType string
	err := svc.db.QueryRowContext(ctx,
		`SELECT words_json, order_type FROM memory_sets WHERE id::text = $1`, setID).
		Scan(&wordsJSON, &orderType)
	if err != nil {
		return builtinWords[DefaultSetID], "random"
	}

	var words []WordItem
	if json.Unmarshal([]byte(wordsJSON), &words) != nil || len(words) == 0 {
		return builtinWords[DefaultSetID], "random"
	}
	return words, orderType
}

func (svc *memorySetService) Timing(ctx context.Context, setID string) (int, int, bool) {
	if _, ok := builtinWords[setID]; ok {
		return 3, 1, true
	}

	var memorizeTime, questionsPerRound int
	err := svc.db.QueryRowContext(ctx,
		`SELECT memorize_time, questions_per_round FROM memory_sets WHERE id::text = $1`, setID).
		Scan(&memorizeTime, &questionsPerRound)
	if err != nil {
		return 0, 0, false
	}
	return memorizeTime, questionsPerRound, true
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSet(row scanner) (*MemorySetDTO, error) {
	dto := &MemorySetDTO{}
	var id int
	var wordsJSON string
	err := row.Scan(&id, &dto.Title, &wordsJSON, &dto.MemorizeTime, &dto.AnswerTime,
		&dto.QuestionsPerRound, &dto.WinScore, &dto.ConditionType, &dto.OrderType,
		&dto.IsOfficial, &dto.OwnerID)
	if err != nil {
		return nil, err
	}
	dto.ID = fmt.Sprint(id)
	if err := json.Unmarshal([]byte(wordsJSON), &dto.Words); err != nil {
		dto.Words = nil
	}
	return dto, nil
}
