package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)
	return db, db.Ping()
}

// EnsureSchema creates the tables on first boot. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
		    id              SERIAL PRIMARY KEY,
		    username        TEXT NOT NULL UNIQUE,
		    hashed_password TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS memory_sets (
		    id                  SERIAL PRIMARY KEY,
		    title               TEXT NOT NULL,
		    words_json          TEXT NOT NULL,
		    memorize_time       INT  NOT NULL DEFAULT 3,
		    answer_time         INT  NOT NULL DEFAULT 10,
		    questions_per_round INT  NOT NULL DEFAULT 1,
		    win_score           INT  NOT NULL DEFAULT 10,
		    condition_type      TEXT NOT NULL DEFAULT 'score',
		    order_type          TEXT NOT NULL DEFAULT 'random',
		    is_official         BOOLEAN NOT NULL DEFAULT FALSE,
		    owner_id            INT REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS rankings (
		    id             SERIAL PRIMARY KEY,
		    stream_id      TEXT NOT NULL UNIQUE,
		    name           TEXT NOT NULL,
		    time           DOUBLE PRECISION NOT NULL,
		    set_id         TEXT NOT NULL,
		    win_score      INT  NOT NULL,
		    condition_type TEXT NOT NULL,
		    recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS rankings_board_idx
		    ON rankings (set_id, win_score, condition_type, time)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
