package syncrank

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersist(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rankings").
		WithArgs("1-0", "alice", 42.5, "default", 10, "score").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO rankings").
		WithArgs("2-0", "bob", 50.0, "animals", 5, "total").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{
			"name": "alice", "time": "42.5", "set": "default", "win": "10", "cond": "score",
		}},
		{ID: "2-0", Values: map[string]any{
			"name": "bob", "time": "50", "set": "animals", "win": "5", "cond": "total",
		}},
	}
	require.NoError(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A restart replays the stream from the beginning; the conflict clause on
// the stream id must turn the second pass into no-ops.
func TestPersistSameBatchTwiceKeepsOneRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(stream_id\) DO NOTHING`).
		WithArgs("1-0", "alice", 42.5, "default", 10, "score").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(stream_id\) DO NOTHING`).
		WithArgs("1-0", "alice", 42.5, "default", 10, "score").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{
			"name": "alice", "time": "42.5", "set": "default", "win": "10", "cond": "score",
		}},
	}
	require.NoError(t, persist(context.Background(), db, msgs))
	require.NoError(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rankings").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{
			"name": "alice", "time": "42.5", "set": "default", "win": "10", "cond": "score",
		}},
	}
	assert.Error(t, persist(context.Background(), db, msgs))
	assert.NoError(t, mock.ExpectationsWereMet())
}
