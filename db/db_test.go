package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarto/internal/quarto/models"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "quarto")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "quarto")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t,
		"host=db.internal port=5432 user=quarto password=secret dbname=quarto sslmode=disable",
		GetDBConnectionString(cfg))
}

func TestLoadConfigDisabledWithoutName(t *testing.T) {
	t.Setenv("DB_NAME", "")
	assert.False(t, LoadConfig().Enabled())
}

func newMockStore(t *testing.T) (*ResultStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS game_results").
		WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewResultStore(context.Background(), conn)
	require.NoError(t, err)
	return store, mock
}

func TestResultStoreRecord(t *testing.T) {
	store, mock := newMockStore(t)

	started := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	won := models.GameResult{
		GameID:    "5f0c6a4e-8d1b-4a57-9d0e-2f4b7c1e3a90",
		Player1:   "127.0.0.1:40000",
		Player2:   "127.0.0.1:40001",
		Winner:    models.Player2,
		Outcome:   models.OutcomeWin,
		Rounds:    6,
		StartedAt: started,
		EndedAt:   started.Add(time.Minute),
	}
	mock.ExpectExec("INSERT INTO game_results").
		WithArgs(won.GameID, won.Player1, won.Player2, int64(2), "win", 6, won.StartedAt, won.EndedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	aborted := won
	aborted.Winner = models.NoSlot
	aborted.Outcome = models.OutcomeAborted
	mock.ExpectExec("INSERT INTO game_results").
		WithArgs(aborted.GameID, aborted.Player1, aborted.Player2, nil, "aborted", 6, aborted.StartedAt, aborted.EndedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	require.NoError(t, store.Record(context.Background(), won))
	require.NoError(t, store.Record(context.Background(), aborted))
	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultStoreRecordError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO game_results").WillReturnError(errors.New("connection reset"))

	err := store.Record(context.Background(), models.GameResult{GameID: "g1", Outcome: models.OutcomeDraw})
	assert.ErrorContains(t, err, "error recording game g1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewResultStoreCreateFails(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS game_results").WillReturnError(errors.New("permission denied"))
	_, err = NewResultStore(context.Background(), conn)
	assert.ErrorContains(t, err, "game_results")
}
