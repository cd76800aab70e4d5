package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"quarto/internal/quarto/models"

	_ "github.com/lib/pq"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

// LoadConfig reads the database settings from the environment. Results are
// only stored when DB_NAME is set.
func LoadConfig() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", ""),
	}
}

func (c *Config) Enabled() bool {
	return c.DBName != ""
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func GetDBConnectionString(c *Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func InitDB(ctx context.Context, cfg *Config) (*sql.DB, error) {
	connStr := GetDBConnectionString(cfg)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const createResultsTable = `CREATE TABLE IF NOT EXISTS game_results (
	game_id    UUID PRIMARY KEY,
	player1    TEXT NOT NULL,
	player2    TEXT NOT NULL,
	winner     SMALLINT,
	outcome    TEXT NOT NULL,
	rounds     INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at   TIMESTAMPTZ NOT NULL
)`

// ResultStore records finished games in Postgres.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(ctx context.Context, db *sql.DB) (*ResultStore, error) {
	if _, err := db.ExecContext(ctx, createResultsTable); err != nil {
		return nil, fmt.Errorf("error creating game_results table: %w", err)
	}
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Record(ctx context.Context, r models.GameResult) error {
	var winner sql.NullInt16
	if r.Winner.Valid() {
		winner = sql.NullInt16{Int16: int16(r.Winner), Valid: true}
	}

	query := `INSERT INTO game_results (game_id, player1, player2, winner, outcome, rounds, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		r.GameID, r.Player1, r.Player2, winner, string(r.Outcome), r.Rounds, r.StartedAt, r.EndedAt)
	if err != nil {
		return fmt.Errorf("error recording game %s: %w", r.GameID, err)
	}
	return nil
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}
