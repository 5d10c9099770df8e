// Package storage keeps an audit trail of accepted orders in Postgres.
// Best effort only: the exchange is authoritative and the simulation
// never reads this back.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type OrderRecord struct {
	Username  string
	Role      string
	Symbol    string
	Side      string
	Price     int64
	Quantity  int64
	Sentiment string
	PlacedAt  time.Time
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgres(url string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info().Msg("Connected to PostgreSQL")

	return &PostgresStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_orders (
			id SERIAL PRIMARY KEY,
			placed_at TIMESTAMPTZ NOT NULL,
			username VARCHAR(50) NOT NULL,
			role VARCHAR(10) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL,
			price BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			sentiment VARCHAR(10) NOT NULL DEFAULT ''
		)
	`)
	return err
}

// LogOrder inserts one accepted order.
func (s *PostgresStorage) LogOrder(ctx context.Context, rec OrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_orders (placed_at, username, role, symbol, side, price, quantity, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.PlacedAt, rec.Username, rec.Role, rec.Symbol, rec.Side, rec.Price, rec.Quantity, rec.Sentiment)
	if err != nil {
		return fmt.Errorf("insert order record: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
