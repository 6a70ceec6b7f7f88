package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/Receptionqueue/backend/pkg/config"
	"github.com/zatekoja/Receptionqueue/backend/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db *sql.DB
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.Do(context.Background(), retry.DefaultConfig(), "PostgreSQL", db.PingContext)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing connection
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

const displayScreensSchema = `
CREATE TABLE IF NOT EXISTS display_screens (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	variant    TEXT NOT NULL DEFAULT 'standard',
	doctor_id  TEXT,
	location   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureSchema creates the tables owned by this service
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, displayScreensSchema); err != nil {
		return fmt.Errorf("failed to create display_screens table: %w", err)
	}
	return nil
}
