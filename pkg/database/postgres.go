package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPostgresPool creates a connection pool from a connection string. The
// bot only writes an alert audit trail, so the pool stays small.
func NewPostgresPool(ctx context.Context, connString string, maxConns int32, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 4
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to PostgreSQL")

	return pool, nil
}

// AlertHistoryDDL creates the audit table written by alerts.Persister.
const AlertHistoryDDL = `
CREATE TABLE IF NOT EXISTS alert_history (
	id          UUID PRIMARY KEY,
	time        TIMESTAMPTZ NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	strong      BOOLEAN NOT NULL DEFAULT FALSE,
	entry       DOUBLE PRECISION NOT NULL,
	take_profit DOUBLE PRECISION NOT NULL,
	stop_loss   DOUBLE PRECISION NOT NULL,
	strength    INTEGER NOT NULL,
	metadata    JSONB
)`

// AlertHistoryIndex speeds up per-symbol history lookups.
const AlertHistoryIndex = `CREATE INDEX IF NOT EXISTS alert_history_symbol_time_idx ON alert_history (symbol, time DESC)`

// Close gracefully closes the connection pool
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
