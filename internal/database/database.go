// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-fest/registration/internal/config"
)

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			}
			pool.Close()
		}
		log.Printf("db connect attempt %d/5 failed: %v - retrying in 2s", attempt, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return pool, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		day           TEXT NOT NULL DEFAULT '',
		entry_fee     NUMERIC NOT NULL DEFAULT 0,
		max_seats     INT NOT NULL CHECK (max_seats >= 1),
		mode          TEXT NOT NULL,
		max_team_size INT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL
	);

	-- No foreign key on event_id: deleting an event is allowed to orphan
	-- its transactions, and the allocator reports those as event-not-found.
	CREATE TABLE IF NOT EXISTS transactions (
		id           TEXT PRIMARY KEY,
		event_id     TEXT NOT NULL,
		enrolled_id  TEXT NOT NULL,
		team_members TEXT[] NOT NULL DEFAULT '{}',
		amount       NUMERIC NOT NULL DEFAULT 0,
		payment      INT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_event
		ON transactions (event_id, payment);`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
