// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap, and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kanamidev/gachatimer/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements the hot paths use.
// Prepared statements eliminate parse overhead on the dispatch tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Delivery
		"claim_due_notifications": `
			UPDATE notifications SET sent = 1
			WHERE id IN (
				SELECT id FROM notifications
				WHERE sent = 0 AND notify_unix <= $1
				ORDER BY notify_unix
				LIMIT $2
			)
			RETURNING id, event_key, category, profile, title, timing_type,
				notify_unix, event_time_unix, region, message_template,
				custom_message, phase, character_name`,

		// Event lookups
		"event_by_title":   "SELECT id, key, profile, category, title, description, image, start_unix, end_unix, asia_start, asia_end, america_start, america_end, europe_start, europe_end FROM events WHERE profile = $1 AND title = $2",
		"event_titles_set": "SELECT profile, title, category FROM events",

		// Timer registry
		"due_timer_tasks": "SELECT id, profile, region, update_unix, status FROM scheduled_update_tasks WHERE status = 'pending' ORDER BY update_unix",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
