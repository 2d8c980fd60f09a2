package db

import (
	"context"
	"fmt"
)

// bootstrapStatements creates the tables and indexes the bot needs. Every
// statement is idempotent so Bootstrap can run on every startup.
var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id            BIGSERIAL PRIMARY KEY,
		key           UUID NOT NULL UNIQUE,
		profile       TEXT NOT NULL,
		category      TEXT NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		image         TEXT NOT NULL DEFAULT '',
		start_unix    BIGINT NOT NULL DEFAULT 0,
		end_unix      BIGINT NOT NULL DEFAULT 0,
		asia_start    BIGINT NOT NULL DEFAULT 0,
		asia_end      BIGINT NOT NULL DEFAULT 0,
		america_start BIGINT NOT NULL DEFAULT 0,
		america_end   BIGINT NOT NULL DEFAULT 0,
		europe_start  BIGINT NOT NULL DEFAULT 0,
		europe_end    BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (profile, title)
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id              BIGSERIAL PRIMARY KEY,
		event_key       UUID NOT NULL,
		category        TEXT NOT NULL,
		profile         TEXT NOT NULL,
		title           TEXT NOT NULL,
		timing_type     TEXT NOT NULL,
		notify_unix     BIGINT NOT NULL,
		event_time_unix BIGINT NOT NULL DEFAULT 0,
		region          TEXT NOT NULL DEFAULT '',
		message_template TEXT NOT NULL DEFAULT '',
		custom_message  TEXT NOT NULL DEFAULT '',
		phase           TEXT NOT NULL DEFAULT '',
		character_name  TEXT NOT NULL DEFAULT '',
		sent            SMALLINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (category, profile, title, timing_type, notify_unix, region)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_due
		ON notifications (notify_unix) WHERE sent = 0`,

	`CREATE INDEX IF NOT EXISTS idx_notifications_event
		ON notifications (profile, title, category)`,

	`CREATE TABLE IF NOT EXISTS scheduled_update_tasks (
		id          BIGSERIAL PRIMARY KEY,
		profile     TEXT NOT NULL,
		region      TEXT NOT NULL DEFAULT '',
		update_unix BIGINT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_update_tasks_pending
		ON scheduled_update_tasks (update_unix) WHERE status = 'pending'`,
}

// Bootstrap creates the schema if it does not exist. Uses Exec on the pool
// rather than prepared statements because DDL runs once.
func (p *Pool) Bootstrap(ctx context.Context) error {
	for _, stmt := range bootstrapStatements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
