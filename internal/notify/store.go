package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kanamidev/gachatimer/internal/db"
)

// Store is the persistence boundary for notification rows. The pgx-backed
// implementation is PgStore; tests substitute an in-memory one.
type Store interface {
	// Insert writes a row, silently ignoring duplicates of the uniqueness
	// tuple. Returns true when a row was actually written.
	Insert(ctx context.Context, p *Pending) (bool, error)
	// Exists reports whether a row with the same uniqueness tuple is present.
	Exists(ctx context.Context, p *Pending) (bool, error)
	// ClaimDue atomically marks unsent rows due by the deadline as sent and
	// returns them.
	ClaimDue(ctx context.Context, deadline int64, limit int) ([]*Pending, error)
	// ListForEvent returns every row for one event, sent or not.
	ListForEvent(ctx context.Context, ref EventRef) ([]*Pending, error)
	// ListPending returns unsent rows ordered by fire time.
	ListPending(ctx context.Context, limit int) ([]*Pending, error)
	// Count returns the number of unsent rows.
	Count(ctx context.Context) (int64, error)
	// DeleteForEvent removes every row for one event, returning the count.
	DeleteForEvent(ctx context.Context, ref EventRef) (int64, error)
	// Delete removes a single row by id.
	Delete(ctx context.Context, id int64) error
	// DeleteAll clears the table, returning the count.
	DeleteAll(ctx context.Context) (int64, error)
	// SetCustomMessage overrides the rendered message for one row.
	SetCustomMessage(ctx context.Context, id int64, message string) error
	// EventRefs returns the distinct (profile, title, category) triples
	// present in the table.
	EventRefs(ctx context.Context) ([]EventRef, error)
	// TimingTypes returns the distinct timing types present for one event.
	TimingTypes(ctx context.Context, ref EventRef) ([]string, error)
	// RemoveDuplicates collapses rows sharing the uniqueness tuple down to
	// the lowest id, returning the number removed.
	RemoveDuplicates(ctx context.Context) (int64, error)
	// DeleteExpired removes rows whose anchor timestamp passed more than the
	// retention window ago, returning the count.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// PgStore persists notification rows in Postgres.
type PgStore struct {
	pool *db.Pool
}

// NewStore creates a notification store backed by the given pool.
func NewStore(pool *db.Pool) *PgStore {
	return &PgStore{pool: pool}
}

var _ Store = (*PgStore)(nil)

const pendingColumns = `id, event_key, category, profile, title, timing_type,
	notify_unix, event_time_unix, region, message_template, custom_message,
	phase, character_name, sent`

func scanPending(row pgx.Row) (*Pending, error) {
	var p Pending
	var sent int16
	err := row.Scan(
		&p.ID, &p.EventKey, &p.Category, &p.Profile, &p.Title, &p.TimingType,
		&p.NotifyUnix, &p.EventTimeUnix, &p.Region, &p.MessageTemplate,
		&p.CustomMessage, &p.Phase, &p.CharacterName, &sent,
	)
	if err != nil {
		return nil, err
	}
	p.Sent = sent != 0
	return &p, nil
}

func (s *PgStore) collect(rows pgx.Rows, err error) ([]*Pending, error) {
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*Pending
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Insert writes a row. ON CONFLICT DO NOTHING enforces the uniqueness tuple
// at the store level on top of the scheduler's own pre-check.
func (s *PgStore) Insert(ctx context.Context, p *Pending) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (event_key, category, profile, title,
			timing_type, notify_unix, event_time_unix, region,
			message_template, custom_message, phase, character_name, sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)
		ON CONFLICT (category, profile, title, timing_type, notify_unix, region)
		DO NOTHING`,
		p.EventKey, p.Category, p.Profile, p.Title, p.TimingType,
		p.NotifyUnix, p.EventTimeUnix, p.Region, p.MessageTemplate,
		p.CustomMessage, p.Phase, p.CharacterName)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) Exists(ctx context.Context, p *Pending) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM notifications
		WHERE category = $1 AND profile = $2 AND title = $3
		AND timing_type = $4 AND notify_unix = $5 AND region = $6`,
		p.Category, p.Profile, p.Title, p.TimingType, p.NotifyUnix, p.Region,
	).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return true, nil
}

// ClaimDue marks rows sent in the same statement that selects them, so a
// crash after the claim drops the notification instead of duplicating it.
func (s *PgStore) ClaimDue(ctx context.Context, deadline int64, limit int) ([]*Pending, error) {
	rows, err := s.pool.Query(ctx, "claim_due_notifications", deadline, limit)
	return s.collectClaimed(rows, err)
}

func (s *PgStore) collectClaimed(rows pgx.Rows, err error) ([]*Pending, error) {
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()

	var out []*Pending
	for rows.Next() {
		var p Pending
		err := rows.Scan(
			&p.ID, &p.EventKey, &p.Category, &p.Profile, &p.Title,
			&p.TimingType, &p.NotifyUnix, &p.EventTimeUnix, &p.Region,
			&p.MessageTemplate, &p.CustomMessage, &p.Phase, &p.CharacterName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan claimed notification: %w", err)
		}
		p.Sent = true
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PgStore) ListForEvent(ctx context.Context, ref EventRef) ([]*Pending, error) {
	return s.collect(s.pool.Query(ctx, `
		SELECT `+pendingColumns+` FROM notifications
		WHERE profile = $1 AND title = $2 AND category = $3
		ORDER BY notify_unix, id`,
		ref.Profile, ref.Title, ref.Category))
}

func (s *PgStore) ListPending(ctx context.Context, limit int) ([]*Pending, error) {
	return s.collect(s.pool.Query(ctx, `
		SELECT `+pendingColumns+` FROM notifications
		WHERE sent = 0 ORDER BY notify_unix, id LIMIT $1`, limit))
}

func (s *PgStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE sent = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *PgStore) DeleteForEvent(ctx context.Context, ref EventRef) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE profile = $1 AND title = $2 AND category = $3`,
		ref.Profile, ref.Title, ref.Category)
	if err != nil {
		return 0, fmt.Errorf("delete notifications for event: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *PgStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications`)
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) SetCustomMessage(ctx context.Context, id int64, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET custom_message = $2 WHERE id = $1`,
		id, message)
	if err != nil {
		return fmt.Errorf("set custom message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set custom message: no row %d", id)
	}
	return nil
}

func (s *PgStore) EventRefs(ctx context.Context) ([]EventRef, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT profile, title, category FROM notifications`)
	if err != nil {
		return nil, fmt.Errorf("query notification refs: %w", err)
	}
	defer rows.Close()

	var refs []EventRef
	for rows.Next() {
		var r EventRef
		if err := rows.Scan(&r.Profile, &r.Title, &r.Category); err != nil {
			return nil, fmt.Errorf("scan notification ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *PgStore) TimingTypes(ctx context.Context, ref EventRef) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT timing_type FROM notifications
		WHERE profile = $1 AND title = $2 AND category = $3`,
		ref.Profile, ref.Title, ref.Category)
	if err != nil {
		return nil, fmt.Errorf("query timing types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan timing type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// RemoveDuplicates keeps the lowest-id row of each uniqueness tuple. The
// unique index makes this a no-op normally; manual insert paths can bypass it
// when region semantics drift.
func (s *PgStore) RemoveDuplicates(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications n USING notifications keep
		WHERE n.category = keep.category AND n.profile = keep.profile
		AND n.title = keep.title AND n.timing_type = keep.timing_type
		AND n.notify_unix = keep.notify_unix AND n.region = keep.region
		AND n.id > keep.id`)
	if err != nil {
		return 0, fmt.Errorf("remove duplicate notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE event_time_unix > 0 AND event_time_unix < $1`,
		now-expiredRetention)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
