package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kanamidev/gachatimer/internal/db"
)

// ErrNotFound is returned when an event lookup matches no row.
var ErrNotFound = errors.New("event not found")

// Store persists events in Postgres.
type Store struct {
	pool *db.Pool
}

// NewStore creates an event store backed by the given pool.
func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

const eventColumns = `id, key, profile, category, title, description, image,
	start_unix, end_unix, asia_start, asia_end, america_start, america_end,
	europe_start, europe_end`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Key, &e.Profile, &e.Category, &e.Title, &e.Description,
		&e.Image, &e.StartUnix, &e.EndUnix, &e.AsiaStart, &e.AsiaEnd,
		&e.AmericaStart, &e.AmericaEnd, &e.EuropeStart, &e.EuropeEnd,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetAll returns all events for a profile, ordered by start time.
func (s *Store) GetAll(ctx context.Context, profile string) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE profile = $1 ORDER BY start_unix, id`,
		profile)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Everything returns all events across profiles.
func (s *Store) Everything(ctx context.Context) ([]*Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY profile, start_unix, id`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByTitle returns the event matching (profile, title), or ErrNotFound.
func (s *Store) GetByTitle(ctx context.Context, profile, title string) (*Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx, "event_by_title", profile, title))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by title: %w", err)
	}
	return e, nil
}

// GetByID returns the event with the given row id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	return e, nil
}

// GetByKey returns the event with the given durable key, or ErrNotFound.
func (s *Store) GetByKey(ctx context.Context, key uuid.UUID) (*Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE key = $1`, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event by key: %w", err)
	}
	return e, nil
}

// Insert writes a new event, assigning a key when the caller left it zero.
func (s *Store) Insert(ctx context.Context, e *Event) error {
	if e.Key == uuid.Nil {
		e.Key = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO events (key, profile, category, title, description, image,
			start_unix, end_unix, asia_start, asia_end, america_start,
			america_end, europe_start, europe_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		e.Key, e.Profile, e.Category, e.Title, e.Description, e.Image,
		e.StartUnix, e.EndUnix, e.AsiaStart, e.AsiaEnd, e.AmericaStart,
		e.AmericaEnd, e.EuropeStart, e.EuropeEnd,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update rewrites every mutable column of an existing event.
func (s *Store) Update(ctx context.Context, e *Event) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE events SET category = $2, title = $3, description = $4,
			image = $5, start_unix = $6, end_unix = $7, asia_start = $8,
			asia_end = $9, america_start = $10, america_end = $11,
			europe_start = $12, europe_end = $13, updated_at = now()
		WHERE id = $1`,
		e.ID, e.Category, e.Title, e.Description, e.Image, e.StartUnix,
		e.EndUnix, e.AsiaStart, e.AsiaEnd, e.AmericaStart, e.AmericaEnd,
		e.EuropeStart, e.EuropeEnd)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event row.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
