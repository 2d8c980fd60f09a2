package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/kanamidev/gachatimer/internal/game"
)

// Scheduler derives notification rows for an event. Satisfied by the notify
// package's scheduler.
type Scheduler interface {
	ScheduleEvent(ctx context.Context, e *Event) (int, error)
}

// NotificationCascade is the slice of the notification store the lifecycle
// service needs: cascading deletes and a row-existence check.
type NotificationCascade interface {
	DeleteForEvent(ctx context.Context, profile, title, category string) (int64, error)
	HasRows(ctx context.Context, profile, title, category string) (bool, error)
}

// Storage is the persistence surface the lifecycle service drives. The pgx
// Store satisfies it.
type Storage interface {
	GetAll(ctx context.Context, profile string) ([]*Event, error)
	GetByTitle(ctx context.Context, profile, title string) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	Insert(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id int64) error
}

// Service owns the event lifecycle: upserts with change detection, edits and
// removals with notification cascade, and purging of fully-elapsed events.
type Service struct {
	store  Storage
	games  *game.Registry
	sched  Scheduler
	notifs NotificationCascade
	clock  clock.Clock
	logger *slog.Logger
}

// NewService creates the lifecycle service.
func NewService(store Storage, games *game.Registry, sched Scheduler, notifs NotificationCascade, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{store: store, games: games, sched: sched, notifs: notifs, clock: clk, logger: logger}
}

// AddOrUpdate upserts an event by (profile, title). New events are inserted
// and scheduled. Existing events are rescheduled only when something the
// schedule depends on changed; an unchanged event with no notification rows
// still gets a scheduling pass as self-healing.
func (s *Service) AddOrUpdate(ctx context.Context, e *Event) error {
	e.Normalize()

	existing, err := s.store.GetByTitle(ctx, e.Profile, e.Title)
	if errors.Is(err, ErrNotFound) {
		if err := s.store.Insert(ctx, e); err != nil {
			return err
		}
		if _, err := s.sched.ScheduleEvent(ctx, e); err != nil {
			return fmt.Errorf("schedule new event: %w", err)
		}
		s.logger.Info("event added", "profile", e.Profile, "title", e.Title, "category", e.Category)
		return nil
	}
	if err != nil {
		return err
	}

	e.ID, e.Key = existing.ID, existing.Key
	if !s.changed(existing, e) {
		// Self-heal events that somehow lost all their rows.
		has, err := s.notifs.HasRows(ctx, e.Profile, e.Title, e.Category)
		if err != nil {
			return err
		}
		if !has {
			if _, err := s.sched.ScheduleEvent(ctx, existing); err != nil {
				return fmt.Errorf("schedule unchanged event: %w", err)
			}
		}
		return nil
	}

	return s.reschedule(ctx, existing, e)
}

// changed reports whether an incoming event differs from the stored one in a
// way that affects scheduling. Tournament events tolerate description-only
// changes because their phases derive from the timestamps.
func (s *Service) changed(old, incoming *Event) bool {
	if old.Category != incoming.Category ||
		old.StartUnix != incoming.StartUnix || old.EndUnix != incoming.EndUnix ||
		old.AsiaStart != incoming.AsiaStart || old.AsiaEnd != incoming.AsiaEnd ||
		old.AmericaStart != incoming.AmericaStart || old.AmericaEnd != incoming.AmericaEnd ||
		old.EuropeStart != incoming.EuropeStart || old.EuropeEnd != incoming.EuropeEnd {
		return true
	}
	if old.Description != incoming.Description {
		return incoming.Category != "Champions Meeting"
	}
	return false
}

// reschedule applies an update and rebuilds the event's notification rows.
// The old rows are deleted under the old category in case the edit moved the
// event between categories.
func (s *Service) reschedule(ctx context.Context, old, updated *Event) error {
	if err := s.store.Update(ctx, updated); err != nil {
		return err
	}
	if _, err := s.notifs.DeleteForEvent(ctx, old.Profile, old.Title, old.Category); err != nil {
		return fmt.Errorf("cascade delete notifications: %w", err)
	}
	if _, err := s.sched.ScheduleEvent(ctx, updated); err != nil {
		return fmt.Errorf("reschedule event: %w", err)
	}
	s.logger.Info("event updated", "profile", updated.Profile, "title", updated.Title)
	return nil
}

// Edit updates an event by id and rebuilds its notifications.
func (s *Service) Edit(ctx context.Context, e *Event) error {
	old, err := s.store.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	e.Key, e.Profile = old.Key, old.Profile
	e.Normalize()
	return s.reschedule(ctx, old, e)
}

// Remove deletes an event and cascades to its notification rows.
func (s *Service) Remove(ctx context.Context, id int64) error {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	n, err := s.notifs.DeleteForEvent(ctx, e.Profile, e.Title, e.Category)
	if err != nil {
		return fmt.Errorf("cascade delete notifications: %w", err)
	}
	s.logger.Info("event removed", "profile", e.Profile, "title", e.Title, "notifications", n)
	return nil
}

// PurgeEnded deletes every event whose end has fully elapsed in all relevant
// regions, cascading to notification rows. Returns the number of events
// removed.
func (s *Service) PurgeEnded(ctx context.Context) (int, error) {
	now := s.clock.Now().Unix()
	purged := 0

	for _, mod := range s.games.All() {
		events, err := s.store.GetAll(ctx, mod.Code())
		if err != nil {
			return purged, err
		}
		for _, e := range events {
			if !e.Ended(now, mod.Regional()) {
				continue
			}
			if err := s.Remove(ctx, e.ID); err != nil {
				return purged, err
			}
			purged++
		}
	}
	return purged, nil
}
