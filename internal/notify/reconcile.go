package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
)

// EventSource is the narrow read interface the reconciler needs over the
// event tables.
type EventSource interface {
	GetAll(ctx context.Context, profile string) ([]*event.Event, error)
}

// Reconciler runs the self-healing passes that keep the notification table
// consistent with the live events: ghost cleanup, validation, dedup, and
// expiry.
type Reconciler struct {
	games  *game.Registry
	events EventSource
	store  Store
	sched  *Scheduler
	clock  clock.Clock
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given stores.
func NewReconciler(games *game.Registry, events EventSource, store Store, sched *Scheduler, clk clock.Clock, logger *slog.Logger) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	return &Reconciler{games: games, events: events, store: store, sched: sched, clock: clk, logger: logger}
}

// Result summarizes one full reconciliation pass.
type Result struct {
	Ghosts     int64
	Fixed      int
	Duplicates int64
	Expired    int64
}

// Run executes every pass in order: ghosts first so validation never
// reschedules a deleted event, dedup and expiry last.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	var res Result
	var err error

	if res.Ghosts, err = r.CleanupGhosts(ctx); err != nil {
		return res, err
	}
	if res.Fixed, err = r.Validate(ctx); err != nil {
		return res, err
	}
	if res.Duplicates, err = r.store.RemoveDuplicates(ctx); err != nil {
		return res, fmt.Errorf("remove duplicates: %w", err)
	}
	if res.Expired, err = r.store.DeleteExpired(ctx, r.clock.Now().Unix()); err != nil {
		return res, fmt.Errorf("delete expired: %w", err)
	}

	r.logger.Info("reconciliation pass complete",
		"ghosts", res.Ghosts, "fixed", res.Fixed,
		"duplicates", res.Duplicates, "expired", res.Expired)
	return res, nil
}

// liveEvents loads every profile's events concurrently.
func (r *Reconciler) liveEvents(ctx context.Context) ([]*event.Event, error) {
	codes := r.games.Codes()
	byProfile := make([][]*event.Event, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			events, err := r.events.GetAll(gctx, code)
			if err != nil {
				return fmt.Errorf("load events for %s: %w", code, err)
			}
			byProfile[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*event.Event
	for _, events := range byProfile {
		all = append(all, events...)
	}
	return all, nil
}

// CleanupGhosts deletes notification rows whose event no longer exists in any
// event table. Returns the number of rows removed.
func (r *Reconciler) CleanupGhosts(ctx context.Context) (int64, error) {
	live, err := r.liveEvents(ctx)
	if err != nil {
		return 0, err
	}
	liveSet := make(map[EventRef]bool, len(live))
	for _, e := range live {
		liveSet[EventRef{Profile: e.Profile, Title: e.Title, Category: e.Category}] = true
	}

	refs, err := r.store.EventRefs(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, ref := range refs {
		if liveSet[ref] {
			continue
		}
		n, err := r.store.DeleteForEvent(ctx, ref)
		if err != nil {
			return removed, err
		}
		if n > 0 {
			r.logger.Info("removed ghost notifications",
				"profile", ref.Profile, "title", ref.Title, "count", n)
		}
		removed += n
	}
	return removed, nil
}

// Validate re-runs the scheduler for every live event missing an entire
// expected timing type. Partial sets within a type are left alone. Returns
// the number of events rescheduled.
func (r *Reconciler) Validate(ctx context.Context) (int, error) {
	live, err := r.liveEvents(ctx)
	if err != nil {
		return 0, err
	}

	now := r.clock.Now().Unix()
	fixed := 0
	for _, e := range live {
		expected := r.expectedTimingTypes(e, now)
		if len(expected) == 0 {
			continue
		}

		present, err := r.store.TimingTypes(ctx,
			EventRef{Profile: e.Profile, Title: e.Title, Category: e.Category})
		if err != nil {
			return fixed, err
		}
		presentSet := make(map[string]bool, len(present))
		for _, t := range present {
			presentSet[t] = true
		}

		missing := false
		for _, t := range expected {
			if !presentSet[t] {
				missing = true
				break
			}
		}
		if !missing {
			continue
		}

		if _, err := r.sched.ScheduleEvent(ctx, e); err != nil {
			r.logger.Error("reschedule during validation failed",
				"profile", e.Profile, "title", e.Title, "error", err)
			continue
		}
		fixed++
	}
	return fixed, nil
}

// expectedTimingTypes computes which timing types the rule table implies for
// an event, counting only types that can still produce a future row; a type
// whose rows were all rightly skipped as past-due is not missing.
func (r *Reconciler) expectedTimingTypes(e *event.Event, now int64) []string {
	mod, ok := r.games.Get(e.Profile)
	if !ok {
		return nil
	}

	if mp, isMP := mod.(game.MultiPhase); isMP {
		if _, special := mp.Kind(e.Title, e.Category); special {
			var expected []string
			if e.StartUnix-reminderLead > now {
				expected = append(expected, TimingReminder)
			}
			if e.EndUnix > now {
				expected = append(expected, TimingEnd)
			}
			return expected
		}
	}

	rule, ok := mod.Timings(e.Category)
	if !ok {
		return nil
	}

	anchors := func(timingType string) []int64 {
		if !mod.Regional() {
			if timingType == TimingStart {
				return []int64{e.StartUnix}
			}
			return []int64{e.EndUnix}
		}
		var out []int64
		for _, region := range mod.Regions() {
			start, end := e.RegionTimes(region)
			if start == 0 {
				start = e.StartUnix
			}
			if end == 0 {
				end = e.EndUnix
			}
			if timingType == TimingStart {
				out = append(out, start)
			} else {
				out = append(out, end)
			}
		}
		return out
	}

	futureRow := func(offsets []int, timingType string) bool {
		for _, anchor := range anchors(timingType) {
			if anchor == 0 {
				continue
			}
			for _, offset := range offsets {
				if anchor-int64(offset)*minuteSeconds > now {
					return true
				}
			}
		}
		return false
	}

	var expected []string
	if futureRow(rule.Start, TimingStart) {
		expected = append(expected, TimingStart)
	}
	if futureRow(rule.End, TimingEnd) {
		expected = append(expected, TimingEnd)
	}
	return expected
}
