package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
)

// RefreshFunc is the fire-and-forget dashboard refresh hook invoked after
// scheduling changes. Implementations must be safe to call concurrently.
type RefreshFunc func(ctx context.Context, profile string) error

// Scheduler derives notification rows from events and the per-game timing
// tables. Safe to invoke repeatedly for the same event; idempotency comes
// from the store's uniqueness tuple.
type Scheduler struct {
	games   *game.Registry
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	refresh RefreshFunc
}

// NewScheduler creates a scheduler. refresh may be nil.
func NewScheduler(games *game.Registry, store Store, clk clock.Clock, logger *slog.Logger, refresh RefreshFunc) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{games: games, store: store, clock: clk, logger: logger, refresh: refresh}
}

// ScheduleEvent computes and persists all notification rows for one event.
// Missing rules, past-due rows, and duplicates are policy branches, not
// errors; only store I/O failures surface. Returns the number of rows
// actually inserted.
func (s *Scheduler) ScheduleEvent(ctx context.Context, e *event.Event) (int, error) {
	mod, ok := s.games.Get(e.Profile)
	if !ok {
		s.logger.Debug("no game module for profile", "profile", e.Profile)
		return 0, nil
	}

	inserted, handled, err := s.scheduleMultiPhase(ctx, mod, e)
	if err != nil {
		return inserted, err
	}
	if !handled {
		inserted, err = s.scheduleGeneric(ctx, mod, e)
		if err != nil {
			return inserted, err
		}
	}

	s.fireRefresh(ctx, e.Profile)
	return inserted, nil
}

// fireRefresh invokes the dashboard refresh hook in the background with a
// supervised error boundary, so hook failures are logged instead of lost.
func (s *Scheduler) fireRefresh(ctx context.Context, profile string) {
	if s.refresh == nil {
		return
	}
	go func() {
		if err := s.refresh(context.WithoutCancel(ctx), profile); err != nil {
			s.logger.Error("dashboard refresh failed", "profile", profile, "error", err)
		}
	}()
}

// --------------------------------------------------------------------------
// Generic path
// --------------------------------------------------------------------------

func (s *Scheduler) scheduleGeneric(ctx context.Context, mod game.Module, e *event.Event) (int, error) {
	rule, ok := mod.Timings(e.Category)
	if !ok {
		// Unknown category means zero rows, silently.
		return 0, nil
	}

	now := s.clock.Now().Unix()
	inserted := 0

	schedule := func(timingType string, offsets []int, region game.Region, start, end int64) error {
		anchor := start
		if timingType == TimingEnd {
			anchor = end
		}
		if anchor == 0 {
			return nil
		}
		for _, offset := range offsets {
			p := &Pending{
				EventKey:      e.Key,
				Category:      e.Category,
				Profile:       e.Profile,
				Title:         e.Title,
				TimingType:    timingType,
				NotifyUnix:    anchor - int64(offset)*minuteSeconds,
				EventTimeUnix: anchor,
				Region:        string(region),
			}
			ok, err := s.insert(ctx, now, p)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	}

	if mod.Regional() {
		for _, region := range mod.Regions() {
			start, end := e.RegionTimes(region)
			// Fall back to the single-timezone pair when a regional
			// field was never populated.
			if start == 0 {
				start = e.StartUnix
			}
			if end == 0 {
				end = e.EndUnix
			}
			if err := schedule(TimingStart, rule.Start, region, start, end); err != nil {
				return inserted, err
			}
			if err := schedule(TimingEnd, rule.End, region, start, end); err != nil {
				return inserted, err
			}
		}
		return inserted, nil
	}

	if err := schedule(TimingStart, rule.Start, "", e.StartUnix, e.EndUnix); err != nil {
		return inserted, err
	}
	if err := schedule(TimingEnd, rule.End, "", e.StartUnix, e.EndUnix); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// insert applies the past-cutoff policy and the idempotency pre-check, then
// writes the row.
func (s *Scheduler) insert(ctx context.Context, now int64, p *Pending) (bool, error) {
	if p.NotifyUnix <= now {
		return false, nil
	}
	exists, err := s.store.Exists(ctx, p)
	if err != nil {
		return false, fmt.Errorf("notification exists check: %w", err)
	}
	if exists {
		return false, nil
	}
	return s.store.Insert(ctx, p)
}

// --------------------------------------------------------------------------
// Multi-phase path
// --------------------------------------------------------------------------

// scheduleMultiPhase runs the bespoke schedules for the two special
// categories. handled is false when the module has no multi-phase capability
// or parsing fails, in which case the caller must run the generic path.
func (s *Scheduler) scheduleMultiPhase(ctx context.Context, mod game.Module, e *event.Event) (inserted int, handled bool, err error) {
	mp, ok := mod.(game.MultiPhase)
	if !ok {
		return 0, false, nil
	}
	kind, ok := mp.Kind(e.Title, e.Category)
	if !ok {
		return 0, false, nil
	}

	switch kind {
	case game.KindTournament:
		phases := ParseTournamentPhases(e.Description, e.StartUnix, e.EndUnix)
		if len(phases) == 0 {
			s.logger.Debug("tournament phases unparseable, using generic path",
				"profile", e.Profile, "title", e.Title)
			return 0, false, nil
		}
		inserted, err = s.scheduleTournament(ctx, e, phases)
		return inserted, true, err

	case game.KindRotation:
		participants := ParseParticipants(e.Description, e.StartUnix, e.EndUnix)
		if len(participants) == 0 {
			s.logger.Debug("rotation participants unparseable, using generic path",
				"profile", e.Profile, "title", e.Title)
			return 0, false, nil
		}
		inserted, err = s.scheduleRotation(ctx, e, participants)
		return inserted, true, err
	}
	return 0, false, nil
}

func (s *Scheduler) scheduleTournament(ctx context.Context, e *event.Event, phases []Phase) (int, error) {
	now := s.clock.Now().Unix()
	inserted := 0

	rows := []*Pending{{
		TimingType:      TimingReminder,
		NotifyUnix:      e.StartUnix - reminderLead,
		EventTimeUnix:   e.StartUnix,
		MessageTemplate: "uma_champions_meeting_reminder",
	}}
	for _, phase := range phases {
		rows = append(rows, &Pending{
			TimingType:      TimingPhaseStart,
			NotifyUnix:      phase.StartUnix,
			EventTimeUnix:   phase.StartUnix,
			MessageTemplate: phase.Template,
			Phase:           phase.Name,
		})
	}
	rows = append(rows, &Pending{
		TimingType:      TimingEnd,
		NotifyUnix:      e.EndUnix,
		EventTimeUnix:   e.EndUnix,
		MessageTemplate: "uma_champions_meeting_end",
	})

	for _, p := range rows {
		p.EventKey, p.Category, p.Profile, p.Title = e.Key, e.Category, e.Profile, e.Title
		ok, err := s.insert(ctx, now, p)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Scheduler) scheduleRotation(ctx context.Context, e *event.Event, participants []Participant) (int, error) {
	now := s.clock.Now().Unix()
	inserted := 0

	rows := []*Pending{{
		TimingType:      TimingReminder,
		NotifyUnix:      e.StartUnix - reminderLead,
		EventTimeUnix:   e.StartUnix,
		MessageTemplate: "uma_legend_race_reminder",
	}}
	for _, part := range participants {
		rows = append(rows, &Pending{
			TimingType:      TimingCharacterStart,
			NotifyUnix:      part.StartUnix,
			EventTimeUnix:   part.StartUnix,
			MessageTemplate: "uma_legend_race_character_start",
			CharacterName:   part.Name,
		})
	}
	rows = append(rows, &Pending{
		TimingType:      TimingEnd,
		NotifyUnix:      e.EndUnix,
		EventTimeUnix:   e.EndUnix,
		MessageTemplate: "uma_legend_race_end",
	})

	for _, p := range rows {
		p.EventKey, p.Category, p.Profile, p.Title = e.Key, e.Category, e.Profile, e.Title
		ok, err := s.insert(ctx, now, p)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
