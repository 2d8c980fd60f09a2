package timers

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/kanamidev/gachatimer/internal/event"
	"github.com/kanamidev/gachatimer/internal/game"
)

// EventLister is the slice of the event store the planner reads.
type EventLister interface {
	GetAll(ctx context.Context, profile string) ([]*event.Event, error)
}

// Planner derives refresh times from the event tables and arms them on the
// registry: one timer per (profile, region) at the next event boundary, so
// the dashboard redraws exactly when something starts or ends.
type Planner struct {
	registry *Registry
	games    *game.Registry
	events   EventLister
	clock    clock.Clock
	logger   *slog.Logger
}

// NewPlanner creates a planner over the given registry.
func NewPlanner(registry *Registry, games *game.Registry, events EventLister, clk clock.Clock, logger *slog.Logger) *Planner {
	if clk == nil {
		clk = clock.New()
	}
	return &Planner{registry: registry, games: games, events: events, clock: clk, logger: logger}
}

// PlanProfile schedules the next boundary timer for each of a profile's
// regions. Safe to call after every scheduling change; the registry's dedup
// window absorbs repeats.
func (p *Planner) PlanProfile(ctx context.Context, profile string) error {
	mod, ok := p.games.Get(profile)
	if !ok {
		return nil
	}
	events, err := p.events.GetAll(ctx, profile)
	if err != nil {
		return err
	}

	now := p.clock.Now().Unix()
	regions := []game.Region{""}
	if mod.Regional() {
		regions = mod.Regions()
	}

	for _, region := range regions {
		next := int64(0)
		for _, e := range events {
			start, end := e.StartUnix, e.EndUnix
			if region != "" {
				if rs, re := e.RegionTimes(region); rs != 0 || re != 0 {
					start, end = rs, re
				}
			}
			for _, boundary := range []int64{start, end} {
				if boundary > now && (next == 0 || boundary < next) {
					next = boundary
				}
			}
		}
		if next == 0 {
			continue
		}
		if err := p.registry.Schedule(ctx, profile, string(region), next); err != nil {
			return err
		}
	}
	return nil
}

// PlanAll runs PlanProfile for every registered game.
func (p *Planner) PlanAll(ctx context.Context) error {
	for _, code := range p.games.Codes() {
		if err := p.PlanProfile(ctx, code); err != nil {
			p.logger.Warn("plan refresh timers failed", "profile", code, "error", err)
		}
	}
	return nil
}
