// Package event holds the game event model and its persistence and lifecycle
// logic. Events are the source rows the notification scheduler derives from.
package event

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kanamidev/gachatimer/internal/game"
)

// Event is one tracked in-game occurrence (banner, event, maintenance, ...).
// Key is the durable identifier notifications reference; the
// (profile, title, category) triple is kept as a compatibility join for rows
// written before keys existed.
type Event struct {
	ID          int64
	Key         uuid.UUID
	Profile     string
	Category    string
	Title       string
	Description string
	Image       string

	// Single-timezone anchors. Zero means unknown.
	StartUnix int64
	EndUnix   int64

	// Regional anchors, used when the game module is regional.
	AsiaStart    int64
	AsiaEnd      int64
	AmericaStart int64
	AmericaEnd   int64
	EuropeStart  int64
	EuropeEnd    int64
}

// RegionTimes returns the start/end anchors for one region.
func (e *Event) RegionTimes(r game.Region) (start, end int64) {
	switch r {
	case game.RegionAsia:
		return e.AsiaStart, e.AsiaEnd
	case game.RegionAmerica:
		return e.AmericaStart, e.AmericaEnd
	case game.RegionEurope:
		return e.EuropeStart, e.EuropeEnd
	}
	return 0, 0
}

// SetRegionTimes sets the anchors for one region.
func (e *Event) SetRegionTimes(r game.Region, start, end int64) {
	switch r {
	case game.RegionAsia:
		e.AsiaStart, e.AsiaEnd = start, end
	case game.RegionAmerica:
		e.AmericaStart, e.AmericaEnd = start, end
	case game.RegionEurope:
		e.EuropeStart, e.EuropeEnd = start, end
	}
}

// Ended reports whether the event has fully elapsed everywhere as of now.
func (e *Event) Ended(now int64, regional bool) bool {
	if !regional {
		return e.EndUnix != 0 && e.EndUnix < now
	}
	for _, end := range []int64{e.AsiaEnd, e.AmericaEnd, e.EuropeEnd} {
		if end == 0 || end >= now {
			return false
		}
	}
	return true
}

// Normalize canonicalizes the profile and category, converting the category
// from title keywords where the title names a known special event.
func (e *Event) Normalize() {
	e.Profile = game.NormalizeProfile(e.Profile)
	e.Category = game.NormalizeCategory(e.Category, e.Profile)

	lt := strings.ToLower(e.Title)
	switch {
	case strings.Contains(lt, "champions meeting"):
		e.Category = "Champions Meeting"
	case strings.Contains(lt, "legend race"):
		e.Category = "Legend Race"
	}
}
