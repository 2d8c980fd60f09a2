// Package game defines the per-game capability modules the scheduler works
// against. Each supported game exposes its notification timing rules and its
// server topology through the Module interface, so the scheduling core never
// branches on profile strings.
//
// Ported from Python PROFILE_CONFIG + NOTIFICATION_TIMINGS tables.
package game

import "strings"

// --------------------------------------------------------------------------
// Regions
// --------------------------------------------------------------------------

// Region is one of the three server clusters used by regionally-split games.
type Region string

const (
	RegionAsia    Region = "ASIA"
	RegionAmerica Region = "AMERICA"
	RegionEurope  Region = "EUROPE"
)

// AllRegions lists every region in canonical order.
var AllRegions = []Region{RegionAsia, RegionAmerica, RegionEurope}

// --------------------------------------------------------------------------
// Timing rules
// --------------------------------------------------------------------------

// Rule holds the offset tables for one event category. Offsets are minutes
// before the anchoring timestamp; an empty slice means no notifications for
// that boundary.
type Rule struct {
	Start []int
	End   []int
}

// MultiPhaseKind identifies the two categories that bypass the offset tables.
type MultiPhaseKind int

const (
	// KindTournament is the multi-round tournament schedule
	// (Champions Meeting: registration, rounds, finals).
	KindTournament MultiPhaseKind = iota + 1
	// KindRotation is the rotating single-participant schedule
	// (Legend Race: one character window at a time).
	KindRotation
)

// --------------------------------------------------------------------------
// Module interface
// --------------------------------------------------------------------------

// Module is the capability surface one game exposes to the scheduling core.
type Module interface {
	// Code returns the short profile code ("AK", "HSR", "UMA", ...).
	Code() string
	// Name returns the display name of the game.
	Name() string
	// Categories returns the event categories this game accepts.
	Categories() []string
	// Timings returns the notification rule for a category. The second
	// return is false when the category has no table entry; per policy
	// that means zero notifications, not an error.
	Timings(category string) (Rule, bool)
	// Regional reports whether this game runs independent regional servers.
	Regional() bool
	// Regions returns the regions a regional game schedules for. Empty for
	// single-timezone games.
	Regions() []Region
}

// MultiPhase is an optional capability for games whose categories require
// bespoke per-phase schedules instead of the offset tables.
type MultiPhase interface {
	// Kind detects a multi-phase category from the event's title or
	// category. Detection is a substring match on the title or an exact
	// category match.
	Kind(title, category string) (MultiPhaseKind, bool)
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry maps profile codes to their modules.
type Registry struct {
	modules map[string]Module
	order   []string
}

// NewRegistry builds a registry from the given modules, preserving order.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module, len(modules))}
	for _, m := range modules {
		code := strings.ToUpper(m.Code())
		if _, dup := r.modules[code]; dup {
			continue
		}
		r.modules[code] = m
		r.order = append(r.order, code)
	}
	return r
}

// Get returns the module for a profile code (case-insensitive, aliases
// resolved). The second return is false for unknown profiles.
func (r *Registry) Get(profile string) (Module, bool) {
	m, ok := r.modules[NormalizeProfile(profile)]
	return m, ok
}

// Codes returns all registered profile codes in registration order.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns all registered modules in registration order.
func (r *Registry) All() []Module {
	out := make([]Module, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.modules[code])
	}
	return out
}

// Default returns a registry with every supported game.
func Default() *Registry {
	return NewRegistry(
		NewArknights(),
		NewStrinova(),
		NewHoyo("HSR", "Honkai: Star Rail"),
		NewHoyo("ZZZ", "Zenless Zone Zero"),
		NewHoyo("WUWA", "Wuthering Waves"),
		NewUma(),
	)
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// profileAliases maps long-form names to profile codes.
var profileAliases = map[string]string{
	"HONKAI":           "HSR",
	"STARRAIL":         "HSR",
	"HONKAI STAR RAIL": "HSR",
	"ZENLESS":          "ZZZ",
	"ZENLESS ZONE ZERO": "ZZZ",
	"WUTHERING":        "WUWA",
	"WUTHERING WAVES":  "WUWA",
	"ARKNIGHTS":        "AK",
	"STRINOVA":         "STRI",
	"UMA MUSUME":       "UMA",
	"UMAMUSUME":        "UMA",
}

// NormalizeProfile uppercases a profile string and resolves aliases.
func NormalizeProfile(profile string) string {
	p := strings.ToUpper(strings.TrimSpace(profile))
	if code, ok := profileAliases[p]; ok {
		return code
	}
	return p
}

// NormalizeCategory maps free-form category text onto the canonical category
// names used by the timing tables.
func NormalizeCategory(category, profile string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}
	lower := strings.ToLower(category)
	uma := NormalizeProfile(profile) == "UMA"

	switch {
	case strings.Contains(lower, "banner"):
		if uma {
			switch {
			case strings.Contains(lower, "character"):
				return "Character Banner"
			case strings.Contains(lower, "support"):
				return "Support Banner"
			case strings.Contains(lower, "paid"):
				return "Paid Banner"
			}
		}
		return "Banner"
	case strings.Contains(lower, "champion"):
		return "Champions Meeting"
	case strings.Contains(lower, "legend"):
		return "Legend Race"
	case strings.Contains(lower, "event"):
		if uma && strings.Contains(lower, "story") {
			return "Story Event"
		}
		return "Event"
	case strings.Contains(lower, "maint"):
		return "Maintenance"
	case strings.Contains(lower, "offer"), strings.Contains(lower, "shop"), strings.Contains(lower, "pack"):
		return "Offer"
	}
	return titleWords(lower)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
