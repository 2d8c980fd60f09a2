package game

import "strings"

// --------------------------------------------------------------------------
// Shared tables
// --------------------------------------------------------------------------

// standardRules is the default offset table shared by the single-timezone and
// regional games. Offsets are minutes before the anchor.
var standardRules = map[string]Rule{
	"Banner":      {Start: []int{60, 1440}, End: []int{60, 1440}},
	"Event":       {Start: []int{180}, End: []int{180, 1440}},
	"Maintenance": {Start: []int{60}, End: nil},
	"Offer":       {Start: []int{180, 1440}, End: []int{1440}},
}

// umaRules is the Uma Musume offset table. Champions Meeting and Legend Race
// carry empty rules because their schedules are phase-derived.
var umaRules = map[string]Rule{
	"Character Banner": {Start: []int{1440}, End: []int{1440, 1500}},
	"Support Banner":   {Start: []int{1440}, End: []int{1440, 1500}},
	"Paid Banner":      {Start: []int{1440}, End: []int{1440, 1500}},
	"Story Event":      {Start: []int{1440}, End: []int{4320, 4380}},
	"Selection Gacha":  {Start: []int{1440}, End: []int{1440}},
	"Champions Meeting": {},
	"Legend Race":       {},
}

func keys(rules map[string]Rule, order []string) []string {
	out := make([]string, 0, len(order))
	for _, k := range order {
		if _, ok := rules[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

var standardOrder = []string{"Banner", "Event", "Maintenance", "Offer"}

var umaOrder = []string{
	"Character Banner", "Support Banner", "Paid Banner",
	"Story Event", "Selection Gacha", "Champions Meeting", "Legend Race",
}

// --------------------------------------------------------------------------
// Single-timezone games
// --------------------------------------------------------------------------

type standardModule struct {
	code string
	name string
}

func (m *standardModule) Code() string         { return m.code }
func (m *standardModule) Name() string         { return m.name }
func (m *standardModule) Categories() []string { return keys(standardRules, standardOrder) }
func (m *standardModule) Regional() bool       { return false }
func (m *standardModule) Regions() []Region    { return nil }

func (m *standardModule) Timings(category string) (Rule, bool) {
	r, ok := standardRules[category]
	return r, ok
}

// NewArknights returns the Arknights module.
func NewArknights() Module { return &standardModule{code: "AK", name: "Arknights"} }

// NewStrinova returns the Strinova module.
func NewStrinova() Module { return &standardModule{code: "STRI", name: "Strinova"} }

// --------------------------------------------------------------------------
// Regional games
// --------------------------------------------------------------------------

type regionalModule struct {
	standardModule
}

func (m *regionalModule) Regional() bool    { return true }
func (m *regionalModule) Regions() []Region { return AllRegions }

// NewHoyo returns a module for a regionally-split game. The three games using
// this shape share the standard offset table and the ASIA/AMERICA/EUROPE
// server split.
func NewHoyo(code, name string) Module {
	return &regionalModule{standardModule{code: code, name: name}}
}

// --------------------------------------------------------------------------
// Uma Musume
// --------------------------------------------------------------------------

type umaModule struct{}

// NewUma returns the Uma Musume module. It is the only game with multi-phase
// categories.
func NewUma() Module { return &umaModule{} }

func (m *umaModule) Code() string         { return "UMA" }
func (m *umaModule) Name() string         { return "Uma Musume Pretty Derby" }
func (m *umaModule) Categories() []string { return keys(umaRules, umaOrder) }
func (m *umaModule) Regional() bool       { return false }
func (m *umaModule) Regions() []Region    { return nil }

func (m *umaModule) Timings(category string) (Rule, bool) {
	r, ok := umaRules[category]
	return r, ok
}

// Kind implements MultiPhase. Champions Meeting and Legend Race are detected
// by category or by title substring.
func (m *umaModule) Kind(title, category string) (MultiPhaseKind, bool) {
	lt := strings.ToLower(title)
	switch {
	case category == "Champions Meeting" || strings.Contains(lt, "champions meeting"):
		return KindTournament, true
	case category == "Legend Race" || strings.Contains(lt, "legend race"):
		return KindRotation, true
	}
	return 0, false
}
