package notify

import (
	"regexp"
	"strings"
)

// --------------------------------------------------------------------------
// Multi-phase parsing
// --------------------------------------------------------------------------

// Phase is one named sub-interval of a tournament-style event, with its own
// start time and render template.
type Phase struct {
	Name      string
	Template  string
	StartUnix int64
}

// Tournament round durations, counted backwards from the event end.
const (
	finalsDuration   = daySeconds
	finalRegDuration = daySeconds
	roundDuration    = 2 * daySeconds
)

// ParseTournamentPhases derives the round schedule of a tournament event.
// The rounds run on a fixed cadence anchored to the event end: finals one day,
// final registration one day, two two-day rounds, and the opening selection
// window taking the remainder back to the event start. Returns nil when the
// description is empty or the window is too short to hold the rounds; callers
// treat nil as a parse failure and fall back to the generic path.
func ParseTournamentPhases(description string, start, end int64) []Phase {
	if strings.TrimSpace(description) == "" || start <= 0 || end <= start {
		return nil
	}

	finals := end - finalsDuration
	finalReg := finals - finalRegDuration
	round2 := finalReg - roundDuration
	round1 := round2 - roundDuration
	if round1 <= start {
		return nil
	}

	return []Phase{
		{Name: "League Selection", Template: "uma_champions_meeting_registration_start", StartUnix: start},
		{Name: "Round 1", Template: "uma_champions_meeting_round1_start", StartUnix: round1},
		{Name: "Round 2", Template: "uma_champions_meeting_round2_start", StartUnix: round2},
		{Name: "Final Registration", Template: "uma_champions_meeting_final_registration_start", StartUnix: finalReg},
		{Name: "Finals", Template: "uma_champions_meeting_finals_start", StartUnix: finals},
	}
}

// --------------------------------------------------------------------------
// Rotation participants
// --------------------------------------------------------------------------

// Participant is one named entrant of a rotation-style event with its own
// running window.
type Participant struct {
	Name      string
	StartUnix int64
}

// rotationWindow is how long each participant runs before the next rotates in.
const rotationWindow = 3 * daySeconds

var (
	bulletRe   = regexp.MustCompile(`^[-*•]\s*(.+?)(?:\s*\(.*\))?\s*$`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	listLineRe = regexp.MustCompile(`(?i)^(?:characters?|participants?|racers?)\s*:\s*(.+)$`)
)

// nonNameLinkWords marks markdown links that point at announcements rather
// than naming a participant.
var nonNameLinkWords = []string{"more", "info", "link", "details"}

func isAnnouncementLink(text string) bool {
	lt := strings.ToLower(text)
	for _, w := range nonNameLinkWords {
		if strings.Contains(lt, w) {
			return true
		}
	}
	return false
}

// ParseParticipantNames extracts participant names from an event description.
// Understood formats, checked per line: "- Name (note)" bullets, markdown
// links, and a "characters: a, b, c" list line. Returns nil when nothing
// parses.
func ParseParticipantNames(description string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		names = append(names, name)
	}

	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := listLineRe.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				add(part)
			}
			continue
		}
		if m := mdLinkRe.FindAllStringSubmatch(line, -1); m != nil {
			for _, link := range m {
				if isAnnouncementLink(link[1]) {
					continue
				}
				add(link[1])
			}
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			add(m[1])
		}
	}
	return names
}

// ParseParticipants assigns each parsed name a rotation window forward from
// the event start, capped at the event end. Names whose window would begin at
// or after the end are dropped. Returns nil on parse failure.
func ParseParticipants(description string, start, end int64) []Participant {
	if start <= 0 || end <= start {
		return nil
	}
	names := ParseParticipantNames(description)
	if len(names) == 0 {
		return nil
	}

	var out []Participant
	for i, name := range names {
		at := start + int64(i)*rotationWindow
		if at >= end {
			break
		}
		out = append(out, Participant{Name: name, StartUnix: at})
	}
	return out
}
