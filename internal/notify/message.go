package notify

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Message templates
// --------------------------------------------------------------------------

// defaultTemplate is the generic sentence used when no template matches.
const defaultTemplate = "{role}, The {category} **{name}** is {action} {time}!"

// messageTemplates maps template keys to render strings. Placeholders:
// {role} {name} {category} {action} {time} {phase} {character}.
var messageTemplates = map[string]string{
	"default": defaultTemplate,

	// Tournament
	"uma_champions_meeting_reminder":                 "{role}, **{name}** starts tomorrow! Get ready!",
	"uma_champions_meeting_registration_start":       "{role}, **{name}** League Selection has started!",
	"uma_champions_meeting_round1_start":             "{role}, **{name}** Round 1 has started!",
	"uma_champions_meeting_round2_start":             "{role}, **{name}** Round 2 has started!",
	"uma_champions_meeting_final_registration_start": "{role}, **{name}** Final Registration has started!",
	"uma_champions_meeting_finals_start":             "{role}, **{name}** Finals have started! Good luck!",
	"uma_champions_meeting_end":                      "{role}, **{name}** has ended!",

	// Rotation
	"uma_legend_race_reminder":        "{role}, **{name}** starts tomorrow!",
	"uma_legend_race_character_start": "{role}, **{character}**'s Legend Race has started!",
	"uma_legend_race_end":             "{role}, **{name}** has ended!",

	// Generic events
	"event_start":    "{role}, **{name}** has started!",
	"event_end":      "{role}, **{name}** has ended!",
	"event_reminder": "{role}, **{name}** starts {time}!",

	// Banners
	"banner_start": "{role}, The **{name}** banner is now available!",
	"banner_end":   "{role}, The **{name}** banner ends {time}!",

	// Maintenance
	"maintenance_start": "{role}, Maintenance for **{name}** starts {time}!",
}

// templateFor picks the template key for a row that carries none, based on
// category and timing type.
func templateFor(category, timingType string) string {
	switch {
	case strings.Contains(timingType, "start"):
		switch category {
		case "Banner":
			return "banner_start"
		case "Maintenance":
			return "maintenance_start"
		}
		return "event_start"
	case strings.Contains(timingType, "end"):
		if category == "Banner" {
			return "banner_end"
		}
		return "event_end"
	case timingType == TimingReminder:
		return "event_reminder"
	}
	return "default"
}

// regionEmoji decorates regional notifications.
var regionEmoji = map[string]string{
	"ASIA":    "\U0001F30F",
	"AMERICA": "\U0001F30E",
	"EUROPE":  "\U0001F30D",
}

// RelativeTimestamp returns the Discord relative-time markup for a UNIX time.
func RelativeTimestamp(unix int64) string {
	return fmt.Sprintf("<t:%d:R>", unix)
}

// Render produces the message text for a notification row.
// Resolution order: custom message verbatim, then the row's template key,
// then a generic sentence from category, title, action, and relative time.
func Render(p *Pending, roleMention string) string {
	if p.CustomMessage != "" {
		return p.CustomMessage
	}

	action := "happening"
	switch {
	case strings.Contains(strings.ToLower(p.TimingType), "start"):
		action = "starting"
	case strings.Contains(strings.ToLower(p.TimingType), "end"):
		action = "ending"
	}
	timeStr := RelativeTimestamp(p.EventTimeUnix)

	key := p.MessageTemplate
	if key == "" {
		key = templateFor(p.Category, p.TimingType)
	}
	tmpl, ok := messageTemplates[key]
	if !ok {
		tmpl = defaultTemplate
	}

	msg := strings.NewReplacer(
		"{role}", roleMention,
		"{name}", p.Title,
		"{category}", p.Category,
		"{action}", action,
		"{time}", timeStr,
		"{phase}", p.Phase,
		"{character}", p.CharacterName,
	).Replace(tmpl)

	if p.Region != "" {
		if emoji, ok := regionEmoji[p.Region]; ok {
			return fmt.Sprintf("[%s %s] %s", emoji, p.Region, msg)
		}
		return fmt.Sprintf("[%s] %s", p.Region, msg)
	}
	return msg
}
