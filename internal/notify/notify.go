// Package notify implements the notification scheduling core: deriving
// fire-at rows from event timestamps and per-category timing rules, persisting
// them idempotently, delivering them on a polling loop, and reconciling the
// notification table against the live event tables.
//
// Pipeline: event change → scheduler derives rows → store upserts →
// dispatch worker claims due rows and hands them to the sender.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultDispatchInterval = 30 * time.Second
	defaultLookahead        = 60 * time.Second
	defaultBatchSize        = 50

	minuteSeconds = 60
	daySeconds    = 86400

	// reminderLead is how far before an event's overall start the single
	// reminder row for multi-phase categories fires.
	reminderLead = daySeconds

	// expiredRetention is how long sent/stale rows outlive their anchor
	// before the cleanup sweep removes them.
	expiredRetention = 7 * daySeconds
)

// --------------------------------------------------------------------------
// Timing types
// --------------------------------------------------------------------------

// Timing type values carried by notification rows. The offset is encoded in
// NotifyUnix, not in the type.
const (
	TimingStart          = "start"
	TimingEnd            = "end"
	TimingReminder       = "reminder"
	TimingPhaseStart     = "phase_start"
	TimingCharacterStart = "character_start"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Pending is one scheduled notification row. Identity for idempotency is the
// (Category, Profile, Title, TimingType, NotifyUnix, Region) tuple; EventKey
// is the durable reference back to the originating event.
type Pending struct {
	ID            int64
	EventKey      uuid.UUID
	Category      string
	Profile       string
	Title         string
	TimingType    string
	NotifyUnix    int64
	EventTimeUnix int64
	Region        string

	// Optional render overrides, used by the multi-phase categories and by
	// manual commands.
	MessageTemplate string
	CustomMessage   string
	Phase           string
	CharacterName   string

	Sent bool
}

// EventRef identifies the event a notification row belongs to.
type EventRef struct {
	Profile  string
	Title    string
	Category string
}
