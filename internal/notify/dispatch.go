package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Sender transmits a rendered notification. Implemented by the discord
// package; failures are logged and never retried.
type Sender interface {
	Send(ctx context.Context, profile, message string) error
}

// Dispatcher polls the store for due rows and hands them to the sender.
// Rows are marked sent before delivery is attempted, so a failure drops the
// notification rather than duplicating it on the next tick.
type Dispatcher struct {
	store     Store
	sender    Sender
	clock     clock.Clock
	logger    *slog.Logger
	interval  time.Duration
	lookahead time.Duration
	batchSize int
	roles     map[string]string
}

// DispatcherOptions tunes the delivery loop. Zero values take the defaults.
type DispatcherOptions struct {
	Interval  time.Duration
	Lookahead time.Duration
	BatchSize int
	// Roles maps profile codes to Discord role mentions.
	Roles map[string]string
	Clock clock.Clock
}

// NewDispatcher creates a delivery loop over the given store and sender.
func NewDispatcher(store Store, sender Sender, logger *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Interval <= 0 {
		opts.Interval = defaultDispatchInterval
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = defaultLookahead
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Dispatcher{
		store:     store,
		sender:    sender,
		clock:     opts.Clock,
		logger:    logger,
		interval:  opts.Interval,
		lookahead: opts.Lookahead,
		batchSize: opts.BatchSize,
		roles:     opts.Roles,
	}
}

// Run blocks until ctx is cancelled, delivering due notifications on every
// tick. Tick errors are logged and do not stop the loop. Intended to be
// called with `go`.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("notification dispatch worker started", "interval", d.interval)
	ticker := d.clock.Ticker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, failed, err := d.Tick(ctx)
			if err != nil {
				d.logger.Error("dispatch error", "error", err)
			} else if sent+failed > 0 {
				d.logger.Info("dispatch batch", "sent", sent, "failed", failed)
			}
		case <-ctx.Done():
			d.logger.Info("notification dispatch worker stopped")
			return
		}
	}
}

// Tick claims and delivers one batch of due notifications.
func (d *Dispatcher) Tick(ctx context.Context) (sent, failed int, err error) {
	deadline := d.clock.Now().Add(d.lookahead).Unix()
	claimed, err := d.store.ClaimDue(ctx, deadline, d.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range claimed {
		msg := Render(row, d.roles[row.Profile])
		if sendErr := d.sender.Send(ctx, row.Profile, msg); sendErr != nil {
			// The row stays sent=1: no duplicate spam over guaranteed
			// delivery.
			d.logger.Warn("send failed", "notification_id", row.ID,
				"profile", row.Profile, "title", row.Title, "error", sendErr)
			failed++
			continue
		}
		sent++
	}
	return sent, failed, nil
}
