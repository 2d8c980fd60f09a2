package timers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// dedupWindow is how close two refresh times for the same (profile, region)
// may be before the second is treated as the same instant.
const dedupWindow = 15 * time.Minute

// sweepAge is how long finished task rows are kept.
const sweepAge = 24 * time.Hour

// RefreshFunc performs the dashboard refresh for one profile.
type RefreshFunc func(ctx context.Context, profile string) error

// TaskPersister is the persistence surface the registry needs. TaskStore
// satisfies it.
type TaskPersister interface {
	Insert(ctx context.Context, t *Task) error
	Pending(ctx context.Context) ([]*Task, error)
	SetStatus(ctx context.Context, id int64, status string) error
	Sweep(ctx context.Context, before int64) (int64, error)
}

// key identifies a live timer.
type key struct {
	profile string
	region  string
	at      int64
}

type entry struct {
	taskID int64
	timer  *clock.Timer
}

// Registry owns the live refresh timers. All scheduling state is persisted;
// the in-memory map exists only to make timers cancellable and to dedup.
type Registry struct {
	store   TaskPersister
	clock   clock.Clock
	logger  *slog.Logger
	refresh RefreshFunc

	mu      sync.Mutex
	active  map[key]entry
	baseCtx context.Context
}

// NewRegistry creates a registry. Timers fired after Start use the context
// given there.
func NewRegistry(store TaskPersister, clk clock.Clock, logger *slog.Logger, refresh RefreshFunc) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		store:   store,
		clock:   clk,
		logger:  logger,
		refresh: refresh,
		active:  make(map[key]entry),
		baseCtx: context.Background(),
	}
}

// Start rebuilds the registry from the persisted table: overdue tasks fire
// once per (profile, region), future tasks are re-armed. Also sweeps old
// finished rows.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	tasks, err := r.store.Pending(ctx)
	if err != nil {
		return err
	}

	now := r.clock.Now().Unix()
	firedPair := make(map[[2]string]bool)

	for _, t := range tasks {
		if t.UpdateUnix <= now {
			pair := [2]string{t.Profile, t.Region}
			if !firedPair[pair] {
				firedPair[pair] = true
				r.fire(t.Profile, t.ID)
			} else if err := r.store.SetStatus(ctx, t.ID, StatusDone); err != nil {
				r.logger.Warn("mark overdue task done failed", "task_id", t.ID, "error", err)
			}
			continue
		}
		r.arm(t)
	}

	if n, err := r.store.Sweep(ctx, now-int64(sweepAge.Seconds())); err != nil {
		r.logger.Warn("task sweep failed", "error", err)
	} else if n > 0 {
		r.logger.Info("swept finished update tasks", "count", n)
	}

	r.logger.Info("timer registry rebuilt",
		"rearmed", len(r.active), "fired", len(firedPair))
	return nil
}

// Schedule persists and arms a refresh at the given UNIX time. A pending
// timer for the same (profile, region) within the dedup window makes this a
// no-op.
func (r *Registry) Schedule(ctx context.Context, profile, region string, at int64) error {
	if at <= r.clock.Now().Unix() {
		return nil
	}

	r.mu.Lock()
	for k := range r.active {
		if k.profile == profile && k.region == region &&
			absInt64(k.at-at) <= int64(dedupWindow.Seconds()) {
			r.mu.Unlock()
			return nil
		}
	}
	r.mu.Unlock()

	t := &Task{Profile: profile, Region: region, UpdateUnix: at}
	if err := r.store.Insert(ctx, t); err != nil {
		return err
	}
	r.arm(t)
	return nil
}

// Cancel stops a pending timer and marks its task cancelled.
func (r *Registry) Cancel(ctx context.Context, profile, region string, at int64) bool {
	k := key{profile: profile, region: region, at: at}

	r.mu.Lock()
	e, ok := r.active[k]
	if ok {
		e.timer.Stop()
		delete(r.active, k)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := r.store.SetStatus(ctx, e.taskID, StatusCancelled); err != nil {
		r.logger.Warn("mark task cancelled failed", "task_id", e.taskID, "error", err)
	}
	return true
}

// Active returns the number of live timers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// arm creates the in-process timer for a persisted task.
func (r *Registry) arm(t *Task) {
	k := key{profile: t.Profile, region: t.Region, at: t.UpdateUnix}
	delay := time.Duration(t.UpdateUnix-r.clock.Now().Unix()) * time.Second

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.active[k]; dup {
		return
	}
	timer := r.clock.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.active, k)
		r.mu.Unlock()
		r.fire(t.Profile, t.ID)
	})
	r.active[k] = entry{taskID: t.ID, timer: timer}
}

// fire runs the refresh and marks the task done.
func (r *Registry) fire(profile string, taskID int64) {
	r.mu.Lock()
	ctx := r.baseCtx
	r.mu.Unlock()

	if err := r.refresh(ctx, profile); err != nil {
		r.logger.Error("scheduled refresh failed", "profile", profile, "error", err)
	}
	if err := r.store.SetStatus(ctx, taskID, StatusDone); err != nil {
		r.logger.Warn("mark task done failed", "task_id", taskID, "error", err)
	}
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
