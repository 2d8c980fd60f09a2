// Package timers owns the dashboard-refresh timer registry: persisted
// (time, region) update tasks, armed as cancellable in-process timers and
// rebuilt from the table after a restart.
package timers

import (
	"context"
	"fmt"

	"github.com/kanamidev/gachatimer/internal/db"
)

// Task statuses.
const (
	StatusPending   = "pending"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Task is one persisted scheduled refresh.
type Task struct {
	ID         int64
	Profile    string
	Region     string
	UpdateUnix int64
	Status     string
}

// TaskStore persists update tasks in Postgres.
type TaskStore struct {
	pool *db.Pool
}

// NewTaskStore creates a task store backed by the given pool.
func NewTaskStore(pool *db.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

// Insert writes a pending task and fills in its id.
func (s *TaskStore) Insert(ctx context.Context, t *Task) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scheduled_update_tasks (profile, region, update_unix, status)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		t.Profile, t.Region, t.UpdateUnix, StatusPending,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert update task: %w", err)
	}
	t.Status = StatusPending
	return nil
}

// Pending returns all pending tasks ordered by fire time.
func (s *TaskStore) Pending(ctx context.Context) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, "due_timer_tasks")
	if err != nil {
		return nil, fmt.Errorf("query update tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Profile, &t.Region, &t.UpdateUnix, &t.Status); err != nil {
			return nil, fmt.Errorf("scan update task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// SetStatus updates one task's status.
func (s *TaskStore) SetStatus(ctx context.Context, id int64, status string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE scheduled_update_tasks SET status = $2 WHERE id = $1`,
		id, status); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// Sweep removes finished tasks older than the cutoff, returning the count.
func (s *TaskStore) Sweep(ctx context.Context, before int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM scheduled_update_tasks
		WHERE status <> $1 AND update_unix < $2`,
		StatusPending, before)
	if err != nil {
		return 0, fmt.Errorf("sweep update tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}
