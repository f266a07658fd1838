package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeSyncPreset    TaskType = "sync_preset"
	TaskTypeCheckFeed     TaskType = "check_feed"
	TaskTypePruneSessions TaskType = "prune_sessions"
)

const DefaultMaxRetries = 3

// TaskInterface is a job the scheduler runs on a worker and may retry.
type TaskInterface interface {
	Execute(ctx context.Context) error
	Info() *Task
}

// Task is the bookkeeping shared by all jobs. Target is the preset key the
// job works on, empty for housekeeping.
type Task struct {
	ID         string
	Type       TaskType
	Target     string
	Retries    int
	MaxRetries int
	startedAt  time.Time
}

func NewTask(taskType TaskType, target string) Task {
	return Task{
		ID:         uuid.New().String(),
		Type:       taskType,
		Target:     target,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) Info() *Task {
	return t
}

func (t *Task) begin() {
	t.startedAt = time.Now()
}

func (t *Task) canRetry() bool {
	return t.Retries < t.MaxRetries
}

func (t *Task) elapsed() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return time.Since(t.startedAt)
}
