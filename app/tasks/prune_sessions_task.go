package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-curator/app/feed"
)

type PruneSessionsTask struct {
	Task
	sessions *feed.SessionStore
}

func NewPruneSessionsTask(sessions *feed.SessionStore) *PruneSessionsTask {
	task := &PruneSessionsTask{
		Task:     NewTask(TaskTypePruneSessions, ""),
		sessions: sessions,
	}
	task.MaxRetries = 0
	return task
}

func (t *PruneSessionsTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pruned := t.sessions.Prune(time.Now())
	if pruned > 0 {
		slog.Info("Task completed",
			"type", "PruneSessions",
			"pruned", pruned,
			"remaining", t.sessions.Len())
	}

	return nil
}
