package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/feed-curator/app/cfg"
	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	presetCache   *feed.PresetCache
	presetRepo    database.PresetRepository
	exclusionRepo database.ExclusionRepository
	fetcher       *feed.Fetcher
	parser        *feed.Parser
	sessions      *feed.SessionStore
	interval      time.Duration
	workerCount   int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	taskQueue     chan TaskInterface

	mu        sync.Mutex
	processed int64
	failed    int64
	lastRun   *time.Time
}

func NewScheduler(presetCache *feed.PresetCache, presetRepo database.PresetRepository,
	exclusionRepo database.ExclusionRepository, fetcher *feed.Fetcher, parser *feed.Parser,
	sessions *feed.SessionStore) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	interval := time.Duration(cfg.SchedulerInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	return &Scheduler{
		presetCache:   presetCache,
		presetRepo:    presetRepo,
		exclusionRepo: exclusionRepo,
		fetcher:       fetcher,
		parser:        parser,
		sessions:      sessions,
		interval:      interval,
		workerCount:   max(cfg.WorkerCount, 1),
		ctx:           ctx,
		cancel:        cancel,
		taskQueue:     make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	presets := s.presetCache.GetPresets()
	if len(presets) == 0 {
		slog.Debug("No feed presets found")
		return
	}

	slog.Debug("Syncing feed presets", "count", len(presets))

	for _, preset := range presets {
		if err := s.EnqueueTask(NewSyncPresetTask(preset, s.presetRepo)); err != nil {
			slog.Warn("Failed to enqueue SyncPresetTask", "feed", preset.Key, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	if s.sessions != nil {
		if err := s.EnqueueTask(NewPruneSessionsTask(s.sessions)); err != nil {
			slog.Warn("Failed to enqueue PruneSessionsTask", "error", err)
		}
	}

	presets := s.presetCache.GetEnabledPresets()
	if len(presets) == 0 {
		slog.Debug("No enabled feed presets found")
		return
	}

	now := time.Now().UTC()
	for _, preset := range presets {
		if !s.isDue(preset, now) {
			continue
		}

		checkTask := NewCheckFeedTask(preset, s.fetcher, s.parser, s.presetRepo, s.exclusionRepo)
		if err := s.EnqueueTask(checkTask); err != nil {
			slog.Warn("Failed to enqueue CheckFeedTask", "feed", preset.Key, "error", err)
		}
	}
}

// isDue reports whether a preset was never checked or its check interval
// has passed. Presets not yet synced to the database are not due.
func (s *Scheduler) isDue(preset *feed.Preset, now time.Time) bool {
	stored, err := s.presetRepo.GetPreset(s.ctx, preset.URL)
	if err != nil {
		if !feed.IsNotFound(err) {
			slog.Warn("Failed to get preset from database, skipping", "feed", preset.Key, "error", err)
		}
		return false
	}

	if stored.LastCheckedAt != nil && stored.LastCheckedAt.Add(preset.Settings.GetCheckInterval()).After(now) {
		slog.Debug("Feed not due for check yet", "feed", preset.Key, "last_checked_at", stored.LastCheckedAt)
		return false
	}
	return true
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	info := task.Info()
	info.begin()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	s.record(err)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(info.Type), "id", info.ID, "retry_count", info.Retries, "error", err)

		if info.canRetry() {
			info.Retries++
			delay := retryDelay(info.Retries)

			slog.Warn("Task retry scheduled", "type", string(info.Type), "feed", info.Target, "retry_count", info.Retries, "max_retries", info.MaxRetries, "delay", delay.String())

			go func() {
				time.Sleep(delay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(info.Type), "id", info.ID)
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(info.Type), "id", info.ID, "retry_count", info.Retries, "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(info.Type), "id", info.ID, "retry_count", info.Retries, "max_retries", info.MaxRetries, "last_error", err)
		}
	}
}

// retryDelay doubles from one second and is capped at 30 seconds.
func retryDelay(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}

func (s *Scheduler) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.lastRun = &now
	s.processed++
	if err != nil {
		s.failed++
	}
}

// Health reports queue and error statistics. More than 10% failed tasks is
// degraded, more than half is unhealthy.
func (s *Scheduler) Health() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	health := map[string]any{
		"status":          "healthy",
		"workers":         s.workerCount,
		"queue_size":      len(s.taskQueue),
		"total_processed": s.processed,
		"total_errors":    s.failed,
	}

	if s.lastRun != nil {
		health["last_processed_at"] = s.lastRun.Format(time.RFC3339)
	}

	if s.processed > 0 {
		errorRate := float64(s.failed) / float64(s.processed)
		if errorRate > 0.5 {
			health["status"] = "unhealthy"
		} else if errorRate > 0.1 {
			health["status"] = "degraded"
		}
		health["error_rate"] = errorRate
	}

	return health
}
