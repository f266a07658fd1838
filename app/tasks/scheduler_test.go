package tasks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/feed-curator/app/cfg"
	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
)

func setupTestConfig() {
	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	cfg.Load()
}

type MockPresetRepository struct {
	mu      sync.Mutex
	presets map[string]database.Preset
	checks  map[string]database.PresetCheck
	err     error
}

func newMockPresetRepository() *MockPresetRepository {
	return &MockPresetRepository{
		presets: make(map[string]database.Preset),
		checks:  make(map[string]database.PresetCheck),
	}
}

func (m *MockPresetRepository) ListPresets(ctx context.Context) ([]database.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	presets := make([]database.Preset, 0, len(m.presets))
	for _, preset := range m.presets {
		presets = append(presets, preset)
	}
	return presets, nil
}

func (m *MockPresetRepository) GetPreset(ctx context.Context, feedURL string) (*database.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	preset, ok := m.presets[feedURL]
	if !ok {
		return nil, feed.NewNotFoundError("preset", feedURL)
	}
	return &preset, nil
}

func (m *MockPresetRepository) GetPresetCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.presets), nil
}

func (m *MockPresetRepository) UpsertPreset(ctx context.Context, preset database.Preset) (bool, error) {
	if m.err != nil {
		return false, m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.presets[preset.FeedURL]
	m.presets[preset.FeedURL] = preset
	return !exists, nil
}

func (m *MockPresetRepository) DeletePreset(ctx context.Context, feedURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.presets[feedURL]
	delete(m.presets, feedURL)
	return exists, nil
}

func (m *MockPresetRepository) UpdatePresetCheck(ctx context.Context, feedURL string, check database.PresetCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks[feedURL] = check
	return nil
}

type MockExclusionRepository struct {
	current *database.SaveRecord
}

func (m *MockExclusionRepository) Save(ctx context.Context, req feed.SaveRequest) (*database.SaveRecord, error) {
	m.current = &database.SaveRecord{ID: "test", FeedURL: req.FeedURL, ExcludedIDs: req.ExcludedIDs}
	return m.current, nil
}

func (m *MockExclusionRepository) LoadCurrent(ctx context.Context, feedURL string) (*database.SaveRecord, error) {
	return m.current, nil
}

func (m *MockExclusionRepository) LoadHistory(ctx context.Context, feedURL string) ([]database.HistoryEntry, error) {
	return nil, nil
}

func (m *MockExclusionRepository) LoadSave(ctx context.Context, feedURL, saveID string) (*database.SaveRecord, error) {
	return nil, feed.NewNotFoundError("save", saveID)
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0"><channel><title>Store</title>
<item><g:id>1</g:id><title>Shirt</title></item>
<item><g:id>2</g:id><title>Shoes</title></item>
</channel></rss>`

func newTestFetcher() *feed.Fetcher {
	return feed.NewFetcher(&http.Client{}, "test-agent", 5*time.Second)
}

func TestCheckFeedTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	presetRepo := newMockPresetRepository()
	exclusionRepo := &MockExclusionRepository{
		current: &database.SaveRecord{ExcludedIDs: []string{"1", "gone-1", "gone-2"}},
	}
	preset := &feed.Preset{Key: "store", Name: "Store", URL: server.URL, Settings: feed.PresetSettings{Enabled: true}}

	task := NewCheckFeedTask(preset, newTestFetcher(), feed.NewParser(), presetRepo, exclusionRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	check, ok := presetRepo.checks[server.URL]
	if !ok {
		t.Fatal("Expected check to be recorded")
	}
	if check.ItemCount != 2 {
		t.Errorf("Expected item count 2, got %d", check.ItemCount)
	}
	if check.MissingCount != 2 {
		t.Errorf("Expected missing count 2, got %d", check.MissingCount)
	}
	if check.Error != "" {
		t.Errorf("Expected no recorded error, got %s", check.Error)
	}
}

func TestCheckFeedTaskRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	presetRepo := newMockPresetRepository()
	preset := &feed.Preset{Key: "store", URL: server.URL, Settings: feed.PresetSettings{Enabled: true}}

	task := NewCheckFeedTask(preset, newTestFetcher(), feed.NewParser(), presetRepo, &MockExclusionRepository{})
	err := task.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var serviceErr *feed.ExternalServiceError
	if !errors.As(err, &serviceErr) || serviceErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected ExternalServiceError with status 404, got: %v", err)
	}

	if presetRepo.checks[server.URL].Error == "" {
		t.Error("Expected failure to be recorded on the preset")
	}
}

func TestCheckFeedTaskSkipsDisabled(t *testing.T) {
	presetRepo := newMockPresetRepository()
	preset := &feed.Preset{Key: "store", URL: "http://127.0.0.1:1/feed.xml"}

	task := NewCheckFeedTask(preset, newTestFetcher(), feed.NewParser(), presetRepo, &MockExclusionRepository{})
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error for disabled preset, got: %v", err)
	}
	if len(presetRepo.checks) != 0 {
		t.Errorf("Expected no check recorded, got %d", len(presetRepo.checks))
	}
}

func TestSyncPresetTask(t *testing.T) {
	presetRepo := newMockPresetRepository()
	preset := &feed.Preset{Key: "store", Name: "Store Feed", URL: "https://shop.example.com/feed.xml", Settings: feed.PresetSettings{Enabled: true}}

	task := NewSyncPresetTask(preset, presetRepo)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stored := presetRepo.presets[preset.URL]
	if stored.ClientName != "Store Feed" {
		t.Errorf("Expected client name to fall back to feed name, got %s", stored.ClientName)
	}
	if stored.Key != "store" {
		t.Errorf("Expected key store, got %s", stored.Key)
	}
	if !stored.Enabled {
		t.Error("Expected preset to be enabled")
	}

	presetRepo.err = errors.New("database locked")
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error when upsert fails")
	}
}

func TestPruneSessionsTask(t *testing.T) {
	sessions := feed.NewSessionStore(feed.NewParser(), nil, nil, time.Millisecond)
	sessions.Get("token-a")
	sessions.Get("token-b")

	time.Sleep(5 * time.Millisecond)

	task := NewPruneSessionsTask(sessions)
	if task.canRetry() {
		t.Error("Expected prune task not to retry")
	}
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if sessions.Len() != 0 {
		t.Errorf("Expected all sessions pruned, got %d", sessions.Len())
	}
}

func TestTaskBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeCheckFeed, "store")

	if task.ID == "" || task.Target != "store" || task.Type != TaskTypeCheckFeed {
		t.Errorf("Unexpected task %+v", task)
	}
	if task.elapsed() != 0 {
		t.Errorf("Expected no elapsed time before start, got %v", task.elapsed())
	}

	for range DefaultMaxRetries {
		if !task.canRetry() {
			t.Fatalf("Expected retry to be allowed at %d retries", task.Retries)
		}
		task.Retries++
	}
	if task.canRetry() {
		t.Error("Expected no retry after the maximum")
	}

	task.begin()
	time.Sleep(time.Millisecond)
	if task.elapsed() <= 0 {
		t.Error("Expected elapsed time after start")
	}

	if other := NewTask(TaskTypeCheckFeed, "store"); other.ID == task.ID {
		t.Error("Expected unique task ids")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.retryCount); got != tt.expected {
			t.Errorf("retryDelay(%d): expected %v, got %v", tt.retryCount, tt.expected, got)
		}
	}
}

func newTestScheduler(presetRepo database.PresetRepository) *Scheduler {
	setupTestConfig()
	return NewScheduler(feed.NewPresetCache(os.TempDir()), presetRepo, &MockExclusionRepository{}, newTestFetcher(), feed.NewParser(), nil)
}

func TestNewScheduler(t *testing.T) {
	scheduler := newTestScheduler(newMockPresetRepository())

	if scheduler.workerCount != 3 {
		t.Errorf("Expected 3 workers, got %d", scheduler.workerCount)
	}
	if scheduler.interval != time.Minute {
		t.Errorf("Expected interval 1m, got %v", scheduler.interval)
	}
}

func TestEnqueueTaskQueueFull(t *testing.T) {
	scheduler := newTestScheduler(newMockPresetRepository())
	scheduler.taskQueue = make(chan TaskInterface, 1)

	sessions := feed.NewSessionStore(feed.NewParser(), nil, nil, 0)
	if err := scheduler.EnqueueTask(NewPruneSessionsTask(sessions)); err != nil {
		t.Fatalf("Expected first enqueue to succeed, got: %v", err)
	}
	if err := scheduler.EnqueueTask(NewPruneSessionsTask(sessions)); err == nil {
		t.Error("Expected error when queue is full")
	}
}

func TestIsDue(t *testing.T) {
	presetRepo := newMockPresetRepository()
	scheduler := newTestScheduler(presetRepo)
	now := time.Now().UTC()

	preset := &feed.Preset{Key: "store", URL: "https://shop.example.com/feed.xml", Settings: feed.PresetSettings{Enabled: true, CheckInterval: 600}}

	if scheduler.isDue(preset, now) {
		t.Error("Expected preset missing from database not to be due")
	}

	presetRepo.presets[preset.URL] = database.Preset{FeedURL: preset.URL}
	if !scheduler.isDue(preset, now) {
		t.Error("Expected never checked preset to be due")
	}

	recent := now.Add(-5 * time.Minute)
	presetRepo.presets[preset.URL] = database.Preset{FeedURL: preset.URL, LastCheckedAt: &recent}
	if scheduler.isDue(preset, now) {
		t.Error("Expected recently checked preset not to be due")
	}

	stale := now.Add(-15 * time.Minute)
	presetRepo.presets[preset.URL] = database.Preset{FeedURL: preset.URL, LastCheckedAt: &stale}
	if !scheduler.isDue(preset, now) {
		t.Error("Expected stale preset to be due")
	}
}

func TestHealth(t *testing.T) {
	scheduler := newTestScheduler(newMockPresetRepository())

	health := scheduler.Health()
	if health["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", health["status"])
	}
	if health["workers"] != 3 {
		t.Errorf("Expected workers 3, got %v", health["workers"])
	}
	if health["total_processed"] != int64(0) {
		t.Errorf("Expected total processed 0, got %v", health["total_processed"])
	}

	for i := 0; i < 8; i++ {
		scheduler.record(nil)
	}
	scheduler.record(errors.New("boom"))
	scheduler.record(errors.New("boom"))

	health = scheduler.Health()
	if health["status"] != "degraded" {
		t.Errorf("Expected status 'degraded' with 20%% error rate, got %v", health["status"])
	}
	if health["error_rate"] != 0.2 {
		t.Errorf("Expected error rate 0.2, got %v", health["error_rate"])
	}
	if _, ok := health["last_processed_at"]; !ok {
		t.Error("Expected last_processed_at to be set")
	}

	for i := 0; i < 10; i++ {
		scheduler.record(errors.New("boom"))
	}

	health = scheduler.Health()
	if health["status"] != "unhealthy" {
		t.Errorf("Expected status 'unhealthy' with 60%% error rate, got %v", health["status"])
	}
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler := newTestScheduler(newMockPresetRepository())

	scheduler.Start()
	time.Sleep(10 * time.Millisecond)
	scheduler.Stop()

	if scheduler.ctx.Err() == nil {
		t.Error("Expected scheduler context to be cancelled after stop")
	}
}
