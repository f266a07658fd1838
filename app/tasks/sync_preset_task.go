package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
)

// SyncPresetTask mirrors a YAML preset into the preset table so it shows up
// in the workspace feed picker.
type SyncPresetTask struct {
	Task
	Preset     *feed.Preset
	presetRepo database.PresetRepository
}

func NewSyncPresetTask(preset *feed.Preset, presetRepo database.PresetRepository) *SyncPresetTask {
	return &SyncPresetTask{
		Task:       NewTask(TaskTypeSyncPreset, preset.Key),
		Preset:     preset,
		presetRepo: presetRepo,
	}
}

func (t *SyncPresetTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	client := t.Preset.Client
	if client == "" {
		client = t.Preset.Name
	}

	created, err := t.presetRepo.UpsertPreset(ctx, database.Preset{
		FeedURL:    t.Preset.URL,
		Key:        t.Preset.Key,
		ClientName: client,
		FeedName:   t.Preset.Name,
		Enabled:    t.Preset.Settings.Enabled,
	})
	if err != nil {
		slog.Error("Task failed", "type", "SyncPreset", "feed", t.Target, "error", err)
		return fmt.Errorf("failed to sync preset to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncPreset",
		"feed", t.Target,
		"created", created,
		"duration", t.elapsed())

	return nil
}
