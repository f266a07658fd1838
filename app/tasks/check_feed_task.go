package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
)

// CheckFeedTask downloads a preset feed and records how many items it has and
// how many of the currently saved exclusions no longer appear in it.
type CheckFeedTask struct {
	Task
	Preset        *feed.Preset
	fetcher       *feed.Fetcher
	parser        *feed.Parser
	presetRepo    database.PresetRepository
	exclusionRepo database.ExclusionRepository
}

func NewCheckFeedTask(preset *feed.Preset, fetcher *feed.Fetcher, parser *feed.Parser, presetRepo database.PresetRepository, exclusionRepo database.ExclusionRepository) *CheckFeedTask {
	return &CheckFeedTask{
		Task:          NewTask(TaskTypeCheckFeed, preset.Key),
		Preset:        preset,
		fetcher:       fetcher,
		parser:        parser,
		presetRepo:    presetRepo,
		exclusionRepo: exclusionRepo,
	}
}

func (t *CheckFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Preset.Settings.Enabled {
		slog.Debug("Preset disabled, skipping", "feed", t.Target)
		return nil
	}

	check := database.PresetCheck{CheckedAt: time.Now().UTC()}

	snapshot, err := t.loadSnapshot(ctx)
	if err != nil {
		check.Error = err.Error()
		if recordErr := t.presetRepo.UpdatePresetCheck(ctx, t.Preset.URL, check); recordErr != nil {
			slog.Warn("Failed to record failed check", "feed", t.Target, "error", recordErr)
		}
		return err
	}
	check.ItemCount = snapshot.Len()

	current, err := t.exclusionRepo.LoadCurrent(ctx, t.Preset.URL)
	if err != nil {
		return fmt.Errorf("failed to load current exclusions: %w", err)
	}
	if current != nil {
		for _, id := range current.ExcludedIDs {
			if !snapshot.Has(id) {
				check.MissingCount++
			}
		}
	}

	if err := t.presetRepo.UpdatePresetCheck(ctx, t.Preset.URL, check); err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}

	slog.Info("Task completed",
		"type", "CheckFeed",
		"feed", t.Target,
		"duration", t.elapsed(),
		"items", check.ItemCount,
		"skipped", snapshot.Skipped,
		"missing", check.MissingCount)

	return nil
}

func (t *CheckFeedTask) loadSnapshot(ctx context.Context) (*feed.Snapshot, error) {
	data, err := t.fetcher.RunWithTimeout(ctx, t.Preset.URL, t.Preset.Settings.GetTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := t.parser.Run(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return feed.NewSnapshot(metadata, items), nil
}
