package database

import (
	"context"

	"github.com/lysyi3m/feed-curator/app/feed"
)

// ExclusionRepository persists exclusion saves per feed. A save becomes the
// feed's current exclusions and the newest history entry at once; history is
// capped at HistoryLimit entries.
type ExclusionRepository interface {
	Save(ctx context.Context, req feed.SaveRequest) (*SaveRecord, error)
	LoadCurrent(ctx context.Context, feedURL string) (*SaveRecord, error)
	LoadHistory(ctx context.Context, feedURL string) ([]HistoryEntry, error)
	LoadSave(ctx context.Context, feedURL, saveID string) (*SaveRecord, error)
}

type PresetRepository interface {
	ListPresets(ctx context.Context) ([]Preset, error)
	GetPreset(ctx context.Context, feedURL string) (*Preset, error)
	GetPresetCount(ctx context.Context) (int, error)

	UpsertPreset(ctx context.Context, preset Preset) (bool, error)
	DeletePreset(ctx context.Context, feedURL string) (bool, error)
	UpdatePresetCheck(ctx context.Context, feedURL string, check PresetCheck) error
}
