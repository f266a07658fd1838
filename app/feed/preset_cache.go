package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PresetCache holds the feed presets defined as YAML files in the feeds
// directory, keyed by file name without extension.
type PresetCache struct {
	feedsDir string
	cache    map[string]*Preset
	mu       sync.RWMutex
}

func NewPresetCache(feedsDir string) *PresetCache {
	return &PresetCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*Preset),
	}
}

func (pc *PresetCache) Run() error {
	if _, err := os.Stat(pc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		key := strings.TrimSuffix(filepath.Base(file), ".yml")

		preset, err := pc.LoadPreset(key)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Preset loaded", "preset", key, "client", preset.Client, "enabled", preset.Settings.Enabled, "check_interval", preset.Settings.CheckInterval)
	}

	return nil
}

func (pc *PresetCache) LoadPreset(key string) (*Preset, error) {
	presetFile := pc.getPresetFilePath(key)
	preset, err := pc.parsePreset(presetFile)
	if err != nil {
		return nil, err
	}

	preset.Key = key
	if preset.Name == "" {
		preset.Name = key
	}

	if err := pc.validatePreset(preset); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", presetFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[preset.Key] = preset

	return preset, nil
}

func (pc *PresetCache) GetPreset(key string) (*Preset, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	preset, ok := pc.cache[key]
	if !ok {
		return nil, NewNotFoundError("preset", key)
	}
	return preset, nil
}

// FindByURL returns the preset for a feed URL, or nil.
func (pc *PresetCache) FindByURL(feedURL string) *Preset {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	for _, preset := range pc.cache {
		if preset.URL == feedURL {
			return preset
		}
	}
	return nil
}

func (pc *PresetCache) GetPresets() map[string]*Preset {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	presetsCopy := make(map[string]*Preset, len(pc.cache))
	for k, v := range pc.cache {
		presetsCopy[k] = v
	}
	return presetsCopy
}

func (pc *PresetCache) GetEnabledPresets() map[string]*Preset {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	enabled := make(map[string]*Preset)
	for k, v := range pc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (pc *PresetCache) GetPresetCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

// ThresholdsFor returns the analysis thresholds of the preset for feedURL,
// or the defaults when no preset overrides them.
func (pc *PresetCache) ThresholdsFor(feedURL string) Thresholds {
	if preset := pc.FindByURL(feedURL); preset != nil {
		return preset.Thresholds.Merge()
	}
	return DefaultThresholds()
}

func (pc *PresetCache) parsePreset(presetFile string) (*Preset, error) {
	data, err := os.ReadFile(presetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var preset Preset
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if preset.Settings.CheckInterval == 0 {
		preset.Settings.CheckInterval = 3600
	}
	if preset.Settings.Timeout == 0 {
		preset.Settings.Timeout = 30
	}

	return &preset, nil
}

func (pc *PresetCache) validatePreset(preset *Preset) error {
	if preset == nil {
		return fmt.Errorf("preset is nil")
	}

	requiredFields := map[string]string{
		"preset key": preset.Key,
		"feed URL":   preset.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if err := ValidateFeedURL(preset.URL); err != nil {
		return err
	}

	nonNegativeFields := map[string]int{
		"check interval": preset.Settings.CheckInterval,
		"timeout":        preset.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if t := preset.Thresholds; t != nil && t.AvailabilityMinShare > 1 {
		return fmt.Errorf("availability min share must be between 0 and 1")
	}

	return nil
}

func (pc *PresetCache) getPresetFilePath(key string) string {
	return filepath.Join(pc.feedsDir, key+".yml")
}
