package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/lysyi3m/feed-curator/app/feed"
)

var _ PresetRepository = (*PresetRepositoryImpl)(nil)

type PresetRepositoryImpl struct {
	db  *DB
	now func() time.Time
}

func NewPresetRepository(db *DB) *PresetRepositoryImpl {
	return &PresetRepositoryImpl{db: db, now: time.Now}
}

func (r *PresetRepositoryImpl) ListPresets(ctx context.Context) ([]Preset, error) {
	var rows []dbPreset
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM feed_presets ORDER BY client_name, feed_name, feed_url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}

	return lo.Map(rows, func(row dbPreset, _ int) Preset { return row.toPreset() }), nil
}

func (r *PresetRepositoryImpl) GetPreset(ctx context.Context, feedURL string) (*Preset, error) {
	var row dbPreset
	err := r.db.GetContext(ctx, &row, `SELECT * FROM feed_presets WHERE feed_url = ?`, feedURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feed.NewNotFoundError("preset", feedURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}

	preset := row.toPreset()
	return &preset, nil
}

func (r *PresetRepositoryImpl) GetPresetCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM feed_presets`); err != nil {
		return 0, fmt.Errorf("failed to count presets: %w", err)
	}
	return count, nil
}

// UpsertPreset adds a preset or updates the one with the same feed URL.
// It reports whether a new preset was created.
func (r *PresetRepositoryImpl) UpsertPreset(ctx context.Context, preset Preset) (bool, error) {
	if preset.ClientName == "" || preset.FeedName == "" || preset.FeedURL == "" {
		return false, feed.NewValidationError("preset", "clientName, feedName, and feedUrl required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM feed_presets WHERE feed_url = ?`, preset.FeedURL); err != nil {
		return false, fmt.Errorf("failed to check existing preset: %w", err)
	}

	now := formatTime(r.now())
	if existing > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE feed_presets
			SET preset_key = ?, client_name = ?, feed_name = ?, enabled = ?, updated_at = ?
			WHERE feed_url = ?
		`, preset.Key, preset.ClientName, preset.FeedName, preset.Enabled, now, preset.FeedURL)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO feed_presets (feed_url, preset_key, client_name, feed_name, enabled, added_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, preset.FeedURL, preset.Key, preset.ClientName, preset.FeedName, preset.Enabled, now)
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert preset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit preset: %w", err)
	}

	return existing == 0, nil
}

func (r *PresetRepositoryImpl) DeletePreset(ctx context.Context, feedURL string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feed_presets WHERE feed_url = ?`, feedURL)
	if err != nil {
		return false, fmt.Errorf("failed to delete preset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PresetRepositoryImpl) UpdatePresetCheck(ctx context.Context, feedURL string, check PresetCheck) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE feed_presets
		SET last_checked_at = ?, item_count = ?, missing_count = ?, last_error = ?
		WHERE feed_url = ?
	`, formatTime(check.CheckedAt), check.ItemCount, check.MissingCount, check.Error, feedURL)
	if err != nil {
		return fmt.Errorf("failed to update preset check: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return feed.NewNotFoundError("preset", feedURL)
	}
	return nil
}

type dbPreset struct {
	FeedURL       string         `db:"feed_url"`
	Key           string         `db:"preset_key"`
	ClientName    string         `db:"client_name"`
	FeedName      string         `db:"feed_name"`
	Enabled       bool           `db:"enabled"`
	AddedAt       string         `db:"added_at"`
	UpdatedAt     sql.NullString `db:"updated_at"`
	LastCheckedAt sql.NullString `db:"last_checked_at"`
	ItemCount     int            `db:"item_count"`
	MissingCount  int            `db:"missing_count"`
	LastError     string         `db:"last_error"`
}

func (row dbPreset) toPreset() Preset {
	return Preset{
		FeedURL:       row.FeedURL,
		Key:           row.Key,
		ClientName:    row.ClientName,
		FeedName:      row.FeedName,
		Enabled:       row.Enabled,
		AddedAt:       parseTime(row.AddedAt),
		UpdatedAt:     nullTime(row.UpdatedAt),
		LastCheckedAt: nullTime(row.LastCheckedAt),
		ItemCount:     row.ItemCount,
		MissingCount:  row.MissingCount,
		LastError:     row.LastError,
	}
}

func nullTime(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	return &t
}
