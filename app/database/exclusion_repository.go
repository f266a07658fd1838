package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lysyi3m/feed-curator/app/feed"
)

var _ ExclusionRepository = (*SQLiteExclusionRepository)(nil)

type SQLiteExclusionRepository struct {
	db      *DB
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewExclusionRepository(db *DB) *SQLiteExclusionRepository {
	return &SQLiteExclusionRepository{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Save stores a save, makes it current and trims the feed's history, all in
// one transaction.
func (r *SQLiteExclusionRepository) Save(ctx context.Context, req feed.SaveRequest) (*SaveRecord, error) {
	if req.FeedURL == "" {
		return nil, feed.NewValidationError("feedUrl", "feedUrl and excludedIds required")
	}

	savedAt := r.now()
	record := newSaveRecord(r.newID(savedAt), req, savedAt)

	row, err := toDBSave(record)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO exclusion_saves (id, feed_key, feed_url, excluded_ids, excluded_items, all_feed_ids, saved_at, saved_by, item_count)
		VALUES (:id, :feed_key, :feed_url, :excluded_ids, :excluded_items, :all_feed_ids, :saved_at, :saved_by, :item_count)
	`, row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert save: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM exclusion_saves
		WHERE feed_key = ? AND id NOT IN (
			SELECT id FROM exclusion_saves WHERE feed_key = ? ORDER BY id DESC LIMIT ?
		)
	`, row.FeedKey, row.FeedKey, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to trim save history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit save: %w", err)
	}

	return record, nil
}

// LoadCurrent returns the newest save of a feed, or nil when it has none.
func (r *SQLiteExclusionRepository) LoadCurrent(ctx context.Context, feedURL string) (*SaveRecord, error) {
	var row dbSave
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM exclusion_saves WHERE feed_key = ? ORDER BY id DESC LIMIT 1
	`, FeedKey(feedURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current exclusions: %w", err)
	}

	return row.toRecord()
}

func (r *SQLiteExclusionRepository) LoadHistory(ctx context.Context, feedURL string) ([]HistoryEntry, error) {
	var rows []dbSave
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM exclusion_saves WHERE feed_key = ? ORDER BY id DESC LIMIT ?
	`, FeedKey(feedURL), HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load save history: %w", err)
	}

	history := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, HistoryEntry{
			ID:      row.ID,
			SavedAt: parseTime(row.SavedAt),
			SavedBy: row.SavedBy,
			Count:   row.Count,
		})
	}
	return history, nil
}

func (r *SQLiteExclusionRepository) LoadSave(ctx context.Context, feedURL, saveID string) (*SaveRecord, error) {
	var row dbSave
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM exclusion_saves WHERE feed_key = ? AND id = ?
	`, FeedKey(feedURL), saveID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feed.NewNotFoundError("save", saveID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load save: %w", err)
	}

	return row.toRecord()
}

func (r *SQLiteExclusionRepository) newID(at time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), r.entropy).String()
}

type dbSave struct {
	ID            string `db:"id"`
	FeedKey       string `db:"feed_key"`
	FeedURL       string `db:"feed_url"`
	ExcludedIDs   string `db:"excluded_ids"`
	ExcludedItems string `db:"excluded_items"`
	AllFeedIDs    string `db:"all_feed_ids"`
	SavedAt       string `db:"saved_at"`
	SavedBy       string `db:"saved_by"`
	Count         int    `db:"item_count"`
}

func toDBSave(record *SaveRecord) (dbSave, error) {
	excludedIDs, err := json.Marshal(record.ExcludedIDs)
	if err != nil {
		return dbSave{}, fmt.Errorf("failed to encode excluded ids: %w", err)
	}
	excludedItems, err := json.Marshal(record.ExcludedItems)
	if err != nil {
		return dbSave{}, fmt.Errorf("failed to encode excluded items: %w", err)
	}
	allFeedIDs, err := json.Marshal(record.AllFeedIDs)
	if err != nil {
		return dbSave{}, fmt.Errorf("failed to encode feed ids: %w", err)
	}

	return dbSave{
		ID:            record.ID,
		FeedKey:       FeedKey(record.FeedURL),
		FeedURL:       record.FeedURL,
		ExcludedIDs:   string(excludedIDs),
		ExcludedItems: string(excludedItems),
		AllFeedIDs:    string(allFeedIDs),
		SavedAt:       formatTime(record.SavedAt),
		SavedBy:       record.SavedBy,
		Count:         record.Count,
	}, nil
}

func (row dbSave) toRecord() (*SaveRecord, error) {
	record := &SaveRecord{
		ID:      row.ID,
		FeedURL: row.FeedURL,
		SavedAt: parseTime(row.SavedAt),
		SavedBy: row.SavedBy,
		Count:   row.Count,
	}

	if err := json.Unmarshal([]byte(row.ExcludedIDs), &record.ExcludedIDs); err != nil {
		return nil, fmt.Errorf("failed to decode excluded ids: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ExcludedItems), &record.ExcludedItems); err != nil {
		return nil, fmt.Errorf("failed to decode excluded items: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AllFeedIDs), &record.AllFeedIDs); err != nil {
		return nil, fmt.Errorf("failed to decode feed ids: %w", err)
	}

	return record, nil
}
