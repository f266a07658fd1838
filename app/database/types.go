package database

import (
	"time"

	"github.com/lysyi3m/feed-curator/app/feed"
)

// HistoryLimit is the number of saves kept per feed.
const HistoryLimit = 50

// SaveRecord is one persisted exclusion save.
type SaveRecord struct {
	ID            string             `json:"id"`
	FeedURL       string             `json:"feedUrl"`
	ExcludedIDs   []string           `json:"excludedIds"`
	ExcludedItems []feed.ItemSummary `json:"excludedItems"`
	AllFeedIDs    []string           `json:"allFeedIds"`
	SavedAt       time.Time          `json:"savedAt"`
	SavedBy       string             `json:"savedBy"`
	Count         int                `json:"count"`
}

func (r *SaveRecord) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		ID:      r.ID,
		SavedAt: r.SavedAt,
		SavedBy: r.SavedBy,
		Count:   r.Count,
	}
}

type HistoryEntry struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"savedAt"`
	SavedBy string    `json:"savedBy"`
	Count   int       `json:"count"`
}

// Preset is a saved feed URL offered in the workspace feed picker.
type Preset struct {
	FeedURL       string     `json:"feedUrl"`
	Key           string     `json:"key,omitempty"`
	ClientName    string     `json:"clientName"`
	FeedName      string     `json:"feedName"`
	Enabled       bool       `json:"enabled"`
	AddedAt       time.Time  `json:"addedAt"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	ItemCount     int        `json:"itemCount"`
	MissingCount  int        `json:"missingCount"`
	LastError     string     `json:"lastError,omitempty"`
}

// PresetCheck is the outcome of one background check of a preset feed.
type PresetCheck struct {
	CheckedAt    time.Time
	ItemCount    int
	MissingCount int
	Error        string
}

func newSaveRecord(id string, req feed.SaveRequest, savedAt time.Time) *SaveRecord {
	savedBy := req.SavedBy
	if savedBy == "" {
		savedBy = "Unknown"
	}
	return &SaveRecord{
		ID:            id,
		FeedURL:       req.FeedURL,
		ExcludedIDs:   nonNil(req.ExcludedIDs),
		ExcludedItems: nonNil(req.ExcludedItems),
		AllFeedIDs:    nonNil(req.AllFeedIDs),
		SavedAt:       savedAt.UTC(),
		SavedBy:       savedBy,
		Count:         len(req.ExcludedIDs),
	}
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
