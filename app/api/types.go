package api

import (
	"context"
	"time"

	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
	"github.com/lysyi3m/feed-curator/app/storage"
	"github.com/lysyi3m/feed-curator/app/tasks"
)

type ArchiveInterface interface {
	Store(ctx context.Context, feedKey, filename string, data []byte, contentType string, at time.Time) (string, error)
	URL(key string) string
}

var _ ArchiveInterface = (*storage.S3Archive)(nil)

type Handler struct {
	sessions      *feed.SessionStore
	fetcher       *feed.Fetcher
	presetCache   *feed.PresetCache
	taxonomy      *feed.Taxonomy
	presetRepo    database.PresetRepository
	exclusionRepo database.ExclusionRepository
	archive       ArchiveInterface
	scheduler     tasks.TaskSchedulerInterface
	metrics       *Metrics
}

type presetRequest struct {
	ClientName string `json:"clientName"`
	FeedName   string `json:"feedName"`
	FeedURL    string `json:"feedUrl"`
}

type saveExclusionsRequest struct {
	FeedURL       string             `json:"feedUrl"`
	ExcludedIDs   []string           `json:"excludedIds"`
	ExcludedItems []feed.ItemSummary `json:"excludedItems"`
	AllFeedIDs    []string           `json:"allFeedIds"`
	SavedBy       string             `json:"savedBy"`
}

type loadSaveRequest struct {
	FeedURL string `json:"feedUrl"`
	SaveID  string `json:"saveId"`
}

type loadFeedRequest struct {
	URL string `json:"url" form:"url"`
}

type excludeRequest struct {
	Scope string `json:"scope" form:"scope"`
}

type bulkRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

type workspaceSaveRequest struct {
	SavedBy string `json:"savedBy"`
}

type workspaceLoadRequest struct {
	SaveID string `json:"saveId"`
}

// itemView is an item as listed in the workspace, with its exclusion state
// and the readable Google category path.
type itemView struct {
	feed.ListedItem
	GoogleCategoryLabel string `json:"googleCategoryLabel,omitempty"`
}
