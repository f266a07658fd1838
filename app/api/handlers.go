package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
	"github.com/lysyi3m/feed-curator/app/tasks"
)

func NewHandler(sessions *feed.SessionStore, fetcher *feed.Fetcher, presetCache *feed.PresetCache,
	taxonomy *feed.Taxonomy, presetRepo database.PresetRepository, exclusionRepo database.ExclusionRepository,
	archive ArchiveInterface, scheduler tasks.TaskSchedulerInterface, metrics *Metrics) *Handler {
	return &Handler{
		sessions:      sessions,
		fetcher:       fetcher,
		presetCache:   presetCache,
		taxonomy:      taxonomy,
		presetRepo:    presetRepo,
		exclusionRepo: exclusionRepo,
		archive:       archive,
		scheduler:     scheduler,
		metrics:       metrics,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sessions":  h.sessions.Len(),
	}

	if h.presetCache != nil {
		health["loaded_presets"] = h.presetCache.GetPresetCount()
	}

	if presetCount, err := h.presetRepo.GetPresetCount(c.Request.Context()); err == nil {
		health["presets"] = presetCount
	}

	if h.taxonomy != nil {
		health["taxonomy_categories"] = h.taxonomy.Len()
	}

	health["archive_enabled"] = h.archive != nil

	if h.scheduler != nil {
		schedulerHealth := h.scheduler.Health()
		health["scheduler"] = schedulerHealth
		if schedulerHealth["status"] == "unhealthy" {
			health["status"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, health)
}

// FetchFeed proxies a feed document so the browser can load feeds from
// hosts without CORS headers.
func (h *Handler) FetchFeed(c *gin.Context) {
	feedURL := c.Query("url")

	data, err := h.fetcher.Run(c.Request.Context(), feedURL)
	if err != nil {
		writeError(c, "fetch_feed", err)
		return
	}

	c.Header("Cache-Control", "public, max-age=300, s-maxage=600")
	c.Data(http.StatusOK, "application/xml", data)
}

func (h *Handler) ListPresets(c *gin.Context) {
	presets, err := h.presetRepo.ListPresets(c.Request.Context())
	if err != nil {
		writeError(c, "list_presets", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (h *Handler) AddPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "add_preset", feed.NewValidationError("body", "invalid JSON body"))
		return
	}

	created, err := h.presetRepo.UpsertPreset(c.Request.Context(), database.Preset{
		FeedURL:    req.FeedURL,
		ClientName: req.ClientName,
		FeedName:   req.FeedName,
		Enabled:    true,
	})
	if err != nil {
		writeError(c, "add_preset", err)
		return
	}

	presets, err := h.presetRepo.ListPresets(c.Request.Context())
	if err != nil {
		writeError(c, "list_presets", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"created": created,
		"presets": presets,
	})
}

func (h *Handler) DeletePreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedURL == "" {
		writeError(c, "delete_preset", feed.NewValidationError("feedUrl", "feedUrl required"))
		return
	}

	deleted, err := h.presetRepo.DeletePreset(c.Request.Context(), req.FeedURL)
	if err != nil {
		writeError(c, "delete_preset", err)
		return
	}

	presets, err := h.presetRepo.ListPresets(c.Request.Context())
	if err != nil {
		writeError(c, "list_presets", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
		"presets": presets,
	})
}

// GetExclusions returns the current save for a feed, or its history when
// history=true.
func (h *Handler) GetExclusions(c *gin.Context) {
	feedURL := c.Query("feedUrl")
	if feedURL == "" {
		writeError(c, "get_exclusions", feed.NewValidationError("feedUrl", "feedUrl parameter required"))
		return
	}

	if c.Query("history") == "true" {
		history, err := h.exclusionRepo.LoadHistory(c.Request.Context(), feedURL)
		if err != nil {
			writeError(c, "load_history", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"feedUrl": feedURL, "history": history})
		return
	}

	record, err := h.exclusionRepo.LoadCurrent(c.Request.Context(), feedURL)
	if err != nil {
		writeError(c, "load_current", err)
		return
	}

	if record == nil {
		c.JSON(http.StatusOK, gin.H{
			"feedUrl":     feedURL,
			"excludedIds": []string{},
			"savedAt":     nil,
			"savedBy":     nil,
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) SaveExclusions(c *gin.Context) {
	var req saveExclusionsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedURL == "" || req.ExcludedIDs == nil {
		writeError(c, "save_exclusions", feed.NewValidationError("feedUrl", "feedUrl and excludedIds required"))
		return
	}

	record, err := h.exclusionRepo.Save(c.Request.Context(), feed.SaveRequest{
		FeedURL:       req.FeedURL,
		ExcludedIDs:   req.ExcludedIDs,
		ExcludedItems: req.ExcludedItems,
		AllFeedIDs:    req.AllFeedIDs,
		SavedBy:       req.SavedBy,
	})
	if err != nil {
		writeError(c, "save_exclusions", err)
		return
	}
	h.metrics.ExclusionsSaved()

	c.JSON(http.StatusOK, saveResponse(record))
}

func (h *Handler) LoadExclusionSave(c *gin.Context) {
	var req loadSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedURL == "" || req.SaveID == "" {
		writeError(c, "load_save", feed.NewValidationError("saveId", "feedUrl and saveId required"))
		return
	}

	record, err := h.exclusionRepo.LoadSave(c.Request.Context(), req.FeedURL, req.SaveID)
	if err != nil {
		writeError(c, "load_save", err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func saveResponse(record *database.SaveRecord) gin.H {
	return gin.H{
		"success": true,
		"id":      record.ID,
		"savedAt": record.SavedAt,
		"count":   record.Count,
		"message": fmt.Sprintf("Saved %d exclusions", record.Count),
	}
}
