package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
	"github.com/samber/lo"
)

const maxUploadSize = feed.MaxFeedSize

func (h *Handler) session(c *gin.Context) *feed.Session {
	return h.sessions.Get(workspaceToken(c))
}

func (h *Handler) GetWorkspace(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).Stats())
}

// LoadFeed loads a feed into the workspace either from an uploaded file or
// by fetching the given URL.
func (h *Handler) LoadFeed(c *gin.Context) {
	session := h.session(c)

	if file, err := c.FormFile("file"); err == nil {
		data, err := readUpload(file)
		if err != nil {
			writeError(c, "load_feed_upload", err)
			return
		}

		feedURL := c.PostForm("feedUrl")
		if feedURL == "" {
			feedURL = "upload:" + file.Filename
		}

		result, err := session.LoadDocument(feedURL, data)
		h.metrics.FeedLoaded("upload", err)
		if err != nil {
			writeError(c, "load_feed_upload", err)
			return
		}

		slog.Info("Feed loaded", "source", "upload", "file", file.Filename, "items", result.ItemCount, "skipped", result.Skipped)
		c.JSON(http.StatusOK, result)
		return
	}

	var req loadFeedRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, "load_feed", feed.NewValidationError("body", "invalid request body"))
		return
	}

	data, err := h.fetcher.Run(c.Request.Context(), req.URL)
	if err != nil {
		h.metrics.FeedLoaded("url", err)
		writeError(c, "load_feed", err)
		return
	}

	result, err := session.LoadDocument(req.URL, data)
	h.metrics.FeedLoaded("url", err)
	if err != nil {
		writeError(c, "load_feed", err)
		return
	}

	slog.Info("Feed loaded", "source", "url", "url", req.URL, "items", result.ItemCount, "skipped", result.Skipped)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListItems(c *gin.Context) {
	var opts feed.FilterOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		writeError(c, "list_items", feed.NewValidationError("query", err.Error()))
		return
	}

	listing, err := h.session(c).Items(opts)
	if err != nil {
		writeError(c, "list_items", err)
		return
	}

	views := lo.Map(listing.Items, func(item feed.ListedItem, _ int) itemView {
		view := itemView{ListedItem: item}
		if label := h.taxonomy.Label(item.GoogleProductCategory); label != item.GoogleProductCategory {
			view.GoogleCategoryLabel = label
		}
		return view
	})

	c.JSON(http.StatusOK, gin.H{
		"items":      views,
		"total":      len(views),
		"categories": listing.Categories,
	})
}

func (h *Handler) GetVariants(c *gin.Context) {
	id := c.Param("id")

	variants, err := h.session(c).Variants(id)
	if err != nil {
		writeError(c, "get_variants", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"variants": variants,
		"choices":  variants.Choices(),
	})
}

// ExcludeItem excludes an item. Without a scope, an item with variants is
// answered with 409 and the scopes to choose from.
func (h *Handler) ExcludeItem(c *gin.Context) {
	id := c.Param("id")

	var req excludeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			writeError(c, "exclude_item", feed.NewValidationError("body", "invalid request body"))
			return
		}
	}
	if req.Scope == "" {
		req.Scope = c.Query("scope")
	}

	session := h.session(c)

	var (
		result feed.ExcludeResult
		err    error
	)
	if req.Scope == "" {
		result, err = session.Exclude(id, feed.AskScope)
	} else {
		var scope feed.ExclusionScope
		scope, err = feed.ParseScope(req.Scope)
		if err == nil {
			result, err = session.ExcludeScope(id, scope)
		}
	}

	if scopeErr, ok := feed.IsScopeRequired(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":    scopeErr.Error(),
			"id":       scopeErr.ItemID,
			"choices":  scopeErr.Variants.Choices(),
			"variants": scopeErr.Variants,
		})
		return
	}
	if err != nil {
		writeError(c, "exclude_item", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) IncludeItem(c *gin.Context) {
	id := c.Param("id")

	included, err := h.session(c).Include(id)
	if err != nil {
		writeError(c, "include_item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "included": included})
}

func (h *Handler) BulkUpdate(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "bulk_update", feed.NewValidationError("body", "invalid JSON body"))
		return
	}

	session := h.session(c)

	switch req.Action {
	case "exclude":
		result, err := session.BulkExclude(req.IDs)
		if err != nil {
			writeError(c, "bulk_exclude", err)
			return
		}
		c.JSON(http.StatusOK, result)
	case "include":
		c.JSON(http.StatusOK, session.BulkInclude(req.IDs))
	default:
		writeError(c, "bulk_update", feed.NewValidationError("action", fmt.Sprintf("unknown action '%s' (expected exclude or include)", req.Action)))
	}
}

func (h *Handler) ClearExclusions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": h.session(c).Clear()})
}

func (h *Handler) ImportExclusions(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, "import", feed.NewValidationError("file", "file upload required"))
		return
	}

	data, err := readUpload(file)
	if err != nil {
		writeError(c, "import", err)
		return
	}

	result, err := h.session(c).Import(file.Filename, data)
	if err != nil {
		writeError(c, "import", err)
		return
	}

	slog.Info("Exclusions imported", "file", file.Filename, "imported", result.Imported, "matched", result.Matched, "unmatched", len(result.Unmatched))
	c.JSON(http.StatusOK, gin.H{
		"imported":  result.Imported,
		"matched":   result.Matched,
		"unmatched": result.Unmatched,
		"message":   result.String(),
	})
}

func (h *Handler) SaveWorkspace(c *gin.Context) {
	var req workspaceSaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, "save_workspace", feed.NewValidationError("body", "invalid JSON body"))
			return
		}
	}

	saveReq, err := h.session(c).SaveRequest(req.SavedBy)
	if err != nil {
		writeError(c, "save_workspace", err)
		return
	}

	record, err := h.exclusionRepo.Save(c.Request.Context(), saveReq)
	if err != nil {
		writeError(c, "save_workspace", err)
		return
	}
	h.metrics.ExclusionsSaved()

	slog.Info("Exclusions saved", "feed", record.FeedURL, "id", record.ID, "count", record.Count, "saved_by", record.SavedBy)
	c.JSON(http.StatusOK, saveResponse(record))
}

// LoadWorkspaceSave applies the current save of the loaded feed, or a
// historical one when saveId is given.
func (h *Handler) LoadWorkspaceSave(c *gin.Context) {
	var req workspaceLoadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, "load_workspace_save", feed.NewValidationError("body", "invalid JSON body"))
			return
		}
	}

	session := h.session(c)
	feedURL := session.FeedURL()
	if feedURL == "" {
		writeError(c, "load_workspace_save", feed.ErrNoFeedLoaded)
		return
	}

	var (
		record *database.SaveRecord
		err    error
	)
	if req.SaveID != "" {
		record, err = h.exclusionRepo.LoadSave(c.Request.Context(), feedURL, req.SaveID)
	} else {
		record, err = h.exclusionRepo.LoadCurrent(c.Request.Context(), feedURL)
		if err == nil && record == nil {
			err = feed.NewNotFoundError("save", "current")
		}
	}
	if err != nil {
		writeError(c, "load_workspace_save", err)
		return
	}

	result := session.ApplySave(record.ExcludedIDs, record.ExcludedItems)
	c.JSON(http.StatusOK, gin.H{
		"id":      record.ID,
		"savedAt": record.SavedAt,
		"savedBy": record.SavedBy,
		"loaded":  result.Loaded,
		"missing": result.Missing,
	})
}

func (h *Handler) GetMissing(c *gin.Context) {
	missing := h.session(c).Missing()
	c.JSON(http.StatusOK, gin.H{"missing": missing, "count": len(missing)})
}

func (h *Handler) GetRules(c *gin.Context) {
	analysis, rules, err := h.session(c).Analyze()
	if err != nil {
		writeError(c, "analyze", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analysis": analysis, "rules": rules})
}

// Export renders the workspace in the requested format as a download. With
// archive=true the file is also stored in the export archive.
func (h *Handler) Export(c *gin.Context) {
	format, err := feed.ParseExportFormat(c.DefaultQuery("format", string(feed.FormatCSV)))
	if err != nil {
		writeError(c, "export", err)
		return
	}

	archive := c.Query("archive") == "true"
	if archive && h.archive == nil {
		writeError(c, "export", feed.NewValidationError("archive", "export archive is not configured"))
		return
	}

	session := h.session(c)
	now := time.Now()

	data, err := session.Export(format, now)
	if err != nil {
		writeError(c, "export", err)
		return
	}
	h.metrics.Exported(string(format))

	filename := format.Filename(now)

	if archive {
		key, err := h.archive.Store(c.Request.Context(), database.FeedKey(session.FeedURL()), filename, data, format.ContentType(), now)
		if err != nil {
			writeError(c, "export_archive", err)
			return
		}
		slog.Info("Export archived", "format", string(format), "key", key)
		c.Header("X-Archive-URL", h.archive.URL(key))
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > maxUploadSize {
		return nil, feed.NewValidationError("file", fmt.Sprintf("file exceeds %d bytes", maxUploadSize))
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
