package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ServerOptions struct {
	SitePassword string
	APIAccessKey string
	Version      string
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts ServerOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())
	r.Use(handler.metrics.Middleware())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Workspace-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.MaxMultipartMemory = 8 << 20

	setupRoutes(r, handler, NewGate(opts.SitePassword, opts.APIAccessKey), opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, gate *Gate, opts ServerOptions) {
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", handler.metrics.Handler())

	r.GET("/login", gate.LoginPage)
	r.POST("/login", gate.Login)
	r.GET("/logout", gate.Logout)
	r.POST("/logout", gate.Logout)

	api := r.Group("/api")
	api.Use(gate.Middleware())
	{
		api.GET("/fetch-feed", handler.FetchFeed)

		api.GET("/feed-presets", handler.ListPresets)
		api.POST("/feed-presets", handler.AddPreset)
		api.DELETE("/feed-presets", handler.DeletePreset)

		api.GET("/exclusions", handler.GetExclusions)
		api.POST("/exclusions", handler.SaveExclusions)
		api.PUT("/exclusions", handler.LoadExclusionSave)

		workspace := api.Group("/workspace")
		workspace.GET("", handler.GetWorkspace)
		workspace.POST("/feed", handler.LoadFeed)
		workspace.GET("/items", handler.ListItems)
		workspace.GET("/items/:id/variants", handler.GetVariants)
		workspace.POST("/items/:id/exclude", handler.ExcludeItem)
		workspace.POST("/items/:id/include", handler.IncludeItem)
		workspace.POST("/exclusions/bulk", handler.BulkUpdate)
		workspace.DELETE("/exclusions", handler.ClearExclusions)
		workspace.POST("/import", handler.ImportExclusions)
		workspace.POST("/save", handler.SaveWorkspace)
		workspace.POST("/load", handler.LoadWorkspaceSave)
		workspace.GET("/missing", handler.GetMissing)
		workspace.GET("/rules", handler.GetRules)
		workspace.GET("/export", handler.Export)
	}

	if opts.APIAccessKey != "" {
		slog.Info("API key authentication enabled")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Feed Curator",
			"version":     opts.Version,
			"description": "Shopping feed viewer with exclusion management and smart rule suggestions",
			"endpoints": map[string]string{
				"login":     "/login",
				"health":    "/health",
				"metrics":   "/metrics",
				"fetch":     "/api/fetch-feed?url=<feed url>",
				"presets":   "/api/feed-presets",
				"saves":     "/api/exclusions?feedUrl=<feed url>[&history=true]",
				"workspace": "/api/workspace",
				"export":    "/api/workspace/export?format=csv|excel|json|rules|xml",
			},
			"auth": map[string]interface{}{
				"cookie":      sessionCookie,
				"api_key":     opts.APIAccessKey != "",
				"api_headers": []string{"X-API-Key", "Authorization: Bearer <key>"},
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
