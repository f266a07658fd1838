package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-curator/app/api"
	"github.com/lysyi3m/feed-curator/app/cfg"
	"github.com/lysyi3m/feed-curator/app/database"
	"github.com/lysyi3m/feed-curator/app/feed"
	"github.com/lysyi3m/feed-curator/app/storage"
	"github.com/lysyi3m/feed-curator/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Feed Curator", "version", appCfg.Version, "store", appCfg.StoreBackend)

	ctx := context.Background()

	db, err := database.NewConnection(ctx, appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database", "path", appCfg.DBPath)

	presetRepo := database.NewPresetRepository(db)

	var exclusionRepo database.ExclusionRepository = database.NewExclusionRepository(db)
	if appCfg.StoreBackend == cfg.StoreRedis {
		redisStore, err := database.NewRedisExclusionStore(ctx, appCfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "addr", appCfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		exclusionRepo = redisStore
		slog.Info("Connected to Redis", "addr", appCfg.RedisAddr)
	}

	presetCache := feed.NewPresetCache(appCfg.FeedsDir)
	if err := presetCache.Run(); err != nil {
		slog.Error("Failed to load feed presets", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed presets loaded", "dir", appCfg.FeedsDir, "count", presetCache.GetPresetCount())

	var taxonomy *feed.Taxonomy
	if appCfg.TaxonomyPath != "" {
		taxonomy = feed.NewTaxonomy()
		if err := taxonomy.LoadFile(appCfg.TaxonomyPath); err != nil {
			slog.Warn("Failed to load taxonomy, category ids will be shown as is", "path", appCfg.TaxonomyPath, "error", err)
			taxonomy = nil
		} else {
			slog.Info("Taxonomy loaded", "path", appCfg.TaxonomyPath, "categories", taxonomy.Len())
		}
	}

	var archive api.ArchiveInterface
	if appCfg.ArchiveEnabled() {
		s3Archive, err := storage.NewS3Archive(ctx, storage.S3Config{
			Endpoint:        appCfg.S3Endpoint,
			Region:          appCfg.S3Region,
			Bucket:          appCfg.S3Bucket,
			AccessKeyID:     appCfg.S3AccessKeyID,
			SecretAccessKey: appCfg.S3SecretAccessKey,
			UsePathStyle:    appCfg.S3UsePathStyle,
		})
		if err != nil {
			slog.Error("Failed to configure export archive", "bucket", appCfg.S3Bucket, "error", err)
			os.Exit(1)
		}
		archive = s3Archive
		slog.Info("Export archive enabled", "bucket", appCfg.S3Bucket)
	}

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent, fetchTimeout)
	baseURL := appCfg.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + appCfg.Port
	}

	parser := feed.NewParser()
	generator := feed.NewGenerator(baseURL, appCfg.Version)
	sessions := feed.NewSessionStore(parser, generator, presetCache.ThresholdsFor, time.Duration(appCfg.SessionTTL)*time.Second)

	scheduler := tasks.NewScheduler(presetCache, presetRepo, exclusionRepo, fetcher, parser, sessions)
	scheduler.Start()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	handler := api.NewHandler(sessions, fetcher, presetCache, taxonomy, presetRepo, exclusionRepo, archive, scheduler, api.NewMetrics())
	router := api.NewServer(handler, api.ServerOptions{
		SitePassword: appCfg.SitePassword,
		APIAccessKey: appCfg.APIAccessKey,
		Version:      appCfg.Version,
	})

	if appCfg.SitePassword == "changeme" {
		slog.Warn("SITE_PASSWORD is the default, set it before exposing the service")
	}

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: fetchTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Scheduler stopped")

	slog.Info("Feed Curator shutdown complete")
}
