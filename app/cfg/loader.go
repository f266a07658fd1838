package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./data/feed-curator.db" description:"SQLite database file"`
	StoreBackend string `long:"store" env:"STORE_BACKEND" default:"sqlite" choice:"sqlite" choice:"redis" description:"Exclusion store backend"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address for the redis store backend"`

	// Export archive
	S3Bucket          string `long:"s3-bucket" env:"S3_BUCKET" description:"S3 bucket for archived exports (optional)"`
	S3Region          string `long:"s3-region" env:"S3_REGION" default:"us-east-1" description:"S3 region"`
	S3Endpoint        string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"Custom S3 endpoint (e.g., MinIO)"`
	S3AccessKeyID     string `long:"s3-access-key" env:"S3_ACCESS_KEY_ID" description:"S3 access key ID"`
	S3SecretAccessKey string `long:"s3-secret-key" env:"S3_SECRET_ACCESS_KEY" description:"S3 secret access key"`
	S3UsePathStyle    bool   `long:"s3-path-style" env:"S3_USE_PATH_STYLE" description:"Use path-style S3 addressing"`

	// Application configuration
	FeedsDir          string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing feed preset files"`
	TaxonomyPath      string `long:"taxonomy" env:"TAXONOMY_PATH" description:"Google product taxonomy file with ids (optional)"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://curator.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for feed checks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SitePassword      string `long:"site-password" env:"SITE_PASSWORD" default:"changeme" description:"Password for the web workspace"`
	SessionTTL        int    `long:"session-ttl" env:"SESSION_TTL" default:"86400" description:"Idle workspace session lifetime in seconds"`
	FetchTimeout      int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; Feed-Curator/1.0)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/London)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		StoreBackend:      raw.StoreBackend,
		RedisAddr:         raw.RedisAddr,
		S3Bucket:          raw.S3Bucket,
		S3Region:          raw.S3Region,
		S3Endpoint:        raw.S3Endpoint,
		S3AccessKeyID:     raw.S3AccessKeyID,
		S3SecretAccessKey: raw.S3SecretAccessKey,
		S3UsePathStyle:    raw.S3UsePathStyle,
		FeedsDir:          raw.FeedsDir,
		TaxonomyPath:      raw.TaxonomyPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		SitePassword:      raw.SitePassword,
		SessionTTL:        raw.SessionTTL,
		FetchTimeout:      raw.FetchTimeout,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
