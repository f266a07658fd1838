package cfg

type Cfg struct {
	// Storage configuration
	DBPath       string
	StoreBackend string
	RedisAddr    string

	// Export archive
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UsePathStyle    bool

	// Application configuration
	FeedsDir          string
	TaxonomyPath      string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	SitePassword      string
	SessionTTL        int
	FetchTimeout      int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// ArchiveEnabled reports whether exports can be archived to S3.
func (c *Cfg) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}
