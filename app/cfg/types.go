package cfg

import "time"

type Cfg struct {
	// Storage configuration
	Store      string
	RedisURL   string
	SQLitePath string

	// Generation configuration
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIModel             string
	OpenAITimeout           time.Duration
	OpenAIRequestsPerMinute int
	SocialFeedURL           string
	SocialFeedTimeout       time.Duration
	ReporterConcurrency     int

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	JobTimeout        time.Duration
	JobLease          time.Duration
	SeedFile          string

	// Authentication
	JWTSecret  string
	JWTTTL     time.Duration
	CronSecret string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
