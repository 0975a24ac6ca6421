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
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Store      string `long:"store" env:"STORE" default:"redis" choice:"redis" choice:"sqlite" description:"Storage backend"`
	RedisURL   string `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis connection URL"`
	SQLitePath string `long:"sqlite-path" env:"SQLITE_PATH" default:"./newsroom.db" description:"SQLite database file (when --store=sqlite)"`

	// Generation configuration
	OpenAIAPIKey            string        `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (generation falls back to canned content when empty)"`
	OpenAIBaseURL           string        `long:"openai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	OpenAIModel             string        `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Model used when the editor has none configured"`
	OpenAITimeout           time.Duration `long:"openai-timeout" env:"OPENAI_TIMEOUT" default:"90s" description:"Timeout for a single completion request"`
	OpenAIRequestsPerMinute int           `long:"openai-rpm" env:"OPENAI_REQUESTS_PER_MINUTE" default:"60" description:"Maximum completion requests per minute"`
	SocialFeedURL           string        `long:"social-feed-url" env:"SOCIAL_FEED_URL" description:"RSS/Atom/JSON feed of social posts"`
	SocialFeedTimeout       time.Duration `long:"social-feed-timeout" env:"SOCIAL_FEED_TIMEOUT" default:"30s" description:"Timeout for fetching the social feed"`
	ReporterConcurrency     int           `long:"reporter-concurrency" env:"REPORTER_CONCURRENCY" default:"1" description:"Reporters generated in parallel"`

	// Application configuration
	Port              string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string        `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	WorkerCount       int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for scheduled jobs"`
	SchedulerInterval int           `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds (0 disables the internal scheduler)"`
	JobTimeout        time.Duration `long:"job-timeout" env:"JOB_TIMEOUT" default:"10m" description:"Maximum duration of a single job run"`
	JobLease          time.Duration `long:"job-lease" env:"JOB_LEASE" default:"30m" description:"Age after which a job left running by a dead process may be reclaimed"`
	SeedFile          string        `long:"seed-file" env:"SEED_FILE" description:"YAML file with editor defaults and reporters"`

	// Authentication
	JWTSecret  string        `long:"jwt-secret" env:"JWT_SECRET" description:"Secret for signing access tokens (required)" required:"true"`
	JWTTTL     time.Duration `long:"jwt-ttl" env:"JWT_TTL" default:"24h" description:"Access token lifetime"`
	CronSecret string        `long:"cron-secret" env:"CRON_SECRET" description:"Bearer secret for /cron endpoints (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsroom/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Store:                   raw.Store,
		RedisURL:                raw.RedisURL,
		SQLitePath:              raw.SQLitePath,
		OpenAIAPIKey:            raw.OpenAIAPIKey,
		OpenAIBaseURL:           raw.OpenAIBaseURL,
		OpenAIModel:             raw.OpenAIModel,
		OpenAITimeout:           raw.OpenAITimeout,
		OpenAIRequestsPerMinute: raw.OpenAIRequestsPerMinute,
		SocialFeedURL:           raw.SocialFeedURL,
		SocialFeedTimeout:       raw.SocialFeedTimeout,
		ReporterConcurrency:     max(raw.ReporterConcurrency, 1),
		Port:                    raw.Port,
		BaseUrl:                 raw.BaseUrl,
		WorkerCount:             max(raw.WorkerCount, 1),
		SchedulerInterval:       raw.SchedulerInterval,
		JobTimeout:              raw.JobTimeout,
		JobLease:                raw.JobLease,
		SeedFile:                raw.SeedFile,
		JWTSecret:               raw.JWTSecret,
		JWTTTL:                  raw.JWTTTL,
		CronSecret:              raw.CronSecret,
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	if cfg.JobTimeout <= 0 {
		return nil, fmt.Errorf("job timeout must be positive, got %v", cfg.JobTimeout)
	}
	if cfg.JobLease <= cfg.JobTimeout {
		return nil, fmt.Errorf("job lease (%v) must be longer than the job timeout (%v)", cfg.JobLease, cfg.JobTimeout)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
