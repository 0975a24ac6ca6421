package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load([]string{"--jwt-secret", "s3cret"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Store != StoreRedis {
		t.Errorf("Expected store '%s', got '%s'", StoreRedis, cfg.Store)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.OpenAITimeout != 90*time.Second {
		t.Errorf("Expected OpenAI timeout 90s, got %v", cfg.OpenAITimeout)
	}
	if cfg.SocialFeedTimeout != 30*time.Second {
		t.Errorf("Expected social feed timeout 30s, got %v", cfg.SocialFeedTimeout)
	}
	if cfg.ReporterConcurrency != 1 {
		t.Errorf("Expected reporter concurrency 1, got %d", cfg.ReporterConcurrency)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("Expected JWT TTL 24h, got %v", cfg.JWTTTL)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("Expected JWT secret 's3cret', got '%s'", cfg.JWTSecret)
	}
	if cfg.JobTimeout != 10*time.Minute {
		t.Errorf("Expected job timeout 10m, got %v", cfg.JobTimeout)
	}
	if cfg.JobLease != 30*time.Minute {
		t.Errorf("Expected job lease 30m, got %v", cfg.JobLease)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load([]string{
		"--jwt-secret", "s3cret",
		"--store", "sqlite",
		"--sqlite-path", "/tmp/news.db",
		"--reporter-concurrency", "0",
		"--cron-secret", "cron",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Store != StoreSQLite {
		t.Errorf("Expected store '%s', got '%s'", StoreSQLite, cfg.Store)
	}
	if cfg.SQLitePath != "/tmp/news.db" {
		t.Errorf("Expected sqlite path '/tmp/news.db', got '%s'", cfg.SQLitePath)
	}
	if cfg.ReporterConcurrency != 1 {
		t.Errorf("Expected reporter concurrency clamped to 1, got %d", cfg.ReporterConcurrency)
	}
	if cfg.CronSecret != "cron" {
		t.Errorf("Expected cron secret 'cron', got '%s'", cfg.CronSecret)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	_, err := load([]string{"--jwt-secret", "s3cret", "--store", "mongo"})
	if err == nil {
		t.Error("Expected error for unsupported store")
	}
}

func TestLoadRejectsLeaseShorterThanTimeout(t *testing.T) {
	_, err := load([]string{"--jwt-secret", "s3cret", "--job-timeout", "20m", "--job-lease", "15m"})
	if err == nil {
		t.Error("Expected error when the job lease does not exceed the job timeout")
	}
}
