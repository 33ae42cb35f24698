package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load("", "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.HTTP.TimeoutSeconds != 30 || cfg.HTTP.MaxAttempts != 3 {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Crawler.SearchBaseURL != "https://new.kenyalaw.org/judgments/" || cfg.Crawler.SearchMaxPages != 3 {
		t.Fatalf("unexpected search defaults: %+v", cfg.Crawler)
	}
	if cfg.Crawler.MinContentLength != 800 || cfg.Crawler.DocumentMarker != "/eng@" {
		t.Fatalf("unexpected enrichment defaults: %+v", cfg.Crawler)
	}
	if cfg.DB.BusyTimeout() != 5*time.Second {
		t.Fatalf("expected 5s busy timeout, got %v", cfg.DB.BusyTimeout())
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
http:
  user_agent: caselaw-test/2.0
  requests_per_minute: 30
  timeout_seconds: 45
  max_attempts: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
storage:
  data_dir: /var/lib/caselaw
db:
  path: /var/lib/caselaw/cases.db
  busy_timeout_ms: 2500
crawler:
  search_base_url: https://kenyalaw.example/search/
  search_max_pages: 2
  deep_default: true
  concurrency: 6
  queue_depth: 128
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := load(path, "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.HTTP.UserAgent != "caselaw-test/2.0" || cfg.HTTP.RequestsPerMinute != 30 {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if got := cfg.HTTP.Timeout(); got != 45*time.Second {
		t.Fatalf("expected timeout 45s, got %v", got)
	}
	if got := cfg.HTTP.RetryPolicy().MaxAttempts(); got != 4 {
		t.Fatalf("expected 4 fetch attempts, got %d", got)
	}
	if cfg.Storage.DataDir != "/var/lib/caselaw" || cfg.DB.Path != "/var/lib/caselaw/cases.db" {
		t.Fatalf("expected storage overrides to apply: %+v %+v", cfg.Storage, cfg.DB)
	}
	if cfg.DB.BusyTimeout() != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s busy timeout, got %v", cfg.DB.BusyTimeout())
	}
	if !cfg.Crawler.DeepDefault || cfg.Crawler.Concurrency != 6 || cfg.Crawler.QueueDepth != 128 {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.Crawler.PDFMaxPages != 20 {
		t.Fatalf("expected untouched default pdf_max_pages 20, got %d", cfg.Crawler.PDFMaxPages)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// Environment tests mutate process state and cannot run in parallel.
func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("CASELAW_CRAWLER_SEARCH_MAX_PAGES", "9")
	t.Setenv("REQUESTS_PER_MINUTE", "6")
	t.Setenv("DATABASE_PATH", "/tmp/legacy.db")
	t.Setenv("CASELAW_DB_PATH", "/tmp/prefixed.db")

	cfg, err := load("", "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Crawler.SearchMaxPages != 9 {
		t.Fatalf("expected prefixed env override, got %d", cfg.Crawler.SearchMaxPages)
	}
	if cfg.HTTP.RequestsPerMinute != 6 {
		t.Fatalf("expected legacy env override, got %d", cfg.HTTP.RequestsPerMinute)
	}
	if cfg.DB.Path != "/tmp/prefixed.db" {
		t.Fatalf("expected prefixed name to win over legacy, got %q", cfg.DB.Path)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	const key = "CASELAW_CRAWLER_PDF_MAX_PAGES"
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte(key+"=7\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	cfg, err := load("", envFile)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if cfg.Crawler.PDFMaxPages != 7 {
		t.Fatalf("expected .env value 7, got %d", cfg.Crawler.PDFMaxPages)
	}

	if _, err := load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("absent .env should be ignored, got %v", err)
	}
}

func TestDBRetryPolicyOnlyRetriesUnavailable(t *testing.T) {
	t.Parallel()

	policy := DBConfig{MaxAttempts: 3, BackoffInitialMs: 1, BackoffMaxMs: 2}.RetryPolicy()
	if !policy.ShouldRetry(crawler.ErrPersistenceUnavailable, 1) {
		t.Fatal("expected unavailable error to be retried")
	}
	if policy.ShouldRetry(errors.New("constraint failed"), 1) {
		t.Fatal("expected other errors not to be retried")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := load("", "")
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid rate", func(c *Config) { c.HTTP.RequestsPerMinute = 0 }, "http.requests_per_minute"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"invalid attempts", func(c *Config) { c.HTTP.MaxAttempts = 0 }, "http.max_attempts"},
		{"inverted backoff", func(c *Config) { c.HTTP.BackoffMaxMs = 1 }, "http backoff"},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = " " }, "storage.data_dir"},
		{"empty db path", func(c *Config) { c.DB.Path = "" }, "db.path"},
		{"invalid db attempts", func(c *Config) { c.DB.MaxAttempts = 0 }, "db.max_attempts"},
		{"non-http search base", func(c *Config) { c.Crawler.SearchBaseURL = "ftp://kenyalaw.example/" }, "crawler.search_base_url"},
		{"relative scheduled url", func(c *Config) { c.Crawler.ScheduledURL = "/judgments/" }, "crawler.scheduled_url"},
		{"invalid concurrency", func(c *Config) { c.Crawler.Concurrency = 0 }, "crawler.concurrency"},
		{"invalid queue depth", func(c *Config) { c.Crawler.QueueDepth = 0 }, "crawler.queue_depth"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
