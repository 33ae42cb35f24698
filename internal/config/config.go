// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. CASELAW_HTTP_REQUESTS_PER_MINUTE.
const EnvPrefix = "CASELAW"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HTTPConfig configures outbound requests, pacing and fetch retries.
type HTTPConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxAttempts       int    `mapstructure:"max_attempts"`
	BackoffInitialMs  int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs      int    `mapstructure:"backoff_max_ms"`
	HTTPProxy         string `mapstructure:"http_proxy"`
	HTTPSProxy        string `mapstructure:"https_proxy"`
}

// StorageConfig sets where fetched artifacts are written.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// DBConfig controls the embedded database and the detail retry wrapper.
type DBConfig struct {
	Path             string `mapstructure:"path"`
	BusyTimeoutMs    int    `mapstructure:"busy_timeout_ms"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// CrawlerConfig governs crawl traversal, enrichment and batch dispatch.
type CrawlerConfig struct {
	SearchBaseURL     string `mapstructure:"search_base_url"`
	SearchMaxPages    int    `mapstructure:"search_max_pages"`
	MinContentLength  int    `mapstructure:"min_content_length"`
	PDFMaxPages       int    `mapstructure:"pdf_max_pages"`
	DocumentMarker    string `mapstructure:"document_marker"`
	ScheduledURL      string `mapstructure:"scheduled_url"`
	ScheduledMaxPages int    `mapstructure:"scheduled_max_pages"`
	DeepDefault       bool   `mapstructure:"deep_default"`
	Concurrency       int    `mapstructure:"concurrency"`
	QueueDepth        int    `mapstructure:"queue_depth"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// legacyEnv maps keys to the bare environment names older deployments use.
var legacyEnv = map[string]string{
	"http.requests_per_minute": "REQUESTS_PER_MINUTE",
	"http.timeout_seconds":     "REQUEST_TIMEOUT_SECONDS",
	"http.user_agent":          "USER_AGENT",
	"http.http_proxy":          "HTTP_PROXY",
	"http.https_proxy":         "HTTPS_PROXY",
	"db.path":                  "DATABASE_PATH",
	"storage.data_dir":         "DATA_DIR",
}

// Load builds a Config from an optional .env file, an optional config file
// and the environment.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.user_agent", "CaselawCrawler/1.0")
	v.SetDefault("http.requests_per_minute", 15)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("http.backoff_max_ms", 10000)
	v.SetDefault("http.http_proxy", "")
	v.SetDefault("http.https_proxy", "")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("db.path", "data/caselaw.db")
	v.SetDefault("db.busy_timeout_ms", 5000)
	v.SetDefault("db.max_attempts", 3)
	v.SetDefault("db.backoff_initial_ms", 500)
	v.SetDefault("db.backoff_max_ms", 2000)
	v.SetDefault("crawler.search_base_url", "https://new.kenyalaw.org/judgments/")
	v.SetDefault("crawler.search_max_pages", 3)
	v.SetDefault("crawler.min_content_length", 800)
	v.SetDefault("crawler.pdf_max_pages", 20)
	v.SetDefault("crawler.document_marker", "/eng@")
	v.SetDefault("crawler.scheduled_url", "https://new.kenyalaw.org/judgments/")
	v.SetDefault("crawler.scheduled_max_pages", 5)
	v.SetDefault("crawler.deep_default", false)
	v.SetDefault("crawler.concurrency", 2)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// bindLegacyEnv lets the prefixed name win over the legacy one.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.RequestsPerMinute <= 0 {
		return fmt.Errorf("http.requests_per_minute must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.HTTP.BackoffInitialMs < 0 || c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		return fmt.Errorf("http backoff must satisfy 0 <= backoff_initial_ms <= backoff_max_ms")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must be set")
	}
	if c.DB.BusyTimeoutMs <= 0 {
		return fmt.Errorf("db.busy_timeout_ms must be > 0")
	}
	if c.DB.MaxAttempts <= 0 {
		return fmt.Errorf("db.max_attempts must be > 0")
	}
	if c.DB.BackoffInitialMs < 0 || c.DB.BackoffMaxMs < c.DB.BackoffInitialMs {
		return fmt.Errorf("db backoff must satisfy 0 <= backoff_initial_ms <= backoff_max_ms")
	}
	if !crawler.IsHTTPURL(c.Crawler.SearchBaseURL) {
		return fmt.Errorf("crawler.search_base_url must be an http(s) url")
	}
	if !crawler.IsHTTPURL(c.Crawler.ScheduledURL) {
		return fmt.Errorf("crawler.scheduled_url must be an http(s) url")
	}
	if c.Crawler.SearchMaxPages <= 0 || c.Crawler.PDFMaxPages <= 0 || c.Crawler.MinContentLength <= 0 {
		return fmt.Errorf("crawler.search_max_pages, pdf_max_pages and min_content_length must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.QueueDepth <= 0 {
		return fmt.Errorf("crawler.queue_depth must be > 0")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Timeout is the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryPolicy builds the fetch retry policy.
func (c HTTPConfig) RetryPolicy() *crawler.ExponentialRetryPolicy {
	return crawler.NewExponentialRetryPolicy(
		c.MaxAttempts,
		time.Duration(c.BackoffInitialMs)*time.Millisecond,
		time.Duration(c.BackoffMaxMs)*time.Millisecond,
	)
}

// BusyTimeout is how long a writer waits on a locked database.
func (c DBConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// RetryPolicy builds the detail retry policy, which only retries transient
// persistence failures.
func (c DBConfig) RetryPolicy() *crawler.ExponentialRetryPolicy {
	return crawler.NewExponentialRetryPolicy(
		c.MaxAttempts,
		time.Duration(c.BackoffInitialMs)*time.Millisecond,
		time.Duration(c.BackoffMaxMs)*time.Millisecond,
	).WithRetryable(func(err error) bool { return errors.Is(err, crawler.ErrPersistenceUnavailable) })
}
