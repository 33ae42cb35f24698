// Package app builds the crawler's long-lived services from configuration
// and tears them down again.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/clock/system"
	"github.com/JakeFAU/caselaw-crawler/internal/config"
	"github.com/JakeFAU/caselaw-crawler/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/caselaw-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/caselaw-crawler/internal/hash/sha256"
	"github.com/JakeFAU/caselaw-crawler/internal/id/uuid"
	"github.com/JakeFAU/caselaw-crawler/internal/lock"
	"github.com/JakeFAU/caselaw-crawler/internal/logging"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
	"github.com/JakeFAU/caselaw-crawler/internal/pdftext"
	"github.com/JakeFAU/caselaw-crawler/internal/policy/ratelimit"
	queueMemory "github.com/JakeFAU/caselaw-crawler/internal/queue/memory"
	"github.com/JakeFAU/caselaw-crawler/internal/scraper"
	localstorage "github.com/JakeFAU/caselaw-crawler/internal/storage/local"
	"github.com/JakeFAU/caselaw-crawler/internal/storage/sqlite"
)

// App contains the application's dependencies.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	scraper  *scraper.Scraper
	dispatch *dispatcher.Dispatcher
	queue    *queueMemory.Queue
	store    *sqlite.Store
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Scraper returns the crawl orchestrator.
func (a *App) Scraper() *scraper.Scraper { return a.scraper }

// Dispatcher returns the batch worker pool.
func (a *App) Dispatcher() *dispatcher.Dispatcher { return a.dispatch }

// Store returns the case database.
func (a *App) Store() *sqlite.Store { return a.store }

// Build creates the application's dependencies. A non-nil logger replaces
// the one built from cfg.Logging.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		built, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		logger = built
		zap.ReplaceGlobals(logger)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	a.logger.Info("building application dependencies",
		zap.Int("requests_per_minute", cfg.HTTP.RequestsPerMinute),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.String("db_path", cfg.DB.Path),
	)

	pacer := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.HTTP.RequestsPerMinute})
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout(),
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
	}, pacer, cfg.HTTP.RetryPolicy(), logger)
	if err != nil {
		return nil, fmt.Errorf("fetcher init failed: %w", err)
	}

	assets, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.DataDir}, sha256.New())
	if err != nil {
		return nil, fmt.Errorf("asset store init failed: %w", err)
	}

	store, err := sqlite.Open(sqlite.Config{
		Path:        cfg.DB.Path,
		BusyTimeout: cfg.DB.BusyTimeout(),
	}, lock.NewWriter(), logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	a.store = store

	a.scraper = scraper.New(
		fetcher,
		assets,
		store,
		pdftext.New(logger),
		lock.NewKeyed(),
		cfg.DB.RetryPolicy(),
		system.New(),
		uuid.New("run"),
		scraper.Config{
			SearchBaseURL:    cfg.Crawler.SearchBaseURL,
			SearchMaxPages:   cfg.Crawler.SearchMaxPages,
			MinContentLength: cfg.Crawler.MinContentLength,
			PDFMaxPages:      cfg.Crawler.PDFMaxPages,
			DocumentMarker:   cfg.Crawler.DocumentMarker,
		},
		logger,
	)

	a.queue = queueMemory.NewQueue(cfg.Crawler.QueueDepth)
	a.dispatch = dispatcher.New(
		a.queue,
		a.scraper,
		uuid.New("job"),
		dispatcher.Config{Concurrency: cfg.Crawler.Concurrency},
		logger,
	)

	if err := ctx.Err(); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.logger.Info("application dependencies ready")
	return a, nil
}

// Close releases the queue and database and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if a.queue != nil {
		a.queue.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	// Sync fails on terminals; it is not worth reporting.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
