// Package scraper drives crawls of the case-law site: it routes fetched pages
// to the listing or detail flow, enriches case text from XML and PDF
// renditions, and reconciles parsed cases with the store.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/extract"
	"github.com/JakeFAU/caselaw-crawler/internal/lock"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// ErrInvalidURL is returned for targets that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("url must be an absolute http(s) url")

// searchParams are the query parameter names tried by SearchAndScrape.
var searchParams = []string{"q", "search", "query"}

// Config controls Scraper behavior.
type Config struct {
	SearchBaseURL    string
	SearchMaxPages   int
	MinContentLength int
	PDFMaxPages      int
	// DocumentMarker locates the document identifier inside a case URL;
	// XML rendition URLs are derived from the part before it.
	DocumentMarker string
}

// Scraper executes the four crawl entry points.
type Scraper struct {
	fetcher      crawler.Fetcher
	assets       crawler.AssetStore
	store        crawler.CaseStore
	pdf          crawler.PDFTextExtractor
	caseLocks    *lock.Keyed
	persistRetry *crawler.ExponentialRetryPolicy
	clock        crawler.Clock
	ids          crawler.IDGenerator
	cfg          Config
	logger       *zap.Logger
}

// New constructs a Scraper. A nil caseLocks or persistRetry gets a private
// default.
func New(
	fetcher crawler.Fetcher,
	assets crawler.AssetStore,
	store crawler.CaseStore,
	pdf crawler.PDFTextExtractor,
	caseLocks *lock.Keyed,
	persistRetry *crawler.ExponentialRetryPolicy,
	clock crawler.Clock,
	ids crawler.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caseLocks == nil {
		caseLocks = lock.NewKeyed()
	}
	if persistRetry == nil {
		persistRetry = crawler.PersistRetryPolicy()
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = "https://new.kenyalaw.org/judgments/"
	}
	if cfg.SearchMaxPages <= 0 {
		cfg.SearchMaxPages = 3
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 800
	}
	if cfg.PDFMaxPages <= 0 {
		cfg.PDFMaxPages = 20
	}
	if cfg.DocumentMarker == "" {
		cfg.DocumentMarker = "/eng@"
	}
	return &Scraper{
		fetcher:      fetcher,
		assets:       assets,
		store:        store,
		pdf:          pdf,
		caseLocks:    caseLocks,
		persistRetry: persistRetry,
		clock:        clock,
		ids:          ids,
		cfg:          cfg,
		logger:       logger.Named("scraper"),
	}
}

// ScrapeURL fetches target once and crawls it as a listing or a single case
// depending on what the page looks like.
func (s *Scraper) ScrapeURL(ctx context.Context, target string, deep bool) (*crawler.Report, error) {
	report, err := s.newReport(target)
	if err != nil {
		return nil, err
	}
	defer s.finish(report)

	resp, err := s.fetchPage(ctx, target, report)
	if err != nil {
		return report, err
	}
	if extract.IsListing(resp.Text) {
		s.logger.Info("routing to listing crawl", zap.String("url", resp.URL))
		return report, s.crawlListing(ctx, resp.URL, &resp, 0, deep, report)
	}
	s.logger.Info("routing to detail scrape", zap.String("url", resp.URL))
	id, err := s.scrapeDetail(ctx, resp.URL, &resp, deep, report)
	if err != nil {
		return report, err
	}
	report.AddCase(id)
	return report, nil
}

// CrawlListing follows a listing's pagination from start, scraping every
// detail link found. maxPages <= 0 means no page limit.
func (s *Scraper) CrawlListing(ctx context.Context, start string, maxPages int, deep bool) (*crawler.Report, error) {
	report, err := s.newReport(start)
	if err != nil {
		return nil, err
	}
	defer s.finish(report)
	return report, s.crawlListing(ctx, start, nil, maxPages, deep, report)
}

// ScrapeCaseDetail scrapes one known detail page.
func (s *Scraper) ScrapeCaseDetail(ctx context.Context, target string, deep bool) (*crawler.Report, error) {
	report, err := s.newReport(target)
	if err != nil {
		return nil, err
	}
	defer s.finish(report)

	id, err := s.scrapeDetail(ctx, target, nil, deep, report)
	if err != nil {
		return report, err
	}
	report.AddCase(id)
	return report, nil
}

// SearchAndScrape crawls the first pages of several guessed search URLs for
// query. Candidates that fail are recorded as skips; no candidate succeeding
// yields an empty report rather than an error.
func (s *Scraper) SearchAndScrape(ctx context.Context, query string, deep bool) (*crawler.Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	report, err := s.newReport(s.cfg.SearchBaseURL)
	if err != nil {
		return nil, err
	}
	defer s.finish(report)

	candidates, err := searchURLs(s.cfg.SearchBaseURL, query)
	if err != nil {
		return report, err
	}
	for _, candidate := range candidates {
		if err := s.crawlListing(ctx, candidate, nil, s.cfg.SearchMaxPages, deep, report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.skip(report, crawler.StageSearch, candidate, err)
		}
	}
	return report, nil
}

// Run executes a batch job through the matching entry point.
func (s *Scraper) Run(ctx context.Context, job crawler.Job) (*crawler.Report, error) {
	switch job.Kind {
	case crawler.JobURL:
		return s.ScrapeURL(ctx, job.Target, job.Deep)
	case crawler.JobListing:
		return s.CrawlListing(ctx, job.Target, job.MaxPages, job.Deep)
	case crawler.JobCase:
		return s.ScrapeCaseDetail(ctx, job.Target, job.Deep)
	case crawler.JobSearch:
		return s.SearchAndScrape(ctx, job.Target, job.Deep)
	default:
		return nil, fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (s *Scraper) newReport(target string) (*crawler.Report, error) {
	if !crawler.IsHTTPURL(target) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}
	runID, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	return &crawler.Report{RunID: runID, StartedAt: s.clock.Now()}, nil
}

func (s *Scraper) finish(report *crawler.Report) {
	report.FinishedAt = s.clock.Now()
	s.logger.Info("crawl finished",
		zap.String("run_id", report.RunID),
		zap.Int("cases", len(report.CaseIDs)),
		zap.Int("pages", report.Pages),
		zap.Int("skipped", len(report.Skipped)),
	)
}

// fetchPage fetches an HTML page and snapshots it. A failed snapshot does
// not fail the fetch.
func (s *Scraper) fetchPage(ctx context.Context, target string, report *crawler.Report) (crawler.Response, error) {
	resp, err := s.fetcher.Get(ctx, target)
	if err != nil {
		return crawler.Response{}, err
	}
	if resp.URL == "" {
		resp.URL = target
	}
	if _, err := s.assets.Store(ctx, crawler.AssetHTML, resp.URL, []byte(resp.Text), resp.ContentType); err != nil {
		s.skip(report, crawler.StageSnapshot, resp.URL, err)
	}
	return resp, nil
}

func (s *Scraper) skip(report *crawler.Report, stage crawler.Stage, target string, err error) {
	report.AddSkip(stage, target, err)
	metrics.ObserveSkip(string(stage))
	s.logger.Warn("skipped",
		zap.String("stage", string(stage)),
		zap.String("url", target),
		zap.Error(err),
	)
}

func searchURLs(base, query string) ([]string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse search base url: %w", err)
	}
	out := make([]string, 0, len(searchParams))
	for _, param := range searchParams {
		candidate := *u
		values := candidate.Query()
		values.Set(param, query)
		candidate.RawQuery = values.Encode()
		out = append(out, candidate.String())
	}
	return out, nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
