// Package collyfetcher implements crawler.Fetcher using gocolly. Every
// attempt passes through the shared pacing gate and failed attempts are
// retried with jittered exponential backoff.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// HTTPProxy and HTTPSProxy override the environment proxy when set.
	HTTPProxy  string
	HTTPSProxy string
}

// Pacer gates every outbound attempt.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	pacer         Pacer
	retry         *crawler.ExponentialRetryPolicy
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type visitResult struct {
	response crawler.Response
	status   int
	err      error
}

// New builds a Fetcher. The pacer and retry policy are shared with every
// other holder; nil retry means a single attempt.
func New(cfg Config, pacer Pacer, retry *crawler.ExponentialRetryPolicy, logger *zap.Logger) (*Fetcher, error) {
	if pacer == nil {
		return nil, errors.New("collyfetcher: pacer is required")
	}
	if retry == nil {
		retry = crawler.NewExponentialRetryPolicy(1, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.MaxBodySize = 0
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		pacer:         pacer,
		retry:         retry,
		logger:        logger.Named("fetcher"),
	}, nil
}

// Get fetches a page and returns its body decoded as text.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (crawler.Response, error) {
	resp, err := f.fetch(ctx, rawURL, "page")
	if err != nil {
		return crawler.Response{}, err
	}
	resp.Text = string(resp.Body)
	return resp, nil
}

// Download fetches raw bytes without decoding them.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (crawler.Response, error) {
	return f.fetch(ctx, rawURL, "download")
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, kind string) (crawler.Response, error) {
	var (
		result   crawler.Response
		attempts int
		status   int
	)
	err := crawler.Retry(ctx, f.retry, func(attempt int) error {
		attempts = attempt
		if attempt > 1 {
			metrics.ObserveRetry("fetch")
			f.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt))
		}
		if err := f.pacer.Wait(ctx); err != nil {
			return err
		}
		visit := f.visit(ctx, rawURL)
		status = visit.status
		if visit.err != nil {
			metrics.ObserveFetch(rawURL, kind, "error", 0)
			return visit.err
		}
		result = visit.response
		metrics.ObserveFetch(rawURL, kind, "success", len(result.Body))
		return nil
	})
	if err != nil {
		f.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.Int("attempts", attempts),
			zap.Int("status", status),
			zap.Error(err),
		)
		return crawler.Response{}, &crawler.FetchError{URL: rawURL, Attempts: attempts, StatusCode: status, Err: err}
	}
	return result, nil
}

func (f *Fetcher) visit(ctx context.Context, rawURL string) visitResult {
	collector := f.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	collector.AllowURLRevisit = true
	collector.MaxBodySize = 0

	var result visitResult
	configureCollectorHooks(collector, &result)
	if err := runCollector(ctx, collector, rawURL); err != nil {
		if ctx.Err() != nil {
			// The visit goroutine may still write to result.
			return visitResult{err: err}
		}
		if result.err == nil {
			result.err = err
		}
	}
	return result
}

func configureCollectorHooks(hooks collectorHooks, result *visitResult) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	hooks.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		result.status = r.StatusCode
		result.response = crawler.Response{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			Body:        append([]byte(nil), r.Body...),
			ContentType: contentType,
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			result.status = r.StatusCode
			result.err = fmt.Errorf("%w %d: %v", crawler.ErrUnexpectedStatus, r.StatusCode, err)
			return
		}
		result.err = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport(cfg Config) (*http.Transport, error) {
	proxy := http.ProxyFromEnvironment
	if cfg.HTTPProxy != "" || cfg.HTTPSProxy != "" {
		fixed, err := fixedProxy(cfg.HTTPProxy, cfg.HTTPSProxy)
		if err != nil {
			return nil, err
		}
		proxy = fixed
	}
	return &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}, nil
}

// fixedProxy routes by request scheme; an empty entry means direct.
func fixedProxy(httpProxy, httpsProxy string) (func(*http.Request) (*url.URL, error), error) {
	parse := func(raw string) (*url.URL, error) {
		if raw == "" {
			return nil, nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		return u, nil
	}
	httpURL, err := parse(httpProxy)
	if err != nil {
		return nil, err
	}
	httpsURL, err := parse(httpsProxy)
	if err != nil {
		return nil, err
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return httpsURL, nil
		}
		return httpURL, nil
	}, nil
}
