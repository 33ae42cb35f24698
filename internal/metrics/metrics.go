// Package metrics exposes Prometheus collectors for the case-law crawler.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crawlerFetchesTotal           *prometheus.CounterVec
	crawlerBytesTotal             *prometheus.CounterVec
	crawlerRetriesTotal           *prometheus.CounterVec
	crawlerRateLimitDelaysSeconds prometheus.Histogram
	crawlerCasesTotal             *prometheus.CounterVec
	crawlerSkippedTotal           *prometheus.CounterVec
	crawlerEnrichmentsTotal       *prometheus.CounterVec
	crawlerJobsTotal              *prometheus.CounterVec
	crawlerActiveWorkers          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_fetches_total",
				Help: "Total number of fetch operations, labeled by site, kind and outcome.",
			},
			[]string{"site", "kind", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_retries_total",
				Help: "Total number of retried attempts, labeled by operation.",
			},
			[]string{"operation"},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "caselaw_rate_limit_delays_seconds",
				Help:    "Histogram of pacing gate wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 4, 8, 16, 60},
			},
		)

		crawlerCasesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_cases_total",
				Help: "Total number of cases written, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_skipped_total",
				Help: "Total number of items skipped without failing the run, labeled by stage.",
			},
			[]string{"stage"},
		)

		crawlerEnrichmentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_enrichments_total",
				Help: "Total number of content text overwrites, labeled by source.",
			},
			[]string{"source"},
		)

		crawlerJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caselaw_jobs_total",
				Help: "Total number of batch jobs processed, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "caselaw_active_workers",
				Help: "Number of batch workers currently processing a job.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveFetch records one fetch outcome and the bytes it returned.
func ObserveFetch(site, kind, outcome string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlerFetchesTotal.WithLabelValues(sanitizedSite, kind, outcome).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts one retried attempt of operation.
func ObserveRetry(operation string) {
	Init()
	crawlerRetriesTotal.WithLabelValues(operation).Inc()
}

// ObserveRateLimitDelay records the duration of a pacing wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.Observe(duration.Seconds())
}

// ObserveCase counts a case write ("created" or "updated").
func ObserveCase(outcome string) {
	Init()
	crawlerCasesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSkip counts an item skipped at stage.
func ObserveSkip(stage string) {
	Init()
	crawlerSkippedTotal.WithLabelValues(stage).Inc()
}

// ObserveEnrichment counts a content text overwrite from source ("xml" or "pdf").
func ObserveEnrichment(source string) {
	Init()
	crawlerEnrichmentsTotal.WithLabelValues(source).Inc()
}

// ObserveJob increments the batch job counter.
func ObserveJob(kind, status string) {
	Init()
	crawlerJobsTotal.WithLabelValues(kind, status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	crawlerActiveWorkers.Dec()
}

// WriteTextfile dumps the default registry in the text exposition format,
// for pickup by a node exporter textfile collector.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
