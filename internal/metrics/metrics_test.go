package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestObserveCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(crawlerCasesTotal.WithLabelValues("created"))
	ObserveCase("created")
	assert.InDelta(t, before+1, testutil.ToFloat64(crawlerCasesTotal.WithLabelValues("created")), 0.0001)

	beforeSkip := testutil.ToFloat64(crawlerSkippedTotal.WithLabelValues("asset"))
	ObserveSkip("asset")
	ObserveSkip("asset")
	assert.InDelta(t, beforeSkip+2, testutil.ToFloat64(crawlerSkippedTotal.WithLabelValues("asset")), 0.0001)

	ObserveFetch("https://Example.com/x", "page", "success", 42)
	assert.GreaterOrEqual(t, testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("example.com")), 42.0)
}

func TestWriteTextfile(t *testing.T) {
	ObserveEnrichment("xml")
	path := filepath.Join(t.TempDir(), "caselaw.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "caselaw_enrichments_total")
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://kenyalaw.org", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
