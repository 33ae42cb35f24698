package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/caselaw-crawler/internal/app"
	"github.com/JakeFAU/caselaw-crawler/internal/config"
	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

const casePage = `<html><body>
<h1 class="doc-title">Republic v Mwangi [2024] KEHC 101 (KLR)</h1>
<dl><dt>Case Number</dt><dd>Criminal Appeal 12 of 2023</dd>
<dt>Court</dt><dd>High Court at Nairobi</dd></dl>
<div class="judgment-text"><p>The appeal is allowed.</p></div>
</body></html>`

func loadConfig(t *testing.T, searchBase string) config.Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`http:
  requests_per_minute: 600000
  max_attempts: 1
  backoff_initial_ms: 0
  backoff_max_ms: 0
storage:
  data_dir: %q
db:
  path: %q
crawler:
  search_base_url: %q
  concurrency: 2
  queue_depth: 4
logging:
  development: false
  level: error
`, filepath.Join(dir, "data"), filepath.Join(dir, "data", "caselaw.db"), searchBase)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildWiresServices(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t, "https://example.org/judgments/")
	a, err := app.Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, a.Scraper())
	assert.NotNil(t, a.Dispatcher())
	assert.NotNil(t, a.Store())
	assert.Equal(t, 2, a.Config().Crawler.Concurrency)
	assert.DirExists(t, filepath.Join(cfg.Storage.DataDir, "pdfs"))
	assert.FileExists(t, cfg.DB.Path)
	require.NoError(t, a.Close())
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t, "https://example.org/judgments/")
	cfg.Crawler.Concurrency = 0
	_, err := app.Build(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestBuildHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t, "https://example.org/judgments/")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := app.Build(ctx, cfg, zap.NewNop())
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuiltAppRunsBatch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/akn/ke/judgment/kehc/2024/101/eng@2024-01-10", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(casePage))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := loadConfig(t, server.URL+"/judgments/")
	core, logs := observer.New(zapcore.DebugLevel)
	a, err := app.Build(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	target := server.URL + "/akn/ke/judgment/kehc/2024/101/eng@2024-01-10"
	results, err := a.Dispatcher().RunBatch(context.Background(), []crawler.Job{
		{Kind: crawler.JobCase, Target: target},
		{Kind: crawler.JobCase, Target: target},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, crawler.JobStatusSucceeded, r.Status, r.Err)
	}

	cases, total, err := a.Store().ListCases(context.Background(), "Mwangi", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, cases, 1)
	assert.Equal(t, "Criminal Appeal 12 of 2023", cases[0].CaseNumber)

	names := map[string]bool{}
	for _, entry := range logs.All() {
		names[entry.LoggerName] = true
	}
	assert.True(t, names["scraper"], "logger names: %v", names)
	assert.False(t, names["scraper.scraper"], "logger names: %v", names)
	for name := range names {
		parts := strings.Split(name, ".")
		for i := 1; i < len(parts); i++ {
			assert.NotEqual(t, parts[i-1], parts[i], "logger %q repeats a segment", name)
		}
	}
}
