package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/hash/sha256"
	"github.com/JakeFAU/caselaw-crawler/internal/storage/local"
)

func newStore(t *testing.T) (*local.AssetStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir}, sha256.New())
	require.NoError(t, err)
	return store, dir
}

func TestNew(t *testing.T) {
	t.Run("CreatesSubTrees", func(t *testing.T) {
		_, dir := newStore(t)
		for _, sub := range []string{"html", "pdfs", "images", "xml"} {
			info, err := os.Stat(filepath.Join(dir, sub))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{}, sha256.New())
		assert.Error(t, err)
	})

	t.Run("MissingKeyer", func(t *testing.T) {
		_, err := local.New(local.Config{BaseDir: t.TempDir()}, nil)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file}, sha256.New())
		assert.Error(t, err)
	})
}

func TestStoreIsContentAddressedByURL(t *testing.T) {
	t.Parallel()

	store, dir := newStore(t)
	ctx := context.Background()
	url := "https://example.com/files/judgment.pdf"

	first, err := store.Store(ctx, crawler.AssetPDF, url, []byte("%PDF-1.4 v1"), "application/pdf")
	require.NoError(t, err)
	second, err := store.Store(ctx, crawler.AssetPDF, url, []byte("%PDF-1.4 v2"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, filepath.Join(dir, "pdfs", sha256.New().Key(url)+".pdf"), first)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 v2", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "pdfs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStoreExtensions(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	cases := []struct {
		kind        crawler.AssetKind
		url         string
		contentType string
		want        string
	}{
		{crawler.AssetHTML, "https://example.com/case/1", "text/html", ".html"},
		{crawler.AssetXML, "https://example.com/eng@/main", "application/xml", ".xml"},
		{crawler.AssetPDF, "https://example.com/doc", "application/octet-stream", ".pdf"},
		{crawler.AssetImage, "https://example.com/seal", "image/jpeg", ".jpg"},
		{crawler.AssetImage, "https://example.com/seal", "image/png", ".png"},
		{crawler.AssetImage, "https://example.com/seal.png", "image/jpeg", ".jpg"},
		{crawler.AssetImage, "https://example.com/seal.gif?v=2", "", ".gif"},
		{crawler.AssetImage, "https://example.com/seal", "", ".img"},
	}
	for _, tc := range cases {
		path, err := store.Path(tc.kind, tc.url, tc.contentType)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, tc.want), "%s -> %s", tc.url, path)
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Store(ctx, crawler.AssetKind("video"), "https://example.com/x", nil, "")
	assert.Error(t, err)

	_, err = store.Store(ctx, crawler.AssetPDF, "  ", nil, "")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Store(cancelled, crawler.AssetPDF, "https://example.com/x.pdf", nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}
