// Package local implements the content-addressed asset store on the local
// filesystem. Files are named by the hash of their source URL, so storing
// the same URL twice overwrites one file instead of creating a second.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// Config captures the parameters for the local asset store.
type Config struct {
	// BaseDir is the root directory; each asset kind gets its own sub-tree.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Keyer maps a source URL to a stable file stem.
type Keyer interface {
	Key(sourceURL string) string
}

var kindDirs = map[crawler.AssetKind]string{
	crawler.AssetHTML:  "html",
	crawler.AssetPDF:   "pdfs",
	crawler.AssetImage: "images",
	crawler.AssetXML:   "xml",
}

// AssetStore writes fetched artifacts under BaseDir.
type AssetStore struct {
	baseDir string
	keys    Keyer
}

// New creates the base directory and every kind sub-tree, and checks that
// the base directory is writable.
func New(cfg Config, keys Keyer) (*AssetStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("keyer is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	for _, dir := range kindDirs {
		if mkErr := os.MkdirAll(filepath.Join(cfg.BaseDir, dir), 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, mkErr)
		}
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &AssetStore{baseDir: cfg.BaseDir, keys: keys}, nil
}

// Path returns where an asset of kind fetched from sourceURL is stored.
func (s *AssetStore) Path(kind crawler.AssetKind, sourceURL, contentType string) (string, error) {
	dir, ok := kindDirs[kind]
	if !ok {
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
	if strings.TrimSpace(sourceURL) == "" {
		return "", fmt.Errorf("source url is required")
	}
	name := s.keys.Key(sourceURL) + extension(kind, sourceURL, contentType)
	return filepath.Join(s.baseDir, dir, name), nil
}

// Store writes data atomically and returns the file path.
func (s *AssetStore) Store(ctx context.Context, kind crawler.AssetKind, sourceURL string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := s.Path(kind, sourceURL, contentType)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".asset-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return fullPath, nil
}

func extension(kind crawler.AssetKind, sourceURL, contentType string) string {
	switch kind {
	case crawler.AssetHTML:
		return ".html"
	case crawler.AssetXML:
		return ".xml"
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return ".pdf"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "webp"):
		return ".webp"
	}

	if kind == crawler.AssetPDF {
		return ".pdf"
	}
	switch ext := filepath.Ext(crawler.URLPath(sourceURL)); ext {
	case ".jpg", ".jpeg":
		return ".jpg"
	case ".png", ".gif", ".webp":
		return ext
	}
	return ".img"
}
