// Package pdftext extracts plain text from the leading pages of a PDF.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// Extractor implements crawler.PDFTextExtractor.
type Extractor struct {
	conf   *model.Configuration
	logger *zap.Logger
}

// New builds an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		conf:   model.NewDefaultConfiguration(),
		logger: logger.Named("pdftext"),
	}
}

// ExtractText returns the text of at most maxPages leading pages, one page
// per line group. Documents pdfcpu cannot validate are rejected with
// crawler.ErrParseFailure; pages whose text cannot be decoded are skipped.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, maxPages int) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf", crawler.ErrParseFailure)
	}
	// The text reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", crawler.ErrParseFailure, r)
		}
	}()

	// pdfcpu reads and validates the whole document; anything it rejects
	// never reaches the text reader.
	pages, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return "", fmt.Errorf("%w: validate: %v", crawler.ErrParseFailure, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", crawler.ErrParseFailure, err)
	}
	if n := reader.NumPage(); n < pages {
		e.logger.Debug("page tree shorter than validated count", zap.Int("validated", pages), zap.Int("readable", n))
		pages = n
	}
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			e.logger.Debug("page text extraction failed", zap.Int("page", i), zap.Error(perr))
			continue
		}
		parts = append(parts, content)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
