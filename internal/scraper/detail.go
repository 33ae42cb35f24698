package scraper

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/extract"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// scrapeDetail runs the detail flow for target while holding its case lock.
// Transient persistence failures restart the whole flow; skips recorded by
// an abandoned attempt are dropped.
func (s *Scraper) scrapeDetail(
	ctx context.Context,
	target string,
	prefetched *crawler.Response,
	deep bool,
	report *crawler.Report,
) (uint, error) {
	unlock := s.caseLocks.Lock(target)
	defer unlock()

	var (
		id    uint
		skips []crawler.Skip
	)
	err := crawler.Retry(ctx, s.persistRetry, func(attempt int) error {
		if attempt > 1 {
			metrics.ObserveRetry("detail")
			s.logger.Info("retrying detail scrape", zap.String("url", target), zap.Int("attempt", attempt))
			// A retried attempt fetches a fresh copy.
			prefetched = nil
		}
		scratch := &crawler.Report{}
		var err error
		id, err = s.scrapeDetailOnce(ctx, target, prefetched, deep, scratch)
		skips = scratch.Skipped
		return err
	})
	report.Skipped = append(report.Skipped, skips...)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Scraper) scrapeDetailOnce(
	ctx context.Context,
	target string,
	prefetched *crawler.Response,
	deep bool,
	report *crawler.Report,
) (uint, error) {
	var page crawler.Response
	if prefetched != nil {
		page = *prefetched
	} else {
		resp, err := s.fetchPage(ctx, target, report)
		if err != nil {
			return 0, fmt.Errorf("fetch detail: %w", err)
		}
		page = resp
	}

	parsed, err := extract.ExtractDetail(page.URL, page.Text)
	if err != nil {
		return 0, fmt.Errorf("extract detail: %w", err)
	}

	c, err := s.upsert(ctx, parsed)
	if err != nil {
		return 0, err
	}

	if deep {
		if err := s.enrichFromXML(ctx, c, report); err != nil {
			return 0, err
		}
	}

	pdfText := s.storeAssets(ctx, c, parsed, deep, report)

	if deep && pdfText != "" && runeLen(c.ContentText) < s.cfg.MinContentLength {
		c.ContentText = pdfText
		if err := s.store.SaveCase(ctx, c); err != nil {
			return 0, fmt.Errorf("save pdf text: %w", err)
		}
		metrics.ObserveEnrichment("pdf")
		s.logger.Info("content text replaced from pdf", zap.String("url", c.URL))
	}
	return c.ID, nil
}

// upsert finds or creates the case for parsed.URL and applies the parsed
// fields. Losing a creation race re-reads the winner's row.
func (s *Scraper) upsert(ctx context.Context, parsed crawler.CaseParsed) (*crawler.Case, error) {
	existing, err := s.store.FindCaseByURL(ctx, parsed.URL)
	switch {
	case err == nil:
		return s.update(ctx, existing, parsed)
	case !errors.Is(err, crawler.ErrNotFound):
		return nil, fmt.Errorf("find case: %w", err)
	}

	c := &crawler.Case{URL: parsed.URL}
	applyParsed(c, parsed)
	err = s.store.CreateCase(ctx, c)
	if err == nil {
		metrics.ObserveCase("created")
		s.logger.Info("case created", zap.String("url", c.URL), zap.Uint("case_id", c.ID))
		return c, nil
	}
	if !errors.Is(err, crawler.ErrPersistenceConflict) {
		return nil, fmt.Errorf("create case: %w", err)
	}

	s.logger.Debug("case inserted concurrently, re-reading", zap.String("url", parsed.URL))
	existing, err = s.store.FindCaseByURL(ctx, parsed.URL)
	if err != nil {
		return nil, fmt.Errorf("re-read case after conflict: %w", err)
	}
	return s.update(ctx, existing, parsed)
}

func (s *Scraper) update(ctx context.Context, c *crawler.Case, parsed crawler.CaseParsed) (*crawler.Case, error) {
	applyParsed(c, parsed)
	if err := s.store.SaveCase(ctx, c); err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	metrics.ObserveCase("updated")
	s.logger.Info("case updated", zap.String("url", c.URL), zap.Uint("case_id", c.ID))
	return c, nil
}

// applyParsed overwrites metadata unconditionally. Content text is only
// replaced by something longer.
func applyParsed(c *crawler.Case, parsed crawler.CaseParsed) {
	c.Title = parsed.Title
	c.CaseNumber = parsed.CaseNumber
	c.Court = parsed.Court
	c.Parties = parsed.Parties
	c.Judges = parsed.Judges
	c.Date = parsed.Date
	c.Citation = parsed.Citation
	c.Counsel = parsed.Counsel
	if runeLen(parsed.ContentText) > runeLen(c.ContentText) {
		c.ContentText = parsed.ContentText
	}
}
