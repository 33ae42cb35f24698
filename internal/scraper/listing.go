package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/extract"
)

// crawlListing walks the next-page chain from start. first, when set, is the
// already fetched start page. A failure on the first page is returned; later
// page failures end pagination with what was gathered so far.
func (s *Scraper) crawlListing(
	ctx context.Context,
	start string,
	first *crawler.Response,
	maxPages int,
	deep bool,
	report *crawler.Report,
) error {
	visited := crawler.NewVisitTracker()
	current := start
	pages := 0

	for current != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !visited.MarkIfNew(current) {
			s.logger.Warn("listing page already visited, stopping", zap.String("url", current))
			return nil
		}

		var page crawler.Response
		if pages == 0 && first != nil {
			page = *first
		} else {
			resp, err := s.fetchPage(ctx, current, report)
			if err != nil {
				if pages == 0 {
					return fmt.Errorf("fetch listing: %w", err)
				}
				s.skip(report, crawler.StageListing, current, err)
				return nil
			}
			page = resp
		}
		visited.MarkIfNew(page.URL)

		listing, err := extract.ExtractListing(page.URL, page.Text)
		if err != nil {
			if pages == 0 {
				return fmt.Errorf("extract listing: %w", err)
			}
			s.skip(report, crawler.StageListing, page.URL, err)
			return nil
		}
		s.logger.Debug("listing page extracted",
			zap.String("url", page.URL),
			zap.Int("links", len(listing.DetailLinks)),
			zap.String("next", listing.NextPage),
		)

		for _, href := range listing.DetailLinks {
			caseURL, err := crawler.ResolveURL(page.URL, href)
			if err != nil {
				s.skip(report, crawler.StageDetail, href, err)
				continue
			}
			id, err := s.scrapeDetail(ctx, caseURL, nil, deep, report)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.skip(report, crawler.StageDetail, caseURL, err)
				continue
			}
			report.AddCase(id)
		}

		pages++
		report.Pages++
		if maxPages > 0 && pages >= maxPages {
			return nil
		}
		if listing.NextPage == "" {
			return nil
		}
		next, err := crawler.ResolveURL(page.URL, listing.NextPage)
		if err != nil {
			s.skip(report, crawler.StageListing, listing.NextPage, err)
			return nil
		}
		current = next
	}
	return nil
}
