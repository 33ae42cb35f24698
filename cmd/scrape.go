package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/scraper"
)

// runReport resolves the app, runs fn and prints the report. A partial
// report is printed even when fn fails.
func runReport(cmd *cobra.Command, fn func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error)) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	report, runErr := fn(cmd.Context(), appInstance.Scraper())
	if report != nil {
		appInstance.Logger().Info("run finished",
			zap.String("run_id", report.RunID),
			zap.Int("cases", len(report.CaseIDs)),
			zap.Int("pages", report.Pages),
			zap.Int("skipped", len(report.Skipped)),
		)
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	return runErr
}

func newScrapeURLCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape-url <url>",
		Short: "Scrape a URL, routing to the listing or case flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error) {
				return s.ScrapeURL(ctx, args[0], opts.deep)
			})
		},
	}
}

func newCrawlListingCmd(opts *options) *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "crawl-listing <url>",
		Short: "Follow a paginated judgment listing and scrape every case on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error) {
				return s.CrawlListing(ctx, args[0], maxPages, opts.deep)
			})
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 5, "maximum listing pages to follow")
	return cmd
}

func newCaseDetailCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "case-detail <url>",
		Short: "Scrape a single case page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error) {
				return s.ScrapeCaseDetail(ctx, args[0], opts.deep)
			})
		},
	}
}

func newSearchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the judgments index and scrape the matching cases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runReport(cmd, func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error) {
				return s.SearchAndScrape(ctx, query, opts.deep)
			})
		},
	}
}

func newScheduledRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduled-run",
		Short: "Crawl the configured listing, for use from cron",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config().Crawler
			return runReport(cmd, func(ctx context.Context, s *scraper.Scraper) (*crawler.Report, error) {
				return s.CrawlListing(ctx, cfg.ScheduledURL, cfg.ScheduledMaxPages, opts.deep)
			})
		},
	}
}
