// Package cmd defines and implements the CLI commands for the caselaw crawler.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/app"
	"github.com/JakeFAU/caselaw-crawler/internal/config"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath  string
	deep        bool
	metricsFile string
	concurrency int
}

// newApp is the application factory. Tests replace it to inject a logger.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.Build(ctx, cfg, nil)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "caselaw",
		Short: "Crawls published court judgments into a local case database.",
		Long: `caselaw fetches judgment listings and case pages from the publishing
site, extracts case metadata and full text, stores PDFs, images and XML
renditions on disk and keeps one database row per case URL.`,
		SilenceUsage: true,

		// Builds the application once config is known and hands it to the
		// subcommand through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.concurrency > 0 {
				cfg.Crawler.Concurrency = opts.concurrency
			}
			if !cmd.Flags().Changed("deep") {
				opts.deep = cfg.Crawler.DeepDefault
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return nil
			}
			var writeErr error
			if opts.metricsFile != "" {
				if writeErr = metrics.WriteTextfile(opts.metricsFile); writeErr != nil {
					appInstance.Logger().Warn("metrics textfile write failed",
						zap.String("path", opts.metricsFile), zap.Error(writeErr))
				}
			}
			return errors.Join(writeErr, appInstance.Close())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVar(&opts.deep, "deep", false, "enrich case text from XML and PDF renditions")
	cmd.PersistentFlags().StringVar(&opts.metricsFile, "metrics-textfile", "",
		"write prometheus metrics in text format to this path after the run")

	cmd.AddCommand(
		newScrapeURLCmd(opts),
		newCrawlListingCmd(opts),
		newCaseDetailCmd(opts),
		newSearchCmd(opts),
		newScheduledRunCmd(opts),
		newBatchCmd(opts),
		newCasesCmd(),
	)
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
