package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

var jobKinds = map[crawler.JobKind]bool{
	crawler.JobURL:     true,
	crawler.JobListing: true,
	crawler.JobCase:    true,
	crawler.JobSearch:  true,
}

func newBatchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Run many crawl jobs concurrently",
		Long: `batch reads one job per line from file, or stdin when file is omitted
or "-". A line is either a JSON object such as
  {"kind":"listing","target":"https://...","max_pages":3,"deep":true}
or "kind target [max_pages]", where kind is url, listing, case or search.
Blank lines and lines starting with # are ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open batch file: %w", err)
				}
				defer f.Close()
				in = f
			}
			jobs, err := parseJobs(in, opts.deep)
			if err != nil {
				return err
			}

			results, runErr := appInstance.Dispatcher().RunBatch(cmd.Context(), jobs)
			failed := 0
			for _, r := range results {
				if r.Status != crawler.JobStatusSucceeded {
					failed++
				}
			}
			appInstance.Logger().Info("batch finished",
				zap.Int("jobs", len(jobs)), zap.Int("failed", failed))
			if err := printJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d batch jobs did not succeed", failed, len(jobs))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "worker count (default crawler.concurrency)")
	return cmd
}

// parseJobs reads batch jobs; deep applies to plain-text lines and to JSON
// lines that omit it.
func parseJobs(r io.Reader, deep bool) ([]crawler.Job, error) {
	var jobs []crawler.Job
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		job, err := parseJobLine(line, deep)
		if err != nil {
			return nil, fmt.Errorf("batch line %d: %w", lineNo, err)
		}
		jobs = append(jobs, job)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch contains no jobs")
	}
	return jobs, nil
}

func parseJobLine(line string, deep bool) (crawler.Job, error) {
	job := crawler.Job{Deep: deep}
	if strings.HasPrefix(line, "{") {
		var raw struct {
			Kind     crawler.JobKind `json:"kind"`
			Target   string          `json:"target"`
			MaxPages int             `json:"max_pages"`
			Deep     *bool           `json:"deep"`
		}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return job, fmt.Errorf("decode job: %w", err)
		}
		job.Kind, job.Target, job.MaxPages = raw.Kind, raw.Target, raw.MaxPages
		if raw.Deep != nil {
			job.Deep = *raw.Deep
		}
	} else {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return job, fmt.Errorf("want \"kind target\", got %q", line)
		}
		job.Kind = crawler.JobKind(strings.ToLower(fields[0]))
		job.Target = strings.Join(fields[1:], " ")
		if job.Kind == crawler.JobListing && len(fields) == 3 {
			if n, err := strconv.Atoi(fields[2]); err == nil {
				job.Target, job.MaxPages = fields[1], n
			}
		}
	}

	if !jobKinds[job.Kind] {
		return job, fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if job.Kind != crawler.JobSearch && !crawler.IsHTTPURL(job.Target) {
		return job, fmt.Errorf("target %q is not an http(s) url", job.Target)
	}
	if strings.TrimSpace(job.Target) == "" {
		return job, fmt.Errorf("empty target")
	}
	return job, nil
}
