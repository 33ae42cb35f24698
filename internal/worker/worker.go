// Package worker implements the batch job execution loop.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// Runner executes one crawl job.
type Runner interface {
	Run(ctx context.Context, job crawler.Job) (*crawler.Report, error)
}

// Worker consumes queued jobs and reports each outcome.
type Worker struct {
	name    string
	queue   crawler.Queue
	runner  Runner
	results chan<- crawler.JobResult
	logger  *zap.Logger
}

// New constructs a Worker. results receives one JobResult per dequeued job.
func New(
	name string,
	queue crawler.Queue,
	runner Runner,
	results chan<- crawler.JobResult,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		name:    name,
		queue:   queue,
		runner:  runner,
		results: results,
		logger:  logger.Named("worker").With(zap.String("worker", name)),
	}
}

// Run blocks, consuming jobs until the context finishes or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, crawler.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)))

		result := w.processJob(ctx, job)
		select {
		case w.results <- result:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job crawler.Job) crawler.JobResult {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	report, err := w.runner.Run(ctx, job)
	result := crawler.JobResult{Job: job, Report: report}
	result.Status, result.Err = deriveFinalStatus(ctx, err)
	metrics.ObserveJob(string(job.Kind), string(result.Status))

	if err != nil {
		w.logger.Error("job failed",
			zap.String("job_id", job.ID),
			zap.String("target", job.Target),
			zap.String("status", string(result.Status)),
			zap.Error(err),
		)
		return result
	}
	cases := 0
	if report != nil {
		cases = len(report.CaseIDs)
	}
	w.logger.Info("job finished",
		zap.String("job_id", job.ID),
		zap.String("target", job.Target),
		zap.Int("cases", cases),
	)
	return result
}

func deriveFinalStatus(ctx context.Context, err error) (crawler.JobStatus, string) {
	switch {
	case ctx.Err() != nil:
		errText := ctx.Err().Error()
		if err != nil {
			errText = err.Error()
		}
		return crawler.JobStatusCanceled, errText
	case err != nil:
		return crawler.JobStatusFailed, err.Error()
	default:
		return crawler.JobStatusSucceeded, ""
	}
}
