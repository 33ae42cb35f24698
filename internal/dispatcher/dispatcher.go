// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/worker"
)

// Config controls the worker pool.
type Config struct {
	Concurrency int
}

// Dispatcher fans out queue work to a pool of workers sharing one runner.
type Dispatcher struct {
	queue  crawler.Queue
	runner worker.Runner
	ids    crawler.IDGenerator
	cfg    Config
	logger *zap.Logger
}

// New creates a Dispatcher.
func New(queue crawler.Queue, runner worker.Runner, ids crawler.IDGenerator, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:  queue,
		runner: runner,
		ids:    ids,
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts all workers and blocks until they stop, which happens when
// the context finishes or the queue closes.
func (d *Dispatcher) Run(ctx context.Context, results chan<- crawler.JobResult) {
	var wg sync.WaitGroup
	for i := range d.cfg.Concurrency {
		w := worker.New(fmt.Sprintf("worker-%d", i+1), d.queue, d.runner, results, d.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Wait()
}

// Enqueue assigns an ID when the job has none and proxies to the
// underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job crawler.Job) (crawler.Job, error) {
	if job.ID == "" {
		id, err := d.ids.NewID()
		if err != nil {
			return job, fmt.Errorf("generate job id: %w", err)
		}
		job.ID = id
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return job, fmt.Errorf("queue enqueue: %w", err)
	}
	return job, nil
}

// RunBatch runs jobs on the worker pool and returns one result per job in
// input order. Jobs that could not be queued are reported as failed, or as
// canceled when ctx ended first.
func (d *Dispatcher) RunBatch(ctx context.Context, jobs []crawler.Job) ([]crawler.JobResult, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan crawler.JobResult, len(jobs))
	workersDone := make(chan struct{})
	go func() {
		d.Run(runCtx, results)
		close(workersDone)
	}()

	out := make([]crawler.JobResult, len(jobs))
	filled := make([]bool, len(jobs))
	index := make(map[string]int, len(jobs))
	queued := 0
	var enqueueErr error
	for i, job := range jobs {
		if _, dup := index[job.ID]; dup {
			job.ID = ""
		}
		queuedJob, err := d.Enqueue(runCtx, job)
		if err != nil {
			enqueueErr = err
			break
		}
		index[queuedJob.ID] = i
		queued++
	}
	d.logger.Info("batch queued", zap.Int("jobs", queued), zap.Int("workers", d.cfg.Concurrency))

collect:
	for n := 0; n < queued; n++ {
		select {
		case r := <-results:
			i := index[r.Job.ID]
			out[i], filled[i] = r, true
		case <-ctx.Done():
			break collect
		}
	}
	cancel()
	<-workersDone
	close(results)
	for r := range results {
		i := index[r.Job.ID]
		out[i], filled[i] = r, true
	}

	for i := range out {
		if filled[i] {
			continue
		}
		out[i] = crawler.JobResult{Job: jobs[i], Status: crawler.JobStatusCanceled}
		switch {
		case ctx.Err() != nil:
			out[i].Err = ctx.Err().Error()
		case enqueueErr != nil:
			out[i].Status = crawler.JobStatusFailed
			out[i].Err = enqueueErr.Error()
		}
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, nil
}
