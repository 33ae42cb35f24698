// Package ratelimit implements the process-wide pacing gate every outbound
// request passes through.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

// Limiter spaces requests at least one interval apart, shared by every
// caller that holds it. It is a bucket of one: no bursts.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// Config holds pacing configuration.
type Config struct {
	// RequestsPerMinute is clamped to a minimum of 1.
	RequestsPerMinute int
}

// New creates a Limiter with interval 60s / max(1, RequestsPerMinute).
func New(cfg Config) *Limiter {
	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 1
	}
	interval := time.Minute / time.Duration(rpm)
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Interval reports the minimum spacing between two requests.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next request may start, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return nil
}
