package crawler

import (
	"context"
	"sync"
	"time"
)

// VisitTracker records URLs already seen during one traversal.
type VisitTracker struct {
	seen sync.Map
}

// NewVisitTracker returns an empty tracker.
func NewVisitTracker() *VisitTracker {
	return &VisitTracker{}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *VisitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	_, loaded := t.seen.LoadOrStore(url, struct{}{})
	return !loaded
}

// Pause sleeps for delay or until ctx is done, whichever comes first.
func Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
