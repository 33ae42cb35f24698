package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("not found")
	// ErrPersistenceConflict reports a uniqueness violation on insert.
	ErrPersistenceConflict = errors.New("persistence conflict")
	// ErrPersistenceUnavailable reports transient write contention.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrParseFailure reports input that cannot be parsed at all.
	ErrParseFailure = errors.New("parse failure")
	// ErrUnexpectedStatus reports a non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrQueueClosed reports a queue that will yield no more jobs.
	ErrQueueClosed = errors.New("queue closed")
)

// FetchError is returned once every fetch attempt for a URL has failed.
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
