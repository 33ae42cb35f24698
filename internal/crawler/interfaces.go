package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves pages and binary files through the shared pacing gate.
type Fetcher interface {
	// Get fetches a page and decodes its body as text.
	Get(ctx context.Context, url string) (Response, error)
	// Download fetches raw bytes without decoding.
	Download(ctx context.Context, url string) (Response, error)
}

// AssetStore persists fetched artifacts and returns their location.
type AssetStore interface {
	Store(ctx context.Context, kind AssetKind, sourceURL string, data []byte, contentType string) (string, error)
}

// CaseStore is the persistence collaborator for cases and their attachments.
type CaseStore interface {
	// FindCaseByURL returns ErrNotFound when no case has that URL.
	FindCaseByURL(ctx context.Context, url string) (*Case, error)
	// CreateCase inserts c and fills its ID. A duplicate URL yields ErrPersistenceConflict.
	CreateCase(ctx context.Context, c *Case) error
	SaveCase(ctx context.Context, c *Case) error
	AddDocument(ctx context.Context, doc *Document) error
	AddImage(ctx context.Context, img *Image) error
}

// PDFTextExtractor reads plain text from the first pages of a PDF.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, data []byte, maxPages int) (string, error)
}

// Queue provides enqueue/dequeue semantics for batch jobs.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run and job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
