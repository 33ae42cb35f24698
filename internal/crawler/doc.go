// Package crawler holds the core model of the case-law crawler: the persisted
// Case, Document and Image records, the parsed detail page, the collaborator
// interfaces the orchestrator depends on, the error taxonomy and the retry
// policy shared by the fetcher and the persistence layer.
package crawler
