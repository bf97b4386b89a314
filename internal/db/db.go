package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/ftsync/internal/domain/document"
)

// IndexService is the full-text index facade shared by every driver.
type IndexService interface {
	Pinger
	IndexManager
	DocumentWriter
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks index service connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides index lifecycle operations.
type IndexManager interface {
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context) (bool, error)
}

// DocumentWriter registers and removes documents.
type DocumentWriter interface {
	// PutDocument stores doc, replacing any entry with the same URI, and
	// returns its index id.
	PutDocument(ctx context.Context, doc *document.Document) (string, error)
	// DeleteDocument removes the entry with the given index id. Deleting a
	// missing entry is not an error.
	DeleteDocument(ctx context.Context, indexID string) error
}

// Searcher runs conditions against the index.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}
