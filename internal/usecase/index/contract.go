package index

import (
	"context"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/record"
)

// IndexService is the part of the index service driver the adapter uses.
type IndexService interface {
	Ping(ctx context.Context) error
	PutDocument(ctx context.Context, doc *document.Document) (string, error)
	DeleteDocument(ctx context.Context, indexID string) error
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Hydrator loads records by id for hydrated search results. Records come
// back in the order of ids unless find sets an explicit order.
type Hydrator interface {
	FetchByIDs(ctx context.Context, typeName string, ids []string, find map[string]any) ([]*record.Record, error)
}
