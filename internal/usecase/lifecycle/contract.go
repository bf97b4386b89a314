package lifecycle

import (
	"context"

	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/usecase/index"
)

// Indexer is the per-type index adapter used by the orchestrator.
type Indexer interface {
	IsAvailable(ctx context.Context) (bool, error)
	Put(ctx context.Context, doc *document.Document) error
	Remove(ctx context.Context, recordID string) error
	Clear(ctx context.Context) (int, error)
}

// Resolver returns the indexer of a record type.
type Resolver interface {
	Resolve(typeName string) (Indexer, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(typeName string) (Indexer, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(typeName string) (Indexer, error) { return f(typeName) }

// AdaptersOf exposes the adapters of set as a Resolver.
func AdaptersOf(set *index.Set) Resolver {
	return ResolverFunc(func(typeName string) (Indexer, error) {
		a, err := set.Resolve(typeName)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

// RecordStore loads every record of a type for reindexing.
type RecordStore interface {
	FetchAll(ctx context.Context, typeName string) ([]*record.Record, error)
}
