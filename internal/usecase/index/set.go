package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/domain"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// Option configures the adapters of a Set.
type Option func(*Adapter)

// WithTimeout bounds every index service call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// WithPageSize sets the page size used when listing entries.
func WithPageSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// Set holds one adapter per record type that resolves to a searchable base.
// It is built once from the registry and only read afterwards.
type Set struct {
	adapters map[string]*Adapter
	skipped  map[string]error
	names    []string
}

// NewSet builds the adapters for every type in reg. Types without a
// searchable base get no adapter; resolving them is a configuration error.
func NewSet(
	reg *searchable.Registry, pool *Pool, ep Endpoint,
	hydrator Hydrator, logger *zap.Logger, opts ...Option,
) (*Set, error) {
	if reg == nil || pool == nil || hydrator == nil {
		return nil, fmt.Errorf("index set: registry, pool and hydrator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Set{
		adapters: make(map[string]*Adapter),
		skipped:  make(map[string]error),
	}
	for _, name := range reg.Names() {
		typ, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		if _, err := typ.Base(); err != nil {
			s.skipped[name] = err
			continue
		}
		a := newAdapter(typ, pool, ep, hydrator, logger)
		for _, opt := range opts {
			opt(a)
		}
		s.adapters[name] = a
		s.names = append(s.names, name)
	}
	return s, nil
}

// Resolve returns the adapter of typeName.
func (s *Set) Resolve(typeName string) (*Adapter, error) {
	if a, ok := s.adapters[typeName]; ok {
		return a, nil
	}
	if err, ok := s.skipped[typeName]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownType, typeName)
}

// Names returns the types with an adapter, in registration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Connect records ep on every adapter.
func (s *Set) Connect(ep Endpoint) error {
	for _, name := range s.names {
		if err := s.adapters[name].Connect(ep); err != nil {
			return err
		}
	}
	return nil
}

// Search resolves typeName and runs the search on its adapter.
func (s *Set) Search(ctx context.Context, typeName, text string, opts request.Options) (result.Result, error) {
	a, err := s.Resolve(typeName)
	if err != nil {
		return result.Result{}, err
	}
	return a.Search(ctx, text, opts)
}

// ListAll resolves typeName and lists the entries in its scope.
func (s *Set) ListAll(ctx context.Context, typeName string) ([]Entry, error) {
	a, err := s.Resolve(typeName)
	if err != nil {
		return nil, err
	}
	return a.ListAll(ctx)
}
