package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/ftsync/internal/db"
)

// Compile-time check: Store implements db.IndexService.
var _ db.IndexService = (*Store)(nil)

// Internal document fields. Registered attribute names never start with "__".
const (
	textsField     = "__texts"
	textsJSONField = "__texts_json"
	numSuffix      = "__num"
)

var errClosed = errors.New("index is closed")

// Config selects where the index lives. An empty Path keeps it in memory.
type Config struct {
	Path string
}

// Store implements db.IndexService on an embedded bleve index. The index is
// opened on first use.
type Store struct {
	cfg Config

	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// NewStore returns a store that opens its index lazily.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// NewMemStore returns an in-memory store, useful for tests and local runs.
func NewMemStore() *Store {
	return NewStore(Config{})
}

func (s *Store) open() (bleve.Index, error) {
	s.mu.RLock()
	idx, closed := s.index, s.closed
	s.mu.RUnlock()
	if closed {
		return nil, errClosed
	}
	if idx != nil {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	if s.index != nil {
		return s.index, nil
	}

	m, err := newIndexMapping()
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	if s.cfg.Path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
			return nil, &db.Error{Op: db.OpOpen, Err: err}
		}
		idx, err = bleve.Open(s.cfg.Path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(s.cfg.Path, m)
		}
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}

	s.index = idx
	return idx, nil
}

// newIndexMapping indexes every attribute as one exact keyword term, numeric
// shadows dynamically as numbers, and the text blocks with the standard analyzer.
func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = keyword.Name

	texts := bleve.NewTextFieldMapping()
	texts.Analyzer = standard.Name
	texts.Store = true

	textsJSON := bleve.NewTextFieldMapping()
	textsJSON.Index = false
	textsJSON.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(textsField, texts)
	doc.AddFieldMappingsAt(textsJSONField, textsJSON)
	im.DefaultMapping = doc

	if err := im.Validate(); err != nil {
		return nil, fmt.Errorf("validate mapping: %w", err)
	}
	return im, nil
}

// Ping checks that the index can be opened and read.
func (s *Store) Ping(_ context.Context) error {
	idx, err := s.open()
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if _, err := idx.DocCount(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the index opens or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := s.Ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for index: %w", errors.Join(ctx.Err(), err))
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Close closes the index; later calls fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.index != nil {
		_ = s.index.Close()
		s.index = nil
	}
}

// EnsureIndex opens the index. The mapping is dynamic, so every attribute in
// def is indexed without a schema change.
func (s *Store) EnsureIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := s.open(); err != nil {
		return err
	}
	return nil
}

// IndexExists reports whether the index has been opened or exists on disk.
func (s *Store) IndexExists(_ context.Context) (bool, error) {
	s.mu.RLock()
	opened := s.index != nil
	s.mu.RUnlock()
	if opened || s.cfg.Path == "" {
		return opened, nil
	}
	_, err := os.Stat(s.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}
