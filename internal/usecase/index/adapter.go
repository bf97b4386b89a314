package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
	"github.com/kailas-cloud/ftsync/internal/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 500
)

// Entry is one stored document as reported by ListAll.
type Entry struct {
	IndexID  string
	RecordID string
	URI      string
	Digest   string
}

// Adapter talks to the index service on behalf of one record type: it
// writes and removes that type's documents and searches within its scope.
type Adapter struct {
	typ      *searchable.Type
	pool     *Pool
	hydrator Hydrator
	logger   *zap.Logger
	timeout  time.Duration
	pageSize int

	mu       sync.Mutex
	endpoint Endpoint
	svc      IndexService
}

func newAdapter(typ *searchable.Type, pool *Pool, ep Endpoint, hydrator Hydrator, logger *zap.Logger) *Adapter {
	return &Adapter{
		typ:      typ,
		pool:     pool,
		hydrator: hydrator,
		logger:   logger.With(zap.String("type", typ.Name())),
		timeout:  defaultTimeout,
		pageSize: defaultPageSize,
		endpoint: ep,
	}
}

// Type returns the record type served by the adapter.
func (a *Adapter) Type() *searchable.Type { return a.typ }

// Endpoint returns the recorded endpoint.
func (a *Adapter) Endpoint() Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endpoint
}

// Connect records ep as the adapter's endpoint. Connecting again to the same
// endpoint is a no-op. The index service is not probed.
func (a *Adapter) Connect(ep Endpoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil && a.endpoint == ep {
		return nil
	}
	svc, err := a.pool.Get(ep)
	if err != nil {
		return fmt.Errorf("connect %s: %w", a.typ.Name(), err)
	}
	a.endpoint, a.svc = ep, svc
	return nil
}

func (a *Adapter) service() (IndexService, error) {
	a.mu.Lock()
	svc, ep := a.svc, a.endpoint
	a.mu.Unlock()
	if svc != nil {
		return svc, nil
	}
	if err := a.Connect(ep); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc, nil
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// IsAvailable probes the index service. When the probe fails, quiet types
// log and report false; other types return an *domain.IndexUnavailableError.
func (a *Adapter) IsAvailable(ctx context.Context) (bool, error) {
	err := a.ping(ctx)
	if err == nil {
		return true, nil
	}
	if a.typ.Quiet() {
		a.logger.Error("Index service unavailable", zap.Stringer("endpoint", a.Endpoint()), zap.Error(err))
		return false, nil
	}
	return false, &domain.IndexUnavailableError{Type: a.typ.Name(), Err: err}
}

func (a *Adapter) ping(ctx context.Context) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Put stores doc in the index.
func (a *Adapter) Put(ctx context.Context, doc *document.Document) error {
	svc, err := a.service()
	if err != nil {
		return a.writeError("put", doc.RecordID(), err)
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	indexID, err := svc.PutDocument(ctx, doc)
	if err != nil {
		return a.writeError("put", doc.RecordID(), err)
	}
	a.logger.Debug("Document indexed", zap.String("record_id", doc.RecordID()), zap.String("index_id", indexID))
	return nil
}

// Remove deletes every entry of the record in this type's scope. A record
// without entries is not an error.
func (a *Adapter) Remove(ctx context.Context, recordID string) error {
	byID, err := filter.New(searchable.AttrID, filter.StrEq, recordID)
	if err != nil {
		return a.writeError("remove", recordID, err)
	}
	entries, err := a.collect(ctx, filter.Expression{}.With(byID).With(a.typ.Scope()))
	if err != nil {
		return a.writeError("remove", recordID, err)
	}
	if len(entries) == 0 {
		return nil
	}

	svc, err := a.service()
	if err != nil {
		return a.writeError("remove", recordID, err)
	}
	for _, e := range entries {
		if err := a.delete(ctx, svc, e.Key); err != nil {
			return a.writeError("remove", recordID, err)
		}
	}
	a.logger.Debug("Document removed", zap.String("record_id", recordID), zap.Int("entries", len(entries)))
	return nil
}

func (a *Adapter) delete(ctx context.Context, svc IndexService, indexID string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	if err := svc.DeleteDocument(ctx, indexID); err != nil {
		return fmt.Errorf("delete %s: %w", indexID, err)
	}
	return nil
}

func (a *Adapter) writeError(op, recordID string, err error) error {
	return &domain.IndexWriteError{Op: op, Type: a.typ.Name(), RecordID: recordID, Err: err}
}

// Search runs a full-text search in this type's scope. Options are validated
// before the index service is contacted.
func (a *Adapter) Search(ctx context.Context, text string, opts request.Options) (result.Result, error) {
	req, err := request.New(text, opts)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Type == "" {
			cfgErr.Type = a.typ.Name()
		}
		return result.Result{}, err
	}

	ok, err := a.IsAvailable(ctx)
	if err != nil {
		return result.Result{}, err
	}
	if !ok {
		return result.Empty(req.Mode()), nil
	}

	scope := a.typ.Scope()
	if req.AllTypes() {
		scope = searchable.AllTypesScope()
	}
	q := &db.SearchQuery{
		Phrase:  req.Phrase(),
		Filters: req.Filters().With(scope),
		Order:   req.Order(),
		Offset:  req.Offset(),
		Limit:   req.Limit(),
	}
	a.logger.Debug("Search condition", zap.Stringer("condition", q), zap.String("mode", string(req.Mode())))

	res, err := a.search(ctx, q)
	if err != nil {
		return result.Result{}, fmt.Errorf("search %s: %w", a.typ.Name(), err)
	}
	metrics.SearchHits.Observe(float64(res.Total))

	switch req.Mode() {
	case request.Count:
		return result.Counted(res.Total), nil
	case request.Raw:
		return result.Matched(res.Total, toHits(res.Entries)), nil
	}

	if len(res.Entries) == 0 {
		return result.Empty(request.Hydrate), nil
	}
	hits := toHits(res.Entries)
	ids := make([]string, len(hits))
	for i := range hits {
		ids[i] = hits[i].RecordID()
	}
	records, err := a.hydrator.FetchByIDs(ctx, a.typ.Name(), ids, req.Find())
	if err != nil {
		return result.Result{}, fmt.Errorf("hydrate %s: %w", a.typ.Name(), err)
	}
	return result.Hydrated(res.Total, hits, records), nil
}

func (a *Adapter) search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	svc, err := a.service()
	if err != nil {
		return nil, err
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	res, err := svc.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return res, nil
}

// collect pages through every entry matching filters.
func (a *Adapter) collect(ctx context.Context, filters filter.Expression) ([]db.SearchEntry, error) {
	var out []db.SearchEntry
	for offset := 0; ; offset += a.pageSize {
		res, err := a.search(ctx, &db.SearchQuery{Filters: filters, Offset: offset, Limit: a.pageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, res.Entries...)
		if len(res.Entries) < a.pageSize || offset+len(res.Entries) >= res.Total {
			return out, nil
		}
	}
}

// ListAll returns every entry in this type's scope.
func (a *Adapter) ListAll(ctx context.Context) ([]Entry, error) {
	entries, err := a.collect(ctx, filter.Expression{}.With(a.typ.Scope()))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.typ.Name(), err)
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{
			IndexID:  e.Key,
			RecordID: e.Fields[document.AttrID],
			URI:      e.Fields[document.AttrURI],
			Digest:   e.Fields[document.AttrDigest],
		}
	}
	return out, nil
}

// Clear removes every entry in this type's scope and returns how many were
// removed.
func (a *Adapter) Clear(ctx context.Context) (int, error) {
	entries, err := a.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	svc, err := a.service()
	if err != nil {
		return 0, a.writeError("clear", "", err)
	}
	for i, e := range entries {
		if err := a.delete(ctx, svc, e.IndexID); err != nil {
			return i, a.writeError("clear", e.RecordID, err)
		}
	}
	a.logger.Info("Index cleared", zap.Int("removed", len(entries)))
	return len(entries), nil
}

func toHits(entries []db.SearchEntry) []result.Hit {
	hits := make([]result.Hit, len(entries))
	for i, e := range entries {
		hits[i] = result.NewHit(e.Key, e.Score, e.Fields, e.Texts)
	}
	return hits
}
