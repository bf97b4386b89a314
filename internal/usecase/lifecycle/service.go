package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/metrics"
)

// Lifecycle event names used in logs and metrics.
const (
	EventCreate  = "create"
	EventUpdate  = "update"
	EventDestroy = "destroy"
	EventReindex = "reindex"
)

// Service mirrors record lifecycle events into the index.
type Service struct {
	types    document.TypeLookup
	indexers Resolver
	records  RecordStore
	logger   *zap.Logger
}

// New creates a Service. records may be nil when reindexing is not needed.
func New(types document.TypeLookup, indexers Resolver, records RecordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{types: types, indexers: indexers, records: records, logger: logger}
}

// AfterCreate indexes a newly created record.
func (s *Service) AfterCreate(ctx context.Context, rec *record.Record) (err error) {
	defer s.observe(EventCreate, rec, &err)

	idx, err := s.indexers.Resolve(rec.Type())
	if err != nil {
		return err
	}
	return s.put(ctx, idx, rec)
}

// AfterUpdate reindexes rec when a watched attribute changed.
func (s *Service) AfterUpdate(ctx context.Context, rec *record.Record) (err error) {
	if !rec.IsChanged() {
		return nil
	}
	defer s.observe(EventUpdate, rec, &err)
	return s.UpdateIndex(ctx, rec, false)
}

// UpdateIndex replaces the record's entry. Unless force is set it does
// nothing when no watched attribute changed.
func (s *Service) UpdateIndex(ctx context.Context, rec *record.Record, force bool) error {
	if !force && !rec.IsChanged() {
		return nil
	}
	idx, err := s.indexers.Resolve(rec.Type())
	if err != nil {
		return err
	}
	if err := idx.Remove(ctx, rec.IDString()); err != nil {
		return fmt.Errorf("update index: %w", err)
	}
	return s.put(ctx, idx, rec)
}

// AfterDestroy removes the record's entries. A record that was never
// indexed is not an error.
func (s *Service) AfterDestroy(ctx context.Context, rec *record.Record) (err error) {
	defer s.observe(EventDestroy, rec, &err)

	idx, err := s.indexers.Resolve(rec.Type())
	if err != nil {
		return err
	}
	if err := idx.Remove(ctx, rec.IDString()); err != nil {
		return fmt.Errorf("remove from index: %w", err)
	}
	return nil
}

// AfterSave forgets the record's pending changes.
func (s *Service) AfterSave(rec *record.Record) {
	rec.ClearChanges()
}

// Saved runs the create or update hook and clears the change set only when
// the index was updated; a failed sync leaves the record dirty.
func (s *Service) Saved(ctx context.Context, rec *record.Record, created bool) error {
	var err error
	if created {
		err = s.AfterCreate(ctx, rec)
	} else {
		err = s.AfterUpdate(ctx, rec)
	}
	if err != nil {
		return err
	}
	s.AfterSave(rec)
	return nil
}

// ReindexAll rebuilds the entry of every record of typeName, one at a time.
// On failure it stops and returns how many records were reindexed.
func (s *Service) ReindexAll(ctx context.Context, typeName string) (int, error) {
	if s.records == nil {
		return 0, fmt.Errorf("reindex %s: no record store configured", typeName)
	}
	idx, err := s.indexers.Resolve(typeName)
	if err != nil {
		return 0, err
	}
	ok, err := idx.IsAvailable(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.logger.Warn("Reindex skipped, index unavailable", zap.String("type", typeName))
		return 0, nil
	}

	recs, err := s.records.FetchAll(ctx, typeName)
	if err != nil {
		return 0, fmt.Errorf("reindex %s: fetch records: %w", typeName, err)
	}

	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("reindex %s: %w", typeName, err)
		}
		err := s.UpdateIndex(ctx, rec, true)
		s.observe(EventReindex, rec, &err)
		if err != nil {
			return i, fmt.Errorf("reindex %s: record %s: %w", typeName, rec.IDString(), err)
		}
	}

	s.logger.Info("Reindex completed", zap.String("type", typeName), zap.Int("records", len(recs)))
	return len(recs), nil
}

// ClearIndex removes every entry in the scope of typeName.
func (s *Service) ClearIndex(ctx context.Context, typeName string) (int, error) {
	idx, err := s.indexers.Resolve(typeName)
	if err != nil {
		return 0, err
	}
	n, err := idx.Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("clear %s: %w", typeName, err)
	}
	return n, nil
}

func (s *Service) put(ctx context.Context, idx Indexer, rec *record.Record) error {
	doc, err := document.Build(s.types, rec)
	if err != nil {
		return err
	}
	if err := idx.Put(ctx, &doc); err != nil {
		return fmt.Errorf("put into index: %w", err)
	}
	return nil
}

func (s *Service) observe(event string, rec *record.Record, err *error) {
	metrics.SyncEventsTotal.WithLabelValues(event, metrics.Status(*err)).Inc()
	if *err != nil {
		s.logger.Error("Index sync failed",
			zap.String("event", event),
			zap.String("type", rec.Type()),
			zap.Int64("record_id", rec.ID()),
			zap.Error(*err),
		)
	}
}
