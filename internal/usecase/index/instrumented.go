package index

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	"github.com/kailas-cloud/ftsync/internal/metrics"
)

// InstrumentedService wraps an IndexService with operation metrics and
// failure logging.
type InstrumentedService struct {
	inner  IndexService
	logger *zap.Logger
}

// NewInstrumentedService wraps inner.
func NewInstrumentedService(inner IndexService, logger *zap.Logger) *InstrumentedService {
	return &InstrumentedService{inner: inner, logger: logger}
}

func (s *InstrumentedService) observe(op string, start time.Time, err error) {
	duration := time.Since(start)
	metrics.IndexOperationsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
	metrics.IndexOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		s.logger.Warn("Index operation failed",
			zap.String("op", op),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
}

// Ping delegates to the inner service.
func (s *InstrumentedService) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.observe("ping", start, err)
	return err //nolint:wrapcheck // decorator
}

// PutDocument delegates to the inner service.
func (s *InstrumentedService) PutDocument(ctx context.Context, doc *document.Document) (string, error) {
	start := time.Now()
	id, err := s.inner.PutDocument(ctx, doc)
	s.observe("put", start, err)
	return id, err //nolint:wrapcheck // decorator
}

// DeleteDocument delegates to the inner service.
func (s *InstrumentedService) DeleteDocument(ctx context.Context, indexID string) error {
	start := time.Now()
	err := s.inner.DeleteDocument(ctx, indexID)
	s.observe("delete", start, err)
	return err //nolint:wrapcheck // decorator
}

// Search delegates to the inner service.
func (s *InstrumentedService) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	start := time.Now()
	res, err := s.inner.Search(ctx, q)
	s.observe("search", start, err)
	return res, err //nolint:wrapcheck // decorator
}

// Close closes the inner service when it can be closed.
func (s *InstrumentedService) Close() {
	if c, ok := s.inner.(interface{ Close() }); ok {
		c.Close()
	}
}
