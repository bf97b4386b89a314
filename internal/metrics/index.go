package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Index service Prometheus metrics.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsync",
			Name:      "index_operations_total",
			Help:      "Total number of index service operations",
		},
		[]string{"op", "status"},
	)

	IndexOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ftsync",
			Name:      "index_operation_duration_seconds",
			Help:      "Index service operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ftsync",
			Name:      "search_hits",
			Help:      "Total hits reported per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsync",
			Name:      "sync_events_total",
			Help:      "Record lifecycle events mirrored into the index",
		},
		[]string{"event", "status"}, // event: create/update/destroy/reindex
	)
)

var registerIndexOnce sync.Once

// RegisterIndexMetrics registers the index and sync metrics. Safe to call more than once.
func RegisterIndexMetrics() {
	registerIndexOnce.Do(func() {
		prometheus.MustRegister(IndexOperationsTotal)
		prometheus.MustRegister(IndexOperationDuration)
		prometheus.MustRegister(SearchHits)
		prometheus.MustRegister(SyncEventsTotal)
	})
}

// Status returns the status label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
