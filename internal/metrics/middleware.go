package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ftsync",
			Name:      "api_request_duration_seconds",
			Help:      "Search API request duration in seconds, by API operation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ftsync",
			Name:      "api_requests_total",
			Help:      "Search API requests by operation and response status",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(apiRequestsTotal)
}

// API operation label values.
const (
	OpHealth      = "health"
	OpMetrics     = "metrics"
	OpListTypes   = "list_types"
	OpSearch      = "search"
	OpListEntries = "list_entries"
	OpClear       = "clear"
	OpReindex     = "reindex"
	OpOther       = "other"
)

// Middleware records request duration and count per API operation. The
// operation comes from the chi route pattern, so record type names in the
// path never become label values.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			pattern := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			op := operation(r.Method, pattern)

			apiRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
			apiRequestsTotal.WithLabelValues(op, strconv.Itoa(ww.status)).Inc()
		})
	}
}

// operation maps a method and route pattern to an API operation.
func operation(method, pattern string) string {
	switch strings.TrimSuffix(pattern, "/") {
	case "/health":
		return OpHealth
	case "/metrics":
		return OpMetrics
	case "/types":
		return OpListTypes
	case "/types/{type}/search":
		return OpSearch
	case "/types/{type}/reindex":
		return OpReindex
	case "/types/{type}/entries":
		if method == http.MethodDelete {
			return OpClear
		}
		return OpListEntries
	}
	return OpOther
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
