package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/domain"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/ftsync/internal/usecase/health"
	indexuc "github.com/kailas-cloud/ftsync/internal/usecase/index"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeConfiguration    ErrorCode = "configuration_error"
	CodeUnknownType      ErrorCode = "unknown_type"
	CodeIndexUnavailable ErrorCode = "index_unavailable"
	CodeIndexWrite       ErrorCode = "index_write_failed"
	CodeInternal         ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Searcher runs searches and lists entries per record type.
type Searcher interface {
	Names() []string
	Search(ctx context.Context, typeName, text string, opts request.Options) (result.Result, error)
	ListAll(ctx context.Context, typeName string) ([]indexuc.Entry, error)
}

// Maintainer rebuilds and clears the entries of a record type.
type Maintainer interface {
	ReindexAll(ctx context.Context, typeName string) (int, error)
	ClearIndex(ctx context.Context, typeName string) (int, error)
}

// HealthChecker reports the health of the backing services.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search API.
type Server struct {
	search        Searcher
	maintenance   Maintainer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, maintenance Maintainer, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:      search,
		maintenance: maintenance,
		health:      health,
		logger:      logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, CodeConfiguration),
			sentinelHandler(domain.ErrUnknownType, http.StatusNotFound, CodeUnknownType),
			sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
			sentinelHandler(domain.ErrIndexWrite, http.StatusBadGateway, CodeIndexWrite),
		},
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/types", func(r chi.Router) {
		r.Get("/", s.ListTypes)
		r.Route("/{type}", func(r chi.Router) {
			r.Get("/search", s.SearchQuery)
			r.Post("/search", s.SearchBody)
			r.Get("/entries", s.ListEntries)
			r.Delete("/entries", s.ClearEntries)
			r.Post("/reindex", s.Reindex)
		})
	})
}

// ListTypes handles GET /types.
func (s *Server) ListTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"types": s.search.Names()})
}

// SearchQuery handles GET /types/{type}/search. The phrase is read from q,
// every other parameter is a search option; attributes may repeat.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	q.Del("q")

	opts, err := request.OptionsFromMap(optionsFromQuery(q))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.runSearch(w, r, text, opts)
}

// SearchRequest is the body of POST /types/{type}/search.
type SearchRequest struct {
	Query   string         `json:"q"`
	Options map[string]any `json:"options"`
}

// SearchBody handles POST /types/{type}/search.
func (s *Server) SearchBody(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	opts, err := request.OptionsFromMap(req.Options)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.runSearch(w, r, req.Query, opts)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, text string, opts request.Options) {
	res, err := s.search.Search(r.Context(), chi.URLParam(r, "type"), text, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResultToJSON(&res))
}

// ListEntries handles GET /types/{type}/entries.
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.search.ListAll(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = EntryResponse{ID: e.RecordID, URI: e.URI, Digest: e.Digest}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// ClearEntries handles DELETE /types/{type}/entries.
func (s *Server) ClearEntries(w http.ResponseWriter, r *http.Request) {
	n, err := s.maintenance.ClearIndex(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// Reindex handles POST /types/{type}/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := s.maintenance.ReindexAll(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		s.logger.Warn("reindex aborted", zap.Int("reindexed", n), zap.Error(err))
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reindexed": n})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// optionsFromQuery keeps repeated attributes as a list and every other
// parameter as its first value.
func optionsFromQuery(q url.Values) map[string]any {
	m := make(map[string]any, len(q))
	for k, v := range q {
		if len(v) == 0 {
			continue
		}
		if k == request.KeyAttributes {
			m[k] = v
			continue
		}
		m[k] = v[0]
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a message for the client without exposing internals.
// Configuration errors carry the caller's mistake and are returned as is.
func safeDomainMessage(err error) string {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	sentinels := []error{
		domain.ErrUnknownType,
		domain.ErrIndexUnavailable,
		domain.ErrIndexWrite,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
