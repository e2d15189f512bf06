// Package chi serves the query form, the JSON search API and operational endpoints.
package chi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// maxFormBytes bounds the POST / body.
const maxFormBytes = 64 << 10

// Error codes returned in JSON error bodies.
const (
	codeBadRequest        = "bad_request"
	codeInvalidK          = "invalid_k"
	codeEmptyQuery        = "empty_query"
	codeDimensionMismatch = "dimension_mismatch"
	codeCorpusUnavailable = "corpus_unavailable"
	codeCacheCorrupt      = "cache_corrupt"
	codeEmbeddingProvider = "embedding_provider_error"
	codeInternal          = "internal_error"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Searcher answers queries.
type Searcher interface {
	Query(ctx context.Context, text string, k int) (searchuc.Response, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorMapping binds a domain sentinel to its HTTP representation.
type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrEmptyQuery, http.StatusBadRequest, codeEmptyQuery},
	{domain.ErrInvalidK, http.StatusBadRequest, codeInvalidK},
	{domain.ErrDimensionMismatch, http.StatusInternalServerError, codeDimensionMismatch},
	{domain.ErrCorpusUnavailable, http.StatusServiceUnavailable, codeCorpusUnavailable},
	{domain.ErrCacheCorrupt, http.StatusServiceUnavailable, codeCacheCorrupt},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider},
}

// Options configure the HTTP server.
type Options struct {
	// DefaultK is the result count when a request does not name one.
	DefaultK int
	// TokenizerName is shown above the token list on the form page.
	TokenizerName string
}

// Server handles HTTP requests.
type Server struct {
	search Searcher
	health HealthChecker
	opts   Options
	logger *zap.Logger
}

// NewServer creates an HTTP server.
func NewServer(search Searcher, health HealthChecker, opts Options, logger *zap.Logger) *Server {
	if opts.DefaultK <= 0 {
		opts.DefaultK = 3
	}
	return &Server{search: search, health: health, opts: opts, logger: logger}
}

// Handler builds the chi router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/", s.Home)
	r.Post("/", s.Home)
	r.Get("/api/search", s.SearchAPI)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

type pageData struct {
	Query     string
	Tokenizer string
	Tokens    []string
	Results   []resultItem
	Error     string
}

type resultItem struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type searchResponse struct {
	Query     string       `json:"query"`
	Tokens    []string     `json:"tokens"`
	NumTokens int          `json:"num_tokens"`
	Results   []resultItem `json:"results"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Home handles GET / and POST /. A POST with a non-empty query renders tokens and results.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	data := pageData{Tokenizer: s.opts.TokenizerName}
	status := http.StatusOK

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			data.Error = "invalid form"
			s.renderPage(w, r, http.StatusBadRequest, data)
			return
		}
		data.Query = r.PostFormValue("query")

		resp, err := s.search.Query(r.Context(), data.Query, s.opts.DefaultK)
		switch {
		case errors.Is(err, domain.ErrEmptyQuery):
			// Blank submission renders the bare form.
		case err != nil:
			m := s.mapError(r.Context(), err)
			status = m.status
			data.Error = m.message
		default:
			data.Tokens = resp.Tokens
			data.Results = toItems(resp.Results)
		}
	}

	s.renderPage(w, r, status, data)
}

// SearchAPI handles GET /api/search?q=...&k=....
func (s *Server) SearchAPI(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid parameter q: "+err.Error())
		return
	}

	// Optional parameters bind through a pointer, nil when absent.
	var kParam *int
	if err := runtime.BindQueryParameter("form", true, false, "k", r.URL.Query(), &kParam); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidK, "invalid parameter k: "+err.Error())
		return
	}
	k := s.opts.DefaultK
	if kParam != nil {
		k = *kParam
	}

	resp, err := s.search.Query(r.Context(), q, k)
	if err != nil {
		m := s.mapError(r.Context(), err)
		writeError(w, m.status, m.code, m.message)
		return
	}

	tokens := resp.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:     resp.Query,
		Tokens:    tokens,
		NumTokens: len(tokens),
		Results:   toItems(resp.Results),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type mappedError struct {
	status  int
	code    string
	message string
}

// mapError translates a domain error into its HTTP form without exposing internals.
func (s *Server) mapError(ctx context.Context, err error) mappedError {
	log := logpkg.FromContext(ctx, s.logger)
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			if m.status >= http.StatusInternalServerError {
				log.Error("query failed", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return mappedError{status: m.status, code: m.code, message: m.sentinel.Error()}
		}
	}
	log.Error("internal error", zap.Error(err))
	return mappedError{status: http.StatusInternalServerError, code: codeInternal, message: "internal error"}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		logpkg.FromContext(r.Context(), s.logger).Error("render page", zap.Error(err))
	}
}

func toItems(results []result.Scored) []resultItem {
	items := make([]resultItem, len(results))
	for i, r := range results {
		items[i] = resultItem{Text: r.Text(), Score: r.Score()}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
