package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/logger"
)

const maxBodyBytes = 1 << 20

// QueryExecutor is satisfied by *executor.Executor and *reload.Reloader.
type QueryExecutor interface {
	Query(terms []string) []int
	Stats() index.Stats
}

// ResultCache is satisfied by *cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, terms []string, compute func() ([]int, error)) ([]int, bool, error)
	Invalidate(ctx context.Context) error
	Stats() (hits, misses int64)
}

type QueryResponse struct {
	Query     string   `json:"query,omitempty"`
	Terms     []string `json:"terms"`
	TotalHits int      `json:"total_hits"`
	DocIDs    []int    `json:"doc_ids"`
	CacheHit  bool     `json:"cache_hit"`
}

type queryRequest struct {
	Terms []any `json:"terms"`
}

type Handler struct {
	executor QueryExecutor
	cache    ResultCache
	logger   *slog.Logger
}

// New returns the query API handler. queryCache may be nil.
func New(exec QueryExecutor, queryCache ResultCache) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		logger:   slog.Default().With("component", "query-handler"),
	}
}

// Query serves GET /api/v1/query?q=word+word.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("q") {
		h.writeError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	plan := parser.Parse(r.URL.Query().Get("q"))
	h.respond(w, r, plan.RawQuery, plan.Terms)
}

// QueryJSON serves POST /api/v1/query with a body of {"terms": [...]}.
func (h *Handler) QueryJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req queryRequest
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "decoding request body: %v", err))
		return
	}
	terms, err := executor.Terms(req.Terms)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, "", terms)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, raw string, terms []string) {
	start := time.Now()
	ctx := r.Context()

	var ids []int
	cacheHit := false
	if h.cache != nil && len(terms) > 0 {
		var err error
		ids, cacheHit, err = h.cache.GetOrCompute(ctx, terms, func() ([]int, error) {
			return h.executor.Query(terms), nil
		})
		if err != nil {
			h.writeError(w, r, fmt.Errorf("query: %w", err))
			return
		}
	} else {
		ids = h.executor.Query(terms)
	}

	logger.FromContext(ctx).Info("query completed",
		"terms", terms,
		"hits", len(ids),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, QueryResponse{
		Query:     raw,
		Terms:     terms,
		TotalHits: len(ids),
		DocIDs:    ids,
		CacheHit:  cacheHit,
	})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.executor.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Client errors carry their message;
// server errors are logged and answered generically.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
