// Package router wires the query service routes and middleware chain.
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/middleware"
)

// New builds the query service handler.
//
// Route table:
//
//	GET    /api/v1/query              → AND query, terms in ?q=
//	POST   /api/v1/query              → AND query, {"terms": [...]}
//	GET    /api/v1/index/stats        → term, posting and document counts
//	GET    /api/v1/cache/stats        → query cache hit rate
//	POST   /api/v1/cache/invalidate   → drop cached results
//	GET    /health/live               → liveness
//	GET    /health/ready              → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → mux
//
// m may be nil, in which case requests are not instrumented.
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("GET /api/v1/query", h.Query)
	mux.HandleFunc("POST /api/v1/query", h.QueryJSON)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	var chain http.Handler = mux
	if requestTimeout > 0 {
		chain = middleware.Timeout(requestTimeout)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}
