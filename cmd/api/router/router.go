// Package router configures the api service's HTTP routes: per-bus history,
// system stats, ranked anomaly queries, health checks, and Prometheus metrics.
package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buspulse/buspulse/cmd/api/metrics"
	"github.com/buspulse/buspulse/pkg/httpx"
	"github.com/buspulse/buspulse/pkg/liveindex"
)

// DefaultMinRank is the anomaly threshold applied when min_rank is absent.
const DefaultMinRank = 90

// Router serves queries from the live index.
type Router struct {
	index   *liveindex.Index
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new Router backed by the given index.
func New(index *liveindex.Index, logger *slog.Logger, m *metrics.Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{index: index, logger: logger, metrics: m}
}

// SetupRoutes configures HTTP routes for the api with logging and panic
// recovery applied.
func (rt *Router) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /history/{busID}", rt.timed("/history", http.HandlerFunc(rt.handleHistory)))
	mux.Handle("GET /stats", rt.timed("/stats", http.HandlerFunc(rt.handleStats)))
	mux.Handle("GET /anomalies", rt.timed("/anomalies", http.HandlerFunc(rt.handleAnomalies)))

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/metrics", promhttp.Handler())

	var h http.Handler = mux
	h = httpx.LoggingMiddleware(rt.logger)(h)
	h = httpx.RecoveryMiddleware(rt.logger)(h)
	return h
}

func (rt *Router) timed(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		rt.metrics.ObserveHTTPRequest(route, time.Since(start).Seconds())
	})
}

// handleHistory returns the retained record history for one bus, oldest
// first. Unknown buses get an empty array, not a 404: absence of data is a
// valid answer about a bus that has not reported inside the window.
func (rt *Router) handleHistory(w http.ResponseWriter, r *http.Request) {
	busID := r.PathValue("busID")
	if busID == "" {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "bus id is required")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, rt.index.History(busID))
}

// handleStats returns the retained per-window system stats, oldest first.
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, rt.index.Stats())
}

// handleAnomalies returns the top-scored buses at or above min_rank
// (default 90).
func (rt *Router) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	minRank := DefaultMinRank
	if raw := r.URL.Query().Get("min_rank"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "min_rank must be an integer between 0 and 100")
			return
		}
		minRank = v
	}
	_ = httpx.WriteJSON(w, http.StatusOK, rt.index.Anomalies(uint8(minRank)))
}
