// Package router configures HTTP routes for the ingester's auxiliary HTTP
// server: health checks and Prometheus metrics. The ingester serves no data;
// queries go to the api service.
package router

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buspulse/buspulse/pkg/httpx"
)

// SetupRoutes configures HTTP routes for the ingester.
func SetupRoutes(logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
