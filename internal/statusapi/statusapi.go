// Package statusapi exposes the builder's state over HTTP: health and
// Prometheus metrics for operators, plus versioned JSON views of the latest
// build for downstream consumers.
package statusapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KganDev/irish-rail-schedule/internal/app"
)

// StatusAPI holds the handlers for the status server.
type StatusAPI struct {
	*app.Application
}

// SetRoutes registers all status API routes on the mux.
func (api *StatusAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", api.healthHandler)
	mux.HandleFunc("GET /v1/status", api.statusHandler)
	mux.HandleFunc("GET /v1/windows", api.windowsHandler)
	mux.HandleFunc("GET /v1/diagnostics", api.diagnosticsHandler)
	mux.HandleFunc("GET /debug", api.debugHandler)

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// NewServer builds the status HTTP server with the full middleware chain:
// request-id, then logging, then metrics, then rate limiting.
func NewServer(application *app.Application) (*http.Server, *RateLimitMiddleware) {
	api := &StatusAPI{Application: application}

	mux := http.NewServeMux()
	api.SetRoutes(mux)

	rateLimiter := NewRateLimitMiddleware(application.Config.RateLimit, time.Second, nil, application.Clock)

	var handler http.Handler = mux
	handler = rateLimiter.Handler()(handler)
	handler = MetricsHandler(application.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(application.Logger)(handler)
	handler = RequestIDMiddleware(handler)

	server := &http.Server{
		Addr:         application.Config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}
	return server, rateLimiter
}
