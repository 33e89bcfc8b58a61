package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	pathWS      = "/ws"
	pathHealth  = "/health"
	pathMetrics = "/metrics"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET "+pathHealth, a.routes.health.HealthCheck)

	// Tracking socket
	a.mux.HandleFunc("GET "+pathWS, a.routes.ws.HandleWS)

	setupMetricsRoute(a.mux)
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET "+pathMetrics, promhttp.Handler())
}
