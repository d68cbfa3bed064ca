package api

import (
	"delivery-planner/internal/api/handlers"
	"delivery-planner/internal/platform/metrics"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers only see the Planner interface, never concrete adapters.
func NewRouter(planner handlers.Planner, defaultCapacity float64) http.Handler {
	mux := http.NewServeMux()

	planHandler := &handlers.PlanHandler{
		Planner:         planner,
		DefaultCapacity: defaultCapacity,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/plans", planHandler.Plan)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return loggingMiddleware(mux)
}
