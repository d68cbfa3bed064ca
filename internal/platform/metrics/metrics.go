package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the planner.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path"},
	)

	// ProviderLookups counts distance provider calls by outcome (ok, unreachable, error).
	ProviderLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_provider_lookups_total", Help: "Distance provider lookups by outcome."},
		[]string{"outcome"},
	)
	// CacheLookups counts distance cache lookups by result (hit, miss).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_cache_lookups_total", Help: "Distance cache lookups by result."},
		[]string{"result"},
	)
	// FallbackPairs counts matrix pairs filled from the straight-line estimate.
	FallbackPairs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "distance_fallback_pairs_total", Help: "Matrix pairs estimated after provider failure."},
	)
	// OutOfRadiusPairs counts pairs declared unreachable by the delivery radius policy.
	OutOfRadiusPairs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "distance_out_of_radius_pairs_total", Help: "Matrix pairs beyond the maximum delivery radius."},
	)
	// MatrixBuildDuration tracks cost matrix construction latency in seconds.
	MatrixBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "cost_matrix_build_duration_seconds", Help: "Cost matrix build duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
	)
	// TwoOptImprovements counts accepted 2-opt exchanges.
	TwoOptImprovements = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "tour_two_opt_improvements_total", Help: "Accepted 2-opt exchanges."},
	)
	// Plans counts planning runs by status (complete, partial, failed, rejected).
	Plans = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "plans_total", Help: "Planning runs by status."},
		[]string{"status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the planner registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ProviderLookups)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(FallbackPairs)
		Registry.MustRegister(OutOfRadiusPairs)
		Registry.MustRegister(MatrixBuildDuration)
		Registry.MustRegister(TwoOptImprovements)
		Registry.MustRegister(Plans)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
