// Package metrics holds the Prometheus registry and collectors for the
// hierarchy service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Registry = prometheus.NewRegistry()

	// OperationsTotal counts committed structural mutations by operation name
	OperationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_operations_total",
			Help: "Total number of committed hierarchy operations by operation type",
		},
		[]string{"operation"},
	)

	// HTTPRequestsTotal counts handled HTTP requests by method, route and status
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route
	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cabinet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"method", "route"},
	)
)

// IncOperation increments the committed-operation counter for op
func IncOperation(op string) {
	OperationsTotal.WithLabelValues(op).Inc()
}
