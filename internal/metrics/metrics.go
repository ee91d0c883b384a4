// Package metrics exposes Prometheus instrumentation for the allocation
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts service operations by name and outcome
	// (ok, validation, permission_denied, not_found, conflict, storage).
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staffing",
		Subsystem: "allocations",
		Name:      "operations_total",
		Help:      "Allocation service operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	// OperationDuration observes service operation latency.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staffing",
		Subsystem: "allocations",
		Name:      "operation_duration_seconds",
		Help:      "Allocation service operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// ConflictsDetected counts rejected writes that would have overcommitted
	// a user.
	ConflictsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "staffing",
		Subsystem: "allocations",
		Name:      "conflicts_detected_total",
		Help:      "Writes rejected because they would exceed 100% capacity.",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
