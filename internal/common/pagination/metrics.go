package pagination

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts the total number of pagination requests, by
	// response status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "item_pagination_requests_total",
			Help: "Total number of pagination requests",
		},
		[]string{"status"},
	)

	// DurationSeconds tracks request duration distribution.
	// Labels: operation (handler, service, repository)
	DurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "item_pagination_duration_seconds",
			Help:    "Request duration distribution",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	// ErrorsTotal counts pagination errors by type.
	// Labels: type (validation, database, timeout)
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "item_pagination_errors_total",
			Help: "Total number of pagination errors",
		},
		[]string{"type"},
	)
)

// RecordRequest records a pagination request metric.
func RecordRequest(statusCode int) {
	RequestsTotal.WithLabelValues(fmt.Sprintf("%d", statusCode)).Inc()
}

// RecordDuration records operation duration in seconds.
func RecordDuration(operation string, duration float64) {
	DurationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordError records an error metric.
// errorType should be one of: "validation", "database", "timeout"
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}
