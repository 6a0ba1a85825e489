package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// GuestRegistrations counts registration attempts by result:
	// success, invalid, duplicate or error
	GuestRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guest_registrations_total",
			Help: "Guest registration attempts by result",
		},
		[]string{"result"},
	)

	CleanupFilesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cleanup_files_deleted_total",
			Help: "Uploaded images removed by the retention sweep",
		},
	)

	CleanupErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cleanup_errors_total",
			Help: "Entries the retention sweep failed to remove",
		},
	)

	registerOnce sync.Once
)

// Register adds every collector to the default registry once
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPRequestsInProgress,
			GuestRegistrations,
			CleanupFilesDeleted,
			CleanupErrors,
		)
	})
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
