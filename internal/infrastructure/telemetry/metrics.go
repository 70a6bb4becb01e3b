package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "water_service"

var (
	metricProjections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projections_total",
			Help:      "Completed demand projections",
		},
		[]string{"source"},
	)

	metricProjectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Time spent computing one projection horizon",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)

	metricRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_record_failures_total",
			Help:      "Accepted requests that could not be written to the audit store",
		},
	)

	metricRegionLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_lookups_total",
			Help:      "Region lookups by outcome (found, not_found, disabled, error)",
		},
		[]string{"outcome"},
	)

	metricHTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	metricHTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// ObserveProjection records one completed projection.
func ObserveProjection(source string, elapsed time.Duration) {
	metricProjections.WithLabelValues(source).Inc()
	metricProjectionDuration.Observe(elapsed.Seconds())
}

func IncRecordFailure() {
	metricRecordFailures.Inc()
}

func IncRegionLookup(outcome string) {
	metricRegionLookups.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records a served request. route is the mux pattern, not
// the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(route string, code int, elapsed time.Duration) {
	metricHTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	metricHTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
