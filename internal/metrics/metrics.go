// Package metrics exposes Prometheus collectors for the stockwatch service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	observationsTotal       *prometheus.CounterVec
	fetchAttemptsTotal      *prometheus.CounterVec
	eventsTotal             *prometheus.CounterVec
	notificationsTotal      *prometheus.CounterVec
	productFailuresTotal    prometheus.Counter
	passDurationSeconds     prometheus.Histogram
	activeWorkers           prometheus.Gauge
	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		observationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_observations_total",
				Help: "Total number of product observations, labeled by store and availability.",
			},
			[]string{"store", "available"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by strategy and result.",
			},
			[]string{"strategy", "result"},
		)

		eventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_events_total",
				Help: "Total number of notification events emitted, labeled by kind.",
			},
			[]string{"kind"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_notifications_total",
				Help: "Total number of channel deliveries, labeled by channel and status.",
			},
			[]string{"channel", "status"},
		)

		productFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "stockwatch_product_failures_total",
				Help: "Total number of products whose pipeline failed unexpectedly.",
			},
		)

		passDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockwatch_pass_duration_seconds",
				Help:    "Histogram of full check pass durations.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_active_workers",
				Help: "Number of workers currently processing a product.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockwatch_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveObservation counts one fetch outcome for a store.
func ObserveObservation(store string, available bool) {
	Init()
	observationsTotal.WithLabelValues(store, strconv.FormatBool(available)).Inc()
}

// ObserveFetchAttempt counts one strategy attempt.
func ObserveFetchAttempt(strategy string, err error) {
	Init()
	result := "success"
	if err != nil {
		result = "error"
	}
	fetchAttemptsTotal.WithLabelValues(strategy, result).Inc()
}

// ObserveEvent counts an emitted notification event.
func ObserveEvent(kind string) {
	Init()
	eventsTotal.WithLabelValues(kind).Inc()
}

// ObserveNotification counts a channel delivery with status "sent", "failed" or "skipped".
func ObserveNotification(channel, status string) {
	Init()
	notificationsTotal.WithLabelValues(channel, status).Inc()
}

// ObserveProductFailure counts a recovered per-product failure.
func ObserveProductFailure() {
	Init()
	productFailuresTotal.Inc()
}

// ObservePass records the duration of a completed pass.
func ObservePass(duration time.Duration) {
	Init()
	passDurationSeconds.Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
}
