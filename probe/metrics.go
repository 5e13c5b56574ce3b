package probe

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection for
// sweep monitoring.
//
// Metrics exposed (all namespaced with "visionprobe_"):
//
//  1. inflight_requests (gauge): Provider calls currently in flight.
//  2. queue_depth (gauge): Cases waiting for a worker.
//  3. request_latency_ms (histogram): Provider round-trip duration.
//     Labels: model, prompt, status (success/error).
//  4. retries_total (counter): Retry attempts across all calls.
//     Labels: model, reason.
//  5. hallucinations_total (counter): Affirmative answers on absent objects.
//     Labels: model, prompt.
//  6. skipped_images_total (counter): Image files found missing at preload.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := probe.NewPrometheusMetrics(registry)
//	engine := probe.NewEngine(model, "gpt-4o", probe.WithMetrics(metrics))
//
//	// Expose via HTTP for Prometheus scraping:
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: all methods are safe for concurrent use from the worker pool.
type PrometheusMetrics struct {
	inflightRequests prometheus.Gauge
	queueDepth       prometheus.Gauge

	requestLatency *prometheus.HistogramVec

	retries        *prometheus.CounterVec
	hallucinations *prometheus.CounterVec
	skippedImages  prometheus.Counter

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all sweep metrics with the
// provided Prometheus registry.
//
// Parameters:
//   - registry: Registry to register metrics with. nil uses
//     prometheus.DefaultRegisterer.
//
// Histogram buckets span 50ms to 60s, sized for vision API round trips
// that include retry waits.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.inflightRequests = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "visionprobe",
		Name:      "inflight_requests",
		Help:      "Provider calls currently in flight",
	})

	pm.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "visionprobe",
		Name:      "queue_depth",
		Help:      "Cases waiting for a sweep worker",
	})

	pm.requestLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visionprobe",
		Name:      "request_latency_ms",
		Help:      "Provider round-trip duration in milliseconds, including retries",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	}, []string{"model", "prompt", "status"}) // status: success, error

	pm.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visionprobe",
		Name:      "retries_total",
		Help:      "Cumulative count of provider retry attempts",
	}, []string{"model", "reason"}) // reason: rate_limited, server_error, network_error

	pm.hallucinations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visionprobe",
		Name:      "hallucinations_total",
		Help:      "Affirmative answers recorded for objects absent from the image",
	}, []string{"model", "prompt"})

	pm.skippedImages = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "visionprobe",
		Name:      "skipped_images_total",
		Help:      "Image files found missing at preload, once per unique file",
	})

	return pm
}

// RecordRequestLatency records one provider round trip.
func (pm *PrometheusMetrics) RecordRequestLatency(model, prompt string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}

	pm.requestLatency.WithLabelValues(model, prompt, status).Observe(float64(latency.Milliseconds()))
}

// IncrementRetries increments the retry counter for a failure class.
func (pm *PrometheusMetrics) IncrementRetries(model, reason string) {
	if !pm.isEnabled() {
		return
	}

	pm.retries.WithLabelValues(model, reason).Inc()
}

// IncrementHallucinations counts one affirmative answer on an absent object.
func (pm *PrometheusMetrics) IncrementHallucinations(model, prompt string) {
	if !pm.isEnabled() {
		return
	}

	pm.hallucinations.WithLabelValues(model, prompt).Inc()
}

// IncrementSkippedImages counts one missing image file. Callers invoke
// it once per unique file, not once per dropped prompt and case job.
func (pm *PrometheusMetrics) IncrementSkippedImages() {
	if !pm.isEnabled() {
		return
	}

	pm.skippedImages.Inc()
}

// UpdateQueueDepth sets the current number of undispatched cases.
func (pm *PrometheusMetrics) UpdateQueueDepth(depth int) {
	if !pm.isEnabled() {
		return
	}

	pm.queueDepth.Set(float64(depth))
}

// UpdateInflightRequests sets the current number of in-flight provider calls.
func (pm *PrometheusMetrics) UpdateInflightRequests(count int) {
	if !pm.isEnabled() {
		return
	}

	pm.inflightRequests.Set(float64(count))
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
