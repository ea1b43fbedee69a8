package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	ThrottleHits     *prometheus.CounterVec

	// Job metrics
	JobEnqueuesTotal  *prometheus.CounterVec
	JobFallbacksTotal *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec

	// Prediction metrics
	PredictionsTotal     *prometheus.CounterVec
	PredictionConfidence *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// confidenceBuckets cover the clamped confidence range produced by the predictor
var confidenceBuckets = []float64{75, 77.5, 80, 82.5, 85, 87.5, 90, 92.5, 95}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_hub",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_hub",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"provider", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"provider", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_hub",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"provider", "operation"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"kind"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"kind"},
		),
		ThrottleHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "throttle",
				Name:      "hits_total",
				Help:      "Total number of advisory throttle hits",
			},
			[]string{"resource"},
		),

		JobEnqueuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "jobs",
				Name:      "enqueues_total",
				Help:      "Total number of job enqueues",
			},
			[]string{"task", "status"},
		),
		JobFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "jobs",
				Name:      "sync_fallbacks_total",
				Help:      "Total number of synchronous fallbacks taken when the queue was unavailable",
			},
			[]string{"task"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_hub",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Duration of background job execution in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"task", "status"},
		),

		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "predictions",
				Name:      "computed_total",
				Help:      "Total number of predictions computed",
			},
			[]string{"mode"},
		),
		PredictionConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_hub",
				Subsystem: "predictions",
				Name:      "confidence",
				Help:      "Distribution of prediction confidence scores",
				Buckets:   confidenceBuckets,
			},
			[]string{"mode"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "stock_hub",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_hub",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"provider"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(provider, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(provider, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(provider, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(provider, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(provider, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit for a data kind
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for a data kind
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordThrottleHit records an advisory throttle hit
func (m *Metrics) RecordThrottleHit(resource string) {
	m.ThrottleHits.WithLabelValues(resource).Inc()
}

// RecordJobEnqueue records a job enqueue attempt and its outcome
func (m *Metrics) RecordJobEnqueue(task, status string) {
	m.JobEnqueuesTotal.WithLabelValues(task, status).Inc()
}

// RecordJobFallback records a synchronous fallback for a task
func (m *Metrics) RecordJobFallback(task string) {
	m.JobFallbacksTotal.WithLabelValues(task).Inc()
}

// RecordJobDuration records the duration of a background job
func (m *Metrics) RecordJobDuration(task, status string, duration time.Duration) {
	m.JobDuration.WithLabelValues(task, status).Observe(duration.Seconds())
}

// RecordPrediction records a computed prediction and its confidence score
func (m *Metrics) RecordPrediction(mode string, confidence float64) {
	m.PredictionsTotal.WithLabelValues(mode).Inc()
	m.PredictionConfidence.WithLabelValues(mode).Observe(confidence)
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(provider string, state int) {
	m.CircuitBreakerState.WithLabelValues(provider).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(provider string) {
	m.CircuitBreakerTrips.WithLabelValues(provider).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(provider, operation string) {
	t.metrics.RecordExternalAPIDuration(provider, operation, time.Since(t.start))
}

// ObserveJob records the background job duration
func (t *Timer) ObserveJob(task, status string) {
	t.metrics.RecordJobDuration(task, status, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
