// Package metrics provides Prometheus metrics for the driftwatch engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the engine exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Drift detection
	driftEvents      *prometheus.CounterVec
	driftDuplicates  prometheus.Counter
	detectionLatency prometheus.Histogram

	// Composite scoring
	compositeScores *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	historyPruned   prometheus.Counter
	teamsTracked    prometheus.Gauge

	// Sweeps
	sweepOutcomes *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec

	// Store
	storeRetries *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "driftwatch",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	msBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}

	m.driftEvents = m.counterVec("drift_events_total", "Drift events created", "metric", "direction")
	m.driftDuplicates = m.counter("drift_duplicates_total", "Drift events skipped because one already exists for the team, metric and day")
	m.detectionLatency = m.histogram("detection_latency_ms", "Per-team drift detection latency in milliseconds", msBuckets)

	m.compositeScores = m.counterVec("composite_scores_total", "Composite scores computed", "zone")
	m.degraded = m.counterVec("degraded_computations_total", "Computations that substituted neutral values", "component")
	m.historyPruned = m.counter("history_pruned_total", "History snapshots removed by retention")
	m.teamsTracked = m.gauge("teams_tracked", "Teams known to the directory at the last sweep")

	m.sweepOutcomes = m.counterVec("sweep_team_outcomes_total", "Per-team sweep outcomes", "kind", "outcome")
	m.sweepDuration = m.histogramVec("sweep_duration_seconds", "Sweep wall time in seconds", m.histogramBuckets, "kind")

	m.storeRetries = m.counterVec("store_retries_total", "Store writes retried after a transient failure", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operations that failed", "op")
	m.storeLatency = m.histogramVec("store_latency_ms", "Store operation latency in milliseconds", msBuckets, "op")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_enqueue_latency_ms", "Enqueue latency in milliseconds", msBuckets)

	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerActive = m.gauge("worker_active", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_ms", "Job processing latency in milliseconds", msBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration in seconds",
		m.histogramBuckets, "endpoint", "method", "status")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "type")
}

// RecordDriftEvent counts a created drift event.
func RecordDriftEvent(metric, direction string) {
	globalManager.driftEvents.WithLabelValues(metric, direction).Inc()
}

// RecordDriftDuplicate counts a drift event skipped as already present.
func RecordDriftDuplicate() {
	globalManager.driftDuplicates.Inc()
}

// RecordDetectionLatency records per-team detection latency in milliseconds.
func RecordDetectionLatency(latencyMs float64) {
	globalManager.detectionLatency.Observe(latencyMs)
}

// RecordCompositeScore counts a computed composite by zone.
func RecordCompositeScore(zone string) {
	globalManager.compositeScores.WithLabelValues(zone).Inc()
}

// RecordDegraded counts a computation that fell back to neutral values.
func RecordDegraded(component string) {
	globalManager.degraded.WithLabelValues(component).Inc()
}

// RecordHistoryPruned counts snapshots dropped by retention.
func RecordHistoryPruned(n int) {
	if n > 0 {
		globalManager.historyPruned.Add(float64(n))
	}
}

// UpdateTeamsTracked sets the number of known teams.
func UpdateTeamsTracked(n int) {
	globalManager.teamsTracked.Set(float64(n))
}

// RecordSweepOutcome counts one team's outcome in a sweep: processed, skipped or failed.
func RecordSweepOutcome(kind, outcome string) {
	globalManager.sweepOutcomes.WithLabelValues(kind, outcome).Inc()
}

// RecordSweepDuration records a sweep's wall time in seconds.
func RecordSweepDuration(kind string, seconds float64) {
	globalManager.sweepDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordStoreRetry counts a retried store write.
func RecordStoreRetry(op string) {
	globalManager.storeRetries.WithLabelValues(op).Inc()
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordStoreLatency records a store operation's latency in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive moves the busy-worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActive.Add(float64(delta))
}

// RecordWorkerProcessingLatency records job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a job that failed.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
