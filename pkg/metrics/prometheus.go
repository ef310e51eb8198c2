// Package metrics provides Prometheus metrics for the trend ETL engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	itemsTotal         *prometheus.CounterVec
	batchesTotal       *prometheus.CounterVec
	batchLatency       *prometheus.HistogramVec
	interBatchWaits    prometheus.Counter
	activeWorkers      prometheus.Gauge
	workerItemLatency  prometheus.Histogram
	workerPanics       prometheus.Counter
	analyzerLatency    prometheus.Histogram
	analyzerErrors     *prometheus.CounterVec
	analyzerThrottled  prometheus.Histogram
	sourceVideos       prometheus.Counter
	validationRejected *prometheus.CounterVec

	// Job metrics
	jobsTotal   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobsRunning prometheus.Gauge

	// Trend metrics
	similarityComparisons prometheus.Counter
	similarityCacheHits   prometheus.Counter
	similarityPairsKept   prometheus.Gauge
	soundsByStage         *prometheus.GaugeVec
	reportsBuilt          prometheus.Counter

	// Queue metrics
	queueEnqueued *prometheus.CounterVec
	queueRejected *prometheus.CounterVec
	queueDequeued *prometheus.CounterVec
	queueSize     *prometheus.GaugeVec
	queueCapacity *prometheus.GaugeVec

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trendetl",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.itemsTotal = m.counterVec("items_total", "Items handled by the batch scheduler by pipeline and outcome", "pipeline", "outcome")
	m.batchesTotal = m.counterVec("batches_total", "Chunks processed by the batch scheduler", "pipeline")
	m.batchLatency = m.histogramVec("batch_latency_milliseconds", "Wall time of one chunk in milliseconds", "pipeline")
	m.interBatchWaits = m.counter("inter_batch_waits_total", "Backpressure pauses taken between chunks")
	m.activeWorkers = m.gauge("worker_active", "Item workers currently running")
	m.workerItemLatency = m.histogram("worker_item_latency_milliseconds", "Per-item processing latency in milliseconds")
	m.workerPanics = m.counter("worker_panics_total", "Item handlers that panicked and were isolated")
	m.analyzerLatency = m.histogram("analyzer_latency_milliseconds", "AI analyzer call latency in milliseconds")
	m.analyzerErrors = m.counterVec("analyzer_errors_total", "AI analyzer call failures", "reason")
	m.analyzerThrottled = m.histogram("analyzer_throttle_wait_milliseconds", "Time spent waiting on the analyzer rate limiter")
	m.sourceVideos = m.counter("source_videos_total", "Raw videos fetched from the video source")
	m.validationRejected = m.counterVec("validation_rejected_total", "Records rejected by the validator", "entity")

	m.jobsTotal = m.counterVec("jobs_total", "Sealed jobs by type and terminal status", "type", "status")
	m.jobDuration = m.histogramVec("job_duration_milliseconds", "Job wall time in milliseconds", "type")
	m.jobsRunning = m.gauge("jobs_running", "Jobs currently in running state")

	m.similarityComparisons = m.counter("similarity_comparisons_total", "Pairwise comparator invocations")
	m.similarityCacheHits = m.counter("similarity_cache_hits_total", "Pair scores served from the cache")
	m.similarityPairsKept = m.gauge("similarity_pairs_kept", "Pairs kept by the last corpus-wide scan")
	m.soundsByStage = m.gaugeVec("sounds_by_stage", "Sounds per lifecycle stage after the last metrics pass", "stage")
	m.reportsBuilt = m.counter("reports_built_total", "Trend reports produced")

	m.queueEnqueued = m.counterVec("queue_enqueued_total", "Requests accepted by a bounded queue", "queue")
	m.queueRejected = m.counterVec("queue_rejected_total", "Requests refused by a bounded queue", "queue", "reason")
	m.queueDequeued = m.counterVec("queue_dequeued_total", "Requests handed to a queue consumer", "queue")
	m.queueSize = m.gaugeVec("queue_size", "Requests currently waiting in a queue", "queue")
	m.queueCapacity = m.gaugeVec("queue_capacity", "Maximum requests a queue holds", "queue")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

// Pipeline.

// RecordItem counts one scheduler item outcome (stored, skipped, failed).
func RecordItem(pipeline, outcome string) {
	globalManager.itemsTotal.WithLabelValues(pipeline, outcome).Inc()
}

// RecordBatch records a finished chunk and its latency.
func RecordBatch(pipeline string, latencyMs float64) {
	globalManager.batchesTotal.WithLabelValues(pipeline).Inc()
	globalManager.batchLatency.WithLabelValues(pipeline).Observe(latencyMs)
}

// RecordInterBatchWait counts a backpressure pause.
func RecordInterBatchWait() {
	globalManager.interBatchWaits.Inc()
}

// AddActiveWorkers moves the active worker gauge by delta.
func AddActiveWorkers(delta int) {
	globalManager.activeWorkers.Add(float64(delta))
}

// RecordWorkerItemLatency records per-item latency.
func RecordWorkerItemLatency(latencyMs float64) {
	globalManager.workerItemLatency.Observe(latencyMs)
}

// RecordWorkerPanic counts a recovered item panic.
func RecordWorkerPanic() {
	globalManager.workerPanics.Inc()
}

// RecordAnalyzerLatency records one analyzer call.
func RecordAnalyzerLatency(latencyMs float64) {
	globalManager.analyzerLatency.Observe(latencyMs)
}

// RecordAnalyzerError counts an analyzer failure by reason.
func RecordAnalyzerError(reason string) {
	globalManager.analyzerErrors.WithLabelValues(reason).Inc()
}

// RecordAnalyzerThrottle records time spent waiting for a rate limiter token.
func RecordAnalyzerThrottle(waitMs float64) {
	globalManager.analyzerThrottled.Observe(waitMs)
}

// RecordSourceVideos counts fetched raw videos.
func RecordSourceVideos(n int) {
	globalManager.sourceVideos.Add(float64(n))
}

// RecordValidationRejected counts a rejected record of the given entity kind.
func RecordValidationRejected(entity string) {
	globalManager.validationRejected.WithLabelValues(entity).Inc()
}

// Jobs.

// RecordJobStarted increments the running gauge.
func RecordJobStarted() {
	globalManager.jobsRunning.Inc()
}

// RecordJobSealed records a terminal transition and the job duration.
func RecordJobSealed(jobType, status string, durationMs float64) {
	globalManager.jobsRunning.Dec()
	globalManager.jobsTotal.WithLabelValues(jobType, status).Inc()
	globalManager.jobDuration.WithLabelValues(jobType).Observe(durationMs)
}

// Trends.

// RecordSimilarityComparison counts a comparator invocation.
func RecordSimilarityComparison() {
	globalManager.similarityComparisons.Inc()
}

// RecordSimilarityCacheHit counts a cached pair score.
func RecordSimilarityCacheHit() {
	globalManager.similarityCacheHits.Inc()
}

// UpdateSimilarityPairsKept sets the number of pairs kept by the last scan.
func UpdateSimilarityPairsKept(n int) {
	globalManager.similarityPairsKept.Set(float64(n))
}

// UpdateSoundsByStage sets the per-stage sound gauge.
func UpdateSoundsByStage(stage string, n int) {
	globalManager.soundsByStage.WithLabelValues(stage).Set(float64(n))
}

// RecordReportBuilt counts a trend report.
func RecordReportBuilt() {
	globalManager.reportsBuilt.Inc()
}

// Queue.

// RecordQueueEnqueue counts an accepted request.
func RecordQueueEnqueue(queue string) {
	globalManager.queueEnqueued.WithLabelValues(queue).Inc()
}

// RecordQueueEnqueueError counts a refused request (closed, full, cancelled).
func RecordQueueEnqueueError(queue, reason string) {
	globalManager.queueRejected.WithLabelValues(queue, reason).Inc()
}

// RecordQueueDequeue counts a request handed to the consumer.
func RecordQueueDequeue(queue string) {
	globalManager.queueDequeued.WithLabelValues(queue).Inc()
}

// UpdateQueueSize sets the number of waiting requests.
func UpdateQueueSize(queue string, n int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(n))
}

// UpdateQueueCapacity sets the queue bound.
func UpdateQueueCapacity(queue string, n int) {
	globalManager.queueCapacity.WithLabelValues(queue).Set(float64(n))
}

// Store.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a store failure.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// System.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
