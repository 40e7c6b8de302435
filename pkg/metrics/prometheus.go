// Package metrics provides Prometheus metrics for the hoopvision stats service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values used by the classifier and registry.
const (
	ZoneTwo   = "2pt"
	ZoneThree = "3pt"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Frame flow
	framesProcessed prometheus.Counter
	framesNoBall    prometheus.Counter
	framesRejected  *prometheus.CounterVec
	framesDuplicate prometheus.Counter
	frameLatency    prometheus.Histogram

	// Game events
	shotsMade        *prometheus.CounterVec
	shotsDropped     prometheus.Counter
	reboundsCredited prometheus.Counter

	// Identity registry
	identitiesResolved prometheus.Counter
	jerseyRejected     *prometheus.CounterVec

	// Sessions
	sessionsActive  prometheus.Gauge
	sessionsCreated prometheus.Counter
	sessionsClosed  prometheus.Counter

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerErrors       *prometheus.CounterVec

	// Archive
	archiveWrites       prometheus.Counter
	archiveErrors       prometheus.Counter
	archiveWriteLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hoopvision",
		subsystem:        "stats",
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.framesProcessed = m.counter("frames_processed_total", "Total number of frames handed to the event classifier")
	m.framesNoBall = m.counter("frames_no_ball_total", "Frames that carried no ball observation")
	m.framesRejected = m.counterVec("frames_rejected_total", "Frames rejected before classification", "reason")
	m.framesDuplicate = m.counter("frames_duplicate_total", "Frame submissions recognized as retries")
	m.frameLatency = m.histogram("frame_processing_latency_milliseconds", "Per-frame identity+classification+aggregation latency in milliseconds")

	m.shotsMade = m.counterVec("shots_made_total", "Made shots credited to an identified shooter", "zone")
	m.shotsDropped = m.counter("shots_dropped_total", "Shots dropped because the nearest track had no identity")
	m.reboundsCredited = m.counter("rebounds_credited_total", "Rebound events emitted")

	m.identitiesResolved = m.counter("identities_resolved_total", "Tracks bound to a jersey number")
	m.jerseyRejected = m.counterVec("jersey_readings_rejected_total", "Jersey readings not accepted", "reason")

	m.sessionsActive = m.gauge("sessions_active", "Number of open sessions")
	m.sessionsCreated = m.counter("sessions_created_total", "Sessions opened")
	m.sessionsClosed = m.counter("sessions_closed_total", "Sessions closed")

	m.queueSize = m.gauge("queue_size", "Current size of the frame queue (backlog indicator)")
	m.queueCapacity = m.gauge("queue_capacity", "Configured frame queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Frame records accepted by the queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Frame records refused by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Number of decode/recognition workers")
	m.workerErrors = m.counterVec("worker_errors_total", "Worker failures by kind", "kind")

	m.archiveWrites = m.counter("archive_writes_total", "Sessions written to the archive")
	m.archiveErrors = m.counter("archive_errors_total", "Archive write failures")
	m.archiveWriteLatency = m.histogram("archive_write_latency_milliseconds", "Archive write latency in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with status >= 400", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordFrameProcessed increments the processed frames counter.
func RecordFrameProcessed() {
	globalManager.framesProcessed.Inc()
}

// RecordFrameNoBall counts a frame without a ball observation.
func RecordFrameNoBall() {
	globalManager.framesNoBall.Inc()
}

// RecordFrameRejected counts a frame refused before classification.
func RecordFrameRejected(reason string) {
	globalManager.framesRejected.WithLabelValues(reason).Inc()
}

// RecordFrameDuplicate counts a retried frame submission.
func RecordFrameDuplicate() {
	globalManager.framesDuplicate.Inc()
}

// RecordFrameLatency records per-frame processing latency in milliseconds.
func RecordFrameLatency(latencyMs float64) {
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordShotMade counts a made shot for zone ZoneTwo or ZoneThree.
func RecordShotMade(zone string) {
	globalManager.shotsMade.WithLabelValues(zone).Inc()
}

// RecordShotDropped counts a shot with an unidentified shooter.
func RecordShotDropped() {
	globalManager.shotsDropped.Inc()
}

// RecordRebound counts an emitted rebound event.
func RecordRebound() {
	globalManager.reboundsCredited.Inc()
}

// RecordIdentityResolved counts a new track binding.
func RecordIdentityResolved() {
	globalManager.identitiesResolved.Inc()
}

// RecordJerseyRejected counts a refused jersey reading.
func RecordJerseyRejected(reason string) {
	globalManager.jerseyRejected.WithLabelValues(reason).Inc()
}

// UpdateActiveSessions sets the open sessions gauge.
func UpdateActiveSessions(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionCreated counts an opened session.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionClosed counts a closed session.
func RecordSessionClosed() {
	globalManager.sessionsClosed.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted record.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueEnqueueError counts a refused record.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError counts a worker failure of the given kind.
func RecordWorkerError(kind string) {
	globalManager.workerErrors.WithLabelValues(kind).Inc()
}

// RecordArchiveWrite records a successful archive write and its latency.
func RecordArchiveWrite(latencyMs float64) {
	globalManager.archiveWrites.Inc()
	globalManager.archiveWriteLatency.Observe(latencyMs)
}

// RecordArchiveError counts an archive failure.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response by endpoint.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
