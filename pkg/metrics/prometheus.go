// Package metrics provides Prometheus metrics for the evaldash service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the evaldash service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Audit log store
	auditAppended        *prometheus.CounterVec
	auditPersistFallback prometheus.Counter
	auditPersistDropped  prometheus.Counter
	auditEvicted         prometheus.Counter
	auditReadFailures    *prometheus.CounterVec
	auditMigrations      prometheus.Counter
	auditClears          prometheus.Counter
	auditStored          prometheus.Gauge
	auditListLatency     prometheus.Histogram
	auditAppendLatency   prometheus.Histogram

	// Aggregation
	aggregationDuration *prometheus.HistogramVec
	memoLookups         *prometheus.CounterVec

	// Evaluation collaborator and snapshot
	collaboratorDuration *prometheus.HistogramVec
	collaboratorErrors   *prometheus.CounterVec
	snapshotEvaluations  prometheus.Gauge
	snapshotAgeSeconds   prometheus.Gauge
	snapshotStaleServed  prometheus.Counter
	coordinatorDecisions *prometheus.CounterVec
	idempotentReplays    *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the global manager with one built from opts on a fresh
// registry. It must run before any recording starts, typically in main.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(reg)}, opts...)...)
	customRegistry = reg
}

// RefreshInterval reports how often the global manager's gauges should be refreshed.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Enabled reports whether the global manager records anything.
func Enabled() bool { return globalManager.enabled }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evaldash",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is enabled.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Audit log store
	m.auditAppended = auto.NewCounterVec(
		m.counterOpts("audit_events_appended_total", "Audit events appended, by event type"),
		[]string{"type"},
	)
	m.auditPersistFallback = auto.NewCounter(
		m.counterOpts("audit_persist_fallback_total", "Writes retried with the reduced event list after a medium failure"),
	)
	m.auditPersistDropped = auto.NewCounter(
		m.counterOpts("audit_persist_dropped_total", "Appended events that could not be persisted at all"),
	)
	m.auditEvicted = auto.NewCounter(
		m.counterOpts("audit_events_evicted_total", "Events truncated from the oldest end by the capacity policy"),
	)
	m.auditReadFailures = auto.NewCounterVec(
		m.counterOpts("audit_read_failures_total", "Reads that degraded to an empty log, by reason"),
		[]string{"reason"},
	)
	m.auditMigrations = auto.NewCounter(
		m.counterOpts("audit_envelope_migrations_total", "Legacy persisted payloads migrated to the current envelope"),
	)
	m.auditClears = auto.NewCounter(
		m.counterOpts("audit_clears_total", "Total number of audit log clears"),
	)
	m.auditStored = auto.NewGauge(
		m.gaugeOpts("audit_events_stored", "Events in the persisted audit log after the last write"),
	)
	m.auditListLatency = auto.NewHistogram(
		m.histogramOpts("audit_list_latency_milliseconds", "Audit list latency in milliseconds"),
	)
	m.auditAppendLatency = auto.NewHistogram(
		m.histogramOpts("audit_append_latency_milliseconds", "Audit append latency in milliseconds"),
	)

	// Aggregation
	m.aggregationDuration = auto.NewHistogramVec(
		m.histogramOpts("aggregation_duration_milliseconds", "Aggregation latency in milliseconds, by operation"),
		[]string{"op"},
	)
	m.memoLookups = auto.NewCounterVec(
		m.counterOpts("memo_lookups_total", "Memoized aggregation lookups, by operation and result"),
		[]string{"op", "result"},
	)

	// Evaluation collaborator
	m.collaboratorDuration = auto.NewHistogramVec(
		m.histogramOpts("collaborator_request_duration_milliseconds", "Evaluation API request latency in milliseconds"),
		[]string{"route", "status_code"},
	)
	m.collaboratorErrors = auto.NewCounterVec(
		m.counterOpts("collaborator_errors_total", "Evaluation API failures, by route and kind"),
		[]string{"route", "kind"},
	)
	m.snapshotEvaluations = auto.NewGauge(
		m.gaugeOpts("snapshot_evaluations", "Evaluations in the current snapshot"),
	)
	m.snapshotAgeSeconds = auto.NewGauge(
		m.gaugeOpts("snapshot_age_seconds", "Age of the current evaluation snapshot"),
	)
	m.snapshotStaleServed = auto.NewCounter(
		m.counterOpts("snapshot_stale_served_total", "Requests served from a stale snapshot after a refresh failure"),
	)
	m.coordinatorDecisions = auto.NewCounterVec(
		m.counterOpts("coordinator_decisions_total", "Coordinator decisions recorded, by status"),
		[]string{"status"},
	)
	m.idempotentReplays = auto.NewCounterVec(
		m.counterOpts("idempotent_replays_total", "Requests answered from a stored idempotency key result"),
		[]string{"operation"},
	)

	// HTTP
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	// Errors
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error"),
		[]string{"component", "error_type"},
	)

	// System
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Allocated heap memory in bytes"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds"),
	)
}

// Audit Metrics Functions.

// RecordAuditAppend counts an appended event of the given type.
func RecordAuditAppend(eventType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.auditAppended.WithLabelValues(eventType).Inc()
}

// RecordAuditPersistFallback counts a write retried with the reduced list.
func RecordAuditPersistFallback() {
	if !globalManager.enabled {
		return
	}
	globalManager.auditPersistFallback.Inc()
}

// RecordAuditPersistDropped counts an event that was returned but not persisted.
func RecordAuditPersistDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.auditPersistDropped.Inc()
}

// RecordAuditEvicted adds n events evicted by the capacity policy.
func RecordAuditEvicted(n int) {
	if !globalManager.enabled {
		return
	}
	if n > 0 {
		globalManager.auditEvicted.Add(float64(n))
	}
}

// RecordAuditReadFailure counts a read that degraded to an empty log.
func RecordAuditReadFailure(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.auditReadFailures.WithLabelValues(reason).Inc()
}

// RecordAuditMigration counts a legacy payload migrated on read.
func RecordAuditMigration() {
	if !globalManager.enabled {
		return
	}
	globalManager.auditMigrations.Inc()
}

// RecordAuditClear counts a clear.
func RecordAuditClear() {
	if !globalManager.enabled {
		return
	}
	globalManager.auditClears.Inc()
	globalManager.auditStored.Set(0)
}

// UpdateAuditStored sets the number of persisted events.
func UpdateAuditStored(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.auditStored.Set(float64(count))
}

// RecordAuditListLatency records list latency.
func RecordAuditListLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.auditListLatency.Observe(latencyMs)
}

// RecordAuditAppendLatency records append latency.
func RecordAuditAppendLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.auditAppendLatency.Observe(latencyMs)
}

// Aggregation Metrics Functions.

// RecordAggregationDuration records the time spent in one aggregation op.
func RecordAggregationDuration(op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.aggregationDuration.WithLabelValues(op).Observe(latencyMs)
}

// RecordMemoLookup records a memo hit or miss.
func RecordMemoLookup(op string, hit bool) {
	if !globalManager.enabled {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.memoLookups.WithLabelValues(op, result).Inc()
}

// Collaborator Metrics Functions.

// RecordCollaboratorRequest records one evaluation API call.
func RecordCollaboratorRequest(route, statusCode string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.collaboratorDuration.WithLabelValues(route, statusCode).Observe(latencyMs)
}

// RecordCollaboratorError counts an evaluation API failure.
func RecordCollaboratorError(route, kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.collaboratorErrors.WithLabelValues(route, kind).Inc()
}

// UpdateSnapshot sets the size and age of the evaluation snapshot.
func UpdateSnapshot(evaluations int, age time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotEvaluations.Set(float64(evaluations))
	globalManager.snapshotAgeSeconds.Set(age.Seconds())
}

// RecordSnapshotStaleServed counts a stale snapshot served after a refresh failure.
func RecordSnapshotStaleServed() {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotStaleServed.Inc()
}

// RecordCoordinatorDecision counts a decision by status.
func RecordCoordinatorDecision(status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.coordinatorDecisions.WithLabelValues(status).Inc()
}

// RecordIdempotentReplay counts a replayed result for an idempotency key.
func RecordIdempotentReplay(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.idempotentReplays.WithLabelValues(operation).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
