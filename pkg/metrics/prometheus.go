// Package metrics provides Prometheus metrics for the typepulse engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion - listener and multiplexer
	eventsIngested   prometheus.Counter
	eventsMalformed  prometheus.Counter
	eventsFiltered   prometheus.Counter
	devicesActive    prometheus.Gauge
	devicesPruned    prometheus.Counter
	deviceReadErrors prometheus.Counter
	observerVisible  prometheus.Gauge

	// Hand-off queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter

	// Burst segmentation
	burstsFinalized  prometheus.Counter
	burstsDiscarded  prometheus.Counter
	burstsHighScore  prometheus.Counter
	burstWPM         prometheus.Histogram
	burstDurationMS  prometheus.Histogram

	// Aggregators
	keysTracked     prometheus.Gauge
	digraphsTracked prometheus.Gauge
	wordsTracked    prometheus.Gauge
	wordsAggregated prometheus.Counter
	wordsIgnored    prometheus.Counter

	// Persistence gateway
	persistWrites    prometheus.Counter
	persistErrors    prometheus.Counter
	persistLatencyMS prometheus.Histogram

	// HTTP surface
	httpRequests *prometheus.CounterVec

	// Error accounting
	errorsByComponent *prometheus.CounterVec

	// Process health
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPauseMS   prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "typepulse",
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

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_ingested_total",
		Help:      "Total key events decoded from input devices",
	})
	m.eventsMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_malformed_total",
		Help:      "Total events dropped for bad codes or non-monotonic timestamps",
	})
	m.eventsFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_filtered_total",
		Help:      "Total events withheld from statistics by the privacy filter",
	})
	m.devicesActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "devices_active",
		Help:      "Input device handles currently in the live set",
	})
	m.devicesPruned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "devices_pruned_total",
		Help:      "Device handles removed after going invalid",
	})
	m.deviceReadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "device_read_errors_total",
		Help:      "Read failures on individual device handles",
	})
	m.observerVisible = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observer_visible",
		Help:      "1 while a stats consumer is active and the wait timeout is short",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the event hand-off queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the event hand-off queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Queue fill ratio between 0 and 1",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total events handed from the listener to the aggregator",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total events consumed by the aggregator",
	})

	m.burstsFinalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bursts_finalized_total",
		Help:      "Total bursts closed by timeout or shutdown",
	})
	m.burstsDiscarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bursts_discarded_total",
		Help:      "Finalized bursts below the persistence thresholds",
	})
	m.burstsHighScore = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bursts_high_score_total",
		Help:      "Finalized bursts meeting the stricter high-score duration gate",
	})
	m.burstWPM = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "burst_wpm",
		Help:      "Net words per minute of finalized bursts",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 120, 150},
	})
	m.burstDurationMS = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "burst_duration_milliseconds",
		Help:      "Duration of finalized bursts in milliseconds",
		Buckets:   prometheus.ExponentialBuckets(500, 2, 10),
	})

	m.keysTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "keys_tracked",
		Help:      "Distinct (key, layout) identities with running statistics",
	})
	m.digraphsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "digraphs_tracked",
		Help:      "Distinct (digraph, layout) identities with running statistics",
	})
	m.wordsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "words_tracked",
		Help:      "Distinct (word, layout) identities with running statistics",
	})
	m.wordsAggregated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "words_aggregated_total",
		Help:      "Completed words accepted into word statistics",
	})
	m.wordsIgnored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "words_ignored_total",
		Help:      "Completed words suppressed by the ignore-list",
	})

	m.persistWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_writes_total",
		Help:      "Acknowledged writes to the persistence gateway",
	})
	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Failed writes to the persistence gateway",
	})
	m.persistLatencyMS = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_latency_milliseconds",
		Help:      "Latency of persistence gateway writes in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by endpoint, method and status code",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Errors by component and kind",
		},
		[]string{"component", "kind"},
	)

	m.systemMemoryBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Heap bytes currently allocated by the process",
	})
	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Number of live goroutines",
	})
	m.systemGCPauseMS = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average garbage collection pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers operating on the global manager.

// RecordEventIngested counts one decoded key event.
func RecordEventIngested() { globalManager.eventsIngested.Inc() }

// RecordEventMalformed counts one dropped malformed event.
func RecordEventMalformed() { globalManager.eventsMalformed.Inc() }

// RecordEventFiltered counts one privacy-withheld event.
func RecordEventFiltered() { globalManager.eventsFiltered.Inc() }

// UpdateDevicesActive sets the live device handle count.
func UpdateDevicesActive(n int) { globalManager.devicesActive.Set(float64(n)) }

// RecordDevicesPruned counts handles removed as invalid.
func RecordDevicesPruned(n int) { globalManager.devicesPruned.Add(float64(n)) }

// RecordDeviceReadError counts a per-handle read failure.
func RecordDeviceReadError() { globalManager.deviceReadErrors.Inc() }

// UpdateObserverVisible reflects the adaptive-timeout flag.
func UpdateObserverVisible(visible bool) {
	if visible {
		globalManager.observerVisible.Set(1)
		return
	}
	globalManager.observerVisible.Set(0)
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(u float64) { globalManager.queueUtilization.Set(u) }

// RecordQueueEnqueue counts one handed-off event.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue counts one consumed event.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordBurstFinalized observes one closed burst.
func RecordBurstFinalized(wpm float64, durationMS int64) {
	globalManager.burstsFinalized.Inc()
	globalManager.burstWPM.Observe(wpm)
	globalManager.burstDurationMS.Observe(float64(durationMS))
}

// RecordBurstDiscarded counts a burst below the persistence thresholds.
func RecordBurstDiscarded() { globalManager.burstsDiscarded.Inc() }

// RecordBurstHighScore counts a burst passing the high-score gate.
func RecordBurstHighScore() { globalManager.burstsHighScore.Inc() }

// UpdateAggregatorSizes sets the tracked-identity gauges.
func UpdateAggregatorSizes(keys, digraphs, words int) {
	globalManager.keysTracked.Set(float64(keys))
	globalManager.digraphsTracked.Set(float64(digraphs))
	globalManager.wordsTracked.Set(float64(words))
}

// RecordWordAggregated counts one accepted word observation.
func RecordWordAggregated() { globalManager.wordsAggregated.Inc() }

// RecordWordIgnored counts one ignore-list suppression.
func RecordWordIgnored() { globalManager.wordsIgnored.Inc() }

// RecordPersistWrite counts one acknowledged gateway write.
func RecordPersistWrite(latencyMS float64) {
	globalManager.persistWrites.Inc()
	globalManager.persistLatencyMS.Observe(latencyMS)
}

// RecordPersistError counts one failed gateway write.
func RecordPersistError() { globalManager.persistErrors.Inc() }

// RecordHTTPRequest counts one served request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordErrorByComponent counts an error by component and kind.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap bytes gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryBytes.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the live goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMS float64) { globalManager.systemGCPauseMS.Observe(pauseMS) }

// GetRegistry returns the custom registry for serving /healthz metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
