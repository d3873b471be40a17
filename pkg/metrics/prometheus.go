// Package metrics provides Prometheus metrics for the trailfilter classifier.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a classification run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion Metrics
	tracksDiscovered prometheus.Counter
	tracksLoaded     prometheus.Counter
	tracksSkipped    *prometheus.CounterVec
	tracksDuplicate  prometheus.Counter
	parseLatency     prometheus.Histogram

	// Classification Metrics
	verdicts              *prometheus.CounterVec
	classificationLatency prometheus.Histogram

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount       prometheus.Gauge
	workerActiveCount prometheus.Gauge

	// Route calibration gauges, overwritten per run
	zoneHits       *prometheus.GaugeVec
	waypointMisses *prometheus.GaugeVec

	// Run Metrics
	runDurationSeconds prometheus.Gauge
	runLastUnix        prometheus.Gauge

	errorRateByComponent *prometheus.CounterVec
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
		namespace:        "trailfilter",
		subsystem:        "classifier",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Ingestion Metrics
	m.tracksDiscovered = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tracks_discovered_total",
		Help:        "Total number of track files found in the input directory",
		ConstLabels: m.constLabels,
	})

	m.tracksLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tracks_loaded_total",
		Help:        "Total number of track files parsed successfully",
		ConstLabels: m.constLabels,
	})

	m.tracksSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "tracks_skipped_total",
			Help:        "Total number of track files skipped by reason",
			ConstLabels: m.constLabels,
		},
		[]string{"reason"},
	)

	m.tracksDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tracks_duplicate_total",
		Help:        "Total number of byte-identical track files skipped",
		ConstLabels: m.constLabels,
	})

	m.parseLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "parse_latency_milliseconds",
		Help:        "Histogram of track file parse latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	// Classification Metrics
	m.verdicts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "verdicts_total",
			Help:        "Total number of verdicts by first failing stage (none = accepted)",
			ConstLabels: m.constLabels,
		},
		[]string{"reason"},
	)

	m.classificationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "classification_latency_milliseconds",
		Help:        "Histogram of per-track classification latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	// Queue Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Current number of tracks waiting for a worker",
		ConstLabels: m.constLabels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_capacity",
		Help:        "Maximum number of tracks the queue holds",
		ConstLabels: m.constLabels,
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_utilization_ratio",
		Help:        "Queue size divided by capacity",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_total",
		Help:        "Total number of tracks enqueued",
		ConstLabels: m.constLabels,
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_dequeue_total",
		Help:        "Total number of tracks dequeued",
		ConstLabels: m.constLabels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_enqueue_errors_total",
		Help:        "Total number of rejected enqueue attempts",
		ConstLabels: m.constLabels,
	})

	// Worker Metrics
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_count",
		Help:        "Configured number of classification workers",
		ConstLabels: m.constLabels,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_active_count",
		Help:        "Number of workers still consuming tracks",
		ConstLabels: m.constLabels,
	})

	// Route calibration
	m.zoneHits = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "exclusion_zone_hits",
			Help:        "Tracks touching each exclusion zone in the last run",
			ConstLabels: m.constLabels,
		},
		[]string{"zone"},
	)

	m.waypointMisses = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "waypoint_misses",
			Help:        "Tracks missing each waypoint in the last run",
			ConstLabels: m.constLabels,
		},
		[]string{"waypoint"},
	)

	// Run Metrics
	m.runDurationSeconds = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of the last classification run",
		ConstLabels: m.constLabels,
	})

	m.runLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_last_unix",
		Help:        "Unix timestamp of the last completed run",
		ConstLabels: m.constLabels,
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component and error type",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)
}

// Ingestion Metrics Functions.

// RecordTracksDiscovered adds n discovered track files.
func RecordTracksDiscovered(n int) {
	globalManager.tracksDiscovered.Add(float64(n))
}

// RecordTrackLoaded increments the loaded track counter.
func RecordTrackLoaded() {
	globalManager.tracksLoaded.Inc()
}

// RecordTrackSkipped increments the skipped track counter for reason.
func RecordTrackSkipped(reason string) {
	globalManager.tracksSkipped.WithLabelValues(reason).Inc()
}

// RecordTrackDuplicate increments the duplicate track counter.
func RecordTrackDuplicate() {
	globalManager.tracksDuplicate.Inc()
}

// RecordParseLatency records how long a track file took to parse.
func RecordParseLatency(latencyMs float64) {
	globalManager.parseLatency.Observe(latencyMs)
}

// Classification Metrics Functions.

// RecordVerdict increments the verdict counter for reason.
func RecordVerdict(reason string) {
	globalManager.verdicts.WithLabelValues(reason).Inc()
}

// RecordClassificationLatency records per-track classification latency.
func RecordClassificationLatency(latencyMs float64) {
	globalManager.classificationLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

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

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// Route Calibration Functions.

// ResetRouteGauges clears per-zone and per-waypoint gauges before a new run
// publishes its own.
func ResetRouteGauges() {
	globalManager.zoneHits.Reset()
	globalManager.waypointMisses.Reset()
}

// UpdateZoneHits sets the hit count for an exclusion zone.
func UpdateZoneHits(zone string, count int) {
	globalManager.zoneHits.WithLabelValues(zone).Set(float64(count))
}

// UpdateWaypointMisses sets the miss count for a waypoint.
func UpdateWaypointMisses(waypoint string, count int) {
	globalManager.waypointMisses.WithLabelValues(waypoint).Set(float64(count))
}

// Run Metrics Functions.

// RecordRunCompleted stores the duration and completion time of a run.
func RecordRunCompleted(durationSeconds float64, finishedUnix int64) {
	globalManager.runDurationSeconds.Set(durationSeconds)
	globalManager.runLastUnix.Set(float64(finishedUnix))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile exports the registry in the text exposition format, for the
// node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExportFailed, path, err)
	}
	return nil
}
