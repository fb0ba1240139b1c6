package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Session Metrics
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_sessions_created_total",
			Help: "Total number of workflow sessions created",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_sessions_active",
			Help: "Number of workflow sessions currently held in memory",
		},
	)

	// Workflow Metrics
	WorkflowStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipforge_workflow_stage_duration_seconds",
			Help:    "Duration of workflow stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		},
		[]string{"stage"},
	)

	WorkflowFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_workflow_failures_total",
			Help: "Total number of workflow runs that ended in the error state",
		},
		[]string{"stage"},
	)

	WorkflowsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_workflows_completed_total",
			Help: "Total number of workflow runs that reached the complete state",
		},
	)

	// Clip Batch Metrics
	ClipsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_clips_generated_total",
			Help: "Total number of batch clip items by outcome",
		},
		[]string{"outcome"},
	)

	ClipCropDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipforge_clip_crop_duration_seconds",
			Help:    "Duration of individual crop calls in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// Render Metrics
	RenderSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_render_submissions_total",
			Help: "Total number of render job submissions",
		},
		[]string{"status"},
	)

	RendersCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_renders_completed_total",
			Help: "Total number of render jobs by terminal outcome",
		},
		[]string{"outcome"},
	)

	RenderPollAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clipforge_render_poll_attempts_total",
			Help: "Total number of render status poll attempts",
		},
	)

	// Queue Metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipforge_queue_depth",
			Help: "Number of processing requests waiting in the queue",
		},
	)

	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_queue_messages_total",
			Help: "Total number of queue messages by operation",
		},
		[]string{"operation", "status"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_storage_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"operation", "status"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipforge_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)
)

// RecordHTTPRequest records an HTTP request with its duration.
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordStage records a completed workflow stage.
func RecordStage(stage string, duration float64) {
	WorkflowStageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordStageFailure records a workflow stage that moved the session to error.
func RecordStageFailure(stage string) {
	WorkflowFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordClipOutcome records one batch item reaching a terminal state.
func RecordClipOutcome(outcome string) {
	ClipsGeneratedTotal.WithLabelValues(outcome).Inc()
}
