package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediahub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Store metrics
var (
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_store_operations_total",
			Help: "Total number of media store operations",
		},
		[]string{"operation", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediahub_store_operation_duration_seconds",
			Help:    "Media store operation duration in seconds, including simulated latency",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	StoreMediaItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_store_media_items",
			Help: "Number of media records currently held by the store",
		},
	)

	StoreNextID = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_store_next_id",
			Help: "Identifier that will be assigned to the next upload",
		},
	)

	StoreUploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_store_upload_bytes_total",
			Help: "Total bytes accepted by uploads",
		},
		[]string{"type"},
	)
)

// Persistence metrics
var (
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_persistence_errors_total",
			Help: "Total number of persistence read/write failures recovered in memory",
		},
		[]string{"operation"},
	)

	PersistenceRestores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_persistence_restores_total",
			Help: "Store initializations by outcome (restored or seeded)",
		},
		[]string{"outcome"},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_thumbnail_generations_total",
			Help: "Total number of thumbnail derivations",
		},
		[]string{"type", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediahub_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail derivation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	ThumbnailFFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediahub_thumbnail_ffmpeg_duration_seconds",
			Help:    "Duration of ffmpeg frame extraction in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ThumbnailExtractionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_thumbnail_extractions_in_flight",
			Help: "Number of ffmpeg frame extractions currently running",
		},
	)
)

// Object URL metrics
var (
	ObjectURLsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_object_urls_live",
			Help: "Number of transient object URLs currently held",
		},
	)

	ObjectURLsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediahub_object_urls_created_total",
			Help: "Total number of transient object URLs created",
		},
	)

	ObjectURLsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_object_urls_released_total",
			Help: "Total number of transient object URLs released, by reason",
		},
		[]string{"reason"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_memory_usage_ratio",
			Help: "Live heap as a fraction of the configured memory limit",
		},
	)

	UploadsPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_uploads_paused",
			Help: "Whether uploads are held back because memory is critical (1 = paused)",
		},
	)

	UploadPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediahub_upload_pauses_total",
			Help: "Total number of times uploads were paused for memory pressure",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediahub_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// Store operation names used as metric labels.
const (
	OpAuthenticate = "authenticate"
	OpListMedia    = "list_media"
	OpGetMedia     = "get_media"
	OpGetUser      = "get_user"
	OpUpload       = "upload"
	OpDelete       = "delete"
	OpUpdateUser   = "update_user"
)

// Release reasons used as metric labels.
const (
	ReleaseExplicit = "explicit"
	ReleaseReplaced = "replaced"
	ReleaseScope    = "scope"
	ReleaseRecord   = "record"
)

// InitializeMetrics pre-populates the expected label combinations so that
// every series is exported from the first scrape.
func InitializeMetrics() {
	for _, op := range []string{OpAuthenticate, OpListMedia, OpGetMedia, OpGetUser, OpUpload, OpDelete, OpUpdateUser} {
		StoreOperationsTotal.WithLabelValues(op, "success")
		StoreOperationsTotal.WithLabelValues(op, "error")
		StoreOperationDuration.WithLabelValues(op)
	}

	for _, t := range []string{"photo", "video"} {
		StoreUploadBytes.WithLabelValues(t)
		ThumbnailGenerationDuration.WithLabelValues(t)
		ThumbnailGenerationsTotal.WithLabelValues(t, "success")
		ThumbnailGenerationsTotal.WithLabelValues(t, "error")
	}

	for _, op := range []string{"read", "parse", "write"} {
		PersistenceErrors.WithLabelValues(op)
	}
	for _, outcome := range []string{"restored", "seeded"} {
		PersistenceRestores.WithLabelValues(outcome)
	}

	for _, reason := range []string{ReleaseExplicit, ReleaseReplaced, ReleaseScope, ReleaseRecord} {
		ObjectURLsReleased.WithLabelValues(reason)
	}
}
