package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "video_captioner_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
			// Upload and combine requests stay open for the whole encode
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_captioner_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_captioner_upload_bytes_total",
			Help: "Total bytes of video accepted through the upload endpoint",
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_transcoder_jobs_total",
			Help: "Total number of encoder invocations by mode and outcome",
		},
		[]string{"mode", "status"}, // status: "success", "error", "timeout", "rejected"
	)

	TranscoderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_captioner_transcoder_job_duration_seconds",
			Help:    "Encoder run time in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"mode"},
	)

	TranscoderJobsInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_captioner_transcoder_jobs_in_progress",
			Help: "Number of encoder processes currently running",
		},
		[]string{"mode"},
	)

	TranscoderQueueWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_captioner_transcoder_queue_wait_seconds",
			Help:    "Time a job waited for a free encoder slot",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 15, 30, 60, 300},
		},
		[]string{"mode"},
	)
)

// Pipeline metrics
var (
	PipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_pipeline_stage_total",
			Help: "Pipeline state transitions by pipeline and stage",
		},
		[]string{"pipeline", "stage"},
	)

	PipelineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_pipeline_failures_total",
			Help: "Pipeline failures by pipeline and error kind",
		},
		[]string{"pipeline", "kind"},
	)
)

// Storage metrics
var (
	StorageFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_captioner_storage_files",
			Help: "Number of artifacts in the storage area by kind",
		},
		[]string{"kind"}, // "upload", "caption", "output", "combined", "manifest", "poster", "other"
	)

	StorageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_captioner_storage_bytes",
			Help: "Total size of the storage area in bytes",
		},
	)

	StorageSweepRemovedFiles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_captioner_storage_sweep_removed_files_total",
			Help: "Files removed by the retention sweep",
		},
	)

	StorageSweepRemovedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_captioner_storage_sweep_removed_bytes_total",
			Help: "Bytes freed by the retention sweep",
		},
	)

	StorageSweepLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_captioner_storage_sweep_last_timestamp",
			Help: "Unix timestamp of the last completed retention sweep",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_captioner_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_filesystem_operation_errors_total",
			Help: "Filesystem operation errors (not-exist results excluded)",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_filesystem_retry_attempts_total",
			Help: "Retries after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_captioner_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_captioner_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_captioner_memory_pressure",
			Help: "1 while heap usage is above the critical mark and new work is refused",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_captioner_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
