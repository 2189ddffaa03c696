package metrics

// Label values used across the package. Kept here so InitializeMetrics and
// the recording sites agree on spelling.
var (
	transcodeModes    = []string{"caption-burn", "concat", "poster"}
	transcodeStatuses = []string{"success", "error", "timeout", "cancelled", "rejected"}
	storageKinds      = []string{"upload", "caption", "output", "combined", "manifest", "poster", "other"}
	fsOperations      = []string{"stat", "write", "rename", "remove", "readdir"}
	pipelineStages    = map[string][]string{
		"caption": {"received", "renamed", "caption_written", "transcoding", "done", "failed"},
		"combine": {"received", "validated", "transcoding", "done", "failed"},
	}
	errorKinds = []string{"validation", "not_found", "path", "io", "transcode", "timeout"}
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, mode := range transcodeModes {
		for _, status := range transcodeStatuses {
			TranscoderJobsTotal.WithLabelValues(mode, status)
		}
		TranscoderJobDuration.WithLabelValues(mode)
		TranscoderJobsInProgress.WithLabelValues(mode)
		TranscoderQueueWait.WithLabelValues(mode)
	}

	for pipeline, stages := range pipelineStages {
		for _, stage := range stages {
			PipelineStageTotal.WithLabelValues(pipeline, stage)
		}
		for _, kind := range errorKinds {
			PipelineFailuresTotal.WithLabelValues(pipeline, kind)
		}
	}

	for _, kind := range storageKinds {
		StorageFiles.WithLabelValues(kind)
	}

	for _, op := range fsOperations {
		FilesystemOperationDuration.WithLabelValues(op)
		FilesystemOperationErrors.WithLabelValues(op)
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
