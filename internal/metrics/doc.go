// Package metrics provides Prometheus instrumentation for the video captioner.
//
// All metrics are prefixed with "video_captioner_" and are served on the
// dedicated metrics port so the API port stays free of scrape traffic.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal: requests by method, normalized path, and status
//   - HTTPRequestDuration: request duration (long buckets, encodes hold the request open)
//   - HTTPRequestsInFlight: currently processing requests
//   - UploadBytesTotal: bytes accepted through /api/upload
//
// ## Transcoder Metrics
//   - TranscoderJobsTotal: encoder invocations by mode and outcome
//   - TranscoderJobDuration: encoder run time by mode
//   - TranscoderJobsInProgress: running encoder processes by mode
//   - TranscoderQueueWait: time spent waiting for a free encoder slot
//
// ## Pipeline Metrics
//   - PipelineStageTotal: state transitions of the caption and combine pipelines
//   - PipelineFailuresTotal: failures by pipeline and error kind
//
// ## Storage Metrics
//   - StorageFiles / StorageBytes: refreshed by the Collector
//   - StorageSweep*: retention sweep results
//
// ## Filesystem Metrics
//   - FilesystemOperation*: stat/write/rename/remove timings and errors
//   - FilesystemRetryAttempts / FilesystemStaleErrors: NFS stale handle retries
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	collector := metrics.NewCollector(area, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
