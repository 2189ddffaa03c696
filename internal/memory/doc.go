// Package memory configures the Go memory limit for containerized
// deployments and tracks heap pressure.
//
// ConfigureFromEnv derives GOMEMLIMIT from the container limit passed in
// MEMORY_LIMIT, leaving headroom for the ffmpeg child processes, which are
// not counted against the Go heap. An explicit GOMEMLIMIT always wins.
//
// Monitor samples heap allocation against that limit. Above the critical
// mark it reports pressure, which the readiness probe turns into 503 so a
// load balancer stops routing new uploads to the instance; it clears once
// usage falls back below the high mark.
package memory
