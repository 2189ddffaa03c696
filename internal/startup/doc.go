// Package startup handles configuration loading and the startup and
// shutdown log output of the service.
//
// # Configuration
//
// [LoadConfig] layers four sources, later ones winning:
//
//  1. built-in defaults
//  2. a YAML file named by CONFIG_FILE (optional)
//  3. a .env file, or the file named by ENV_FILE (optional, never
//     overrides variables already set)
//  4. process environment variables
//
// Supported keys:
//
//   - PORT: HTTP server port (default: 3003)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - STORAGE_DIR: Directory for uploads and outputs (default: ./uploads)
//   - PUBLIC_BASE_URL: Prefix for returned file URLs (default: http://localhost:PORT)
//   - REQUEST_TIMEOUT: HTTP read timeout (default: 15m)
//   - RESPONSE_TIMEOUT: HTTP write timeout and encoder job ceiling (default: 15m)
//   - MAX_BODY_SIZE: Request body limit, e.g. 500MB (default: 500MB)
//   - FFMPEG_PATH / FFPROBE_PATH: Encoder binaries (default: ffmpeg / ffprobe)
//   - VIDEO_CODEC: Codec for caption burns (default: libx264)
//   - POSTER_FRAME_FORMAT: Frame format piped from ffmpeg for thumbnails, png or webp (default: png)
//   - MAX_CONCURRENT_JOBS: Encoder processes at once (default: 1 per CPU, max 4)
//   - CONCAT_PRECHECK: Probe combine inputs for matching streams (default: true)
//   - RETENTION: Delete stored files older than this, 0 disables (default: 0)
//   - SWEEP_INTERVAL: How often retention runs (default: 1h)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log poster and caption file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// Invalid durations, sizes and booleans fall back to their defaults with a
// warning. A CONFIG_FILE that cannot be read or parsed is an error.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// Startup is logged as sections: system information, configuration,
// directory setup, transcoder and retention setup, the route table (debug
// level) and the server endpoints. Shutdown steps are logged as they
// complete. The ASCII banner is printed only when stdout is a terminal.
package startup
