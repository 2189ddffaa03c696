// Command video-captioner is an HTTP service that burns a single caption
// line into uploaded videos and concatenates stored videos, using ffmpeg as
// the encoder.
//
// # Application Lifecycle
//
//  1. Configuration: defaults, optional YAML file, optional .env file, then
//     environment variables
//  2. Storage: resolves and creates the storage directory and checks it is
//     writable
//  3. Components: metrics, transcoder (bounded concurrent ffmpeg jobs),
//     caption/combine pipelines, poster generator, retention sweeper
//  4. HTTP: routes, middleware chain (request id, metrics, access log, body
//     limit), application server and a separate metrics server
//  5. Graceful shutdown on SIGINT/SIGTERM: drain HTTP, kill running encoder
//     processes, stop background loops
//
// # Background Services
//
//   - Retention sweeper: removes stored files older than RETENTION
//   - Metrics collector: refreshes storage gauges periodically
package main
