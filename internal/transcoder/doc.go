// Package transcoder invokes the external encoder (FFmpeg) on behalf of the
// caption and combine pipelines.
//
// It supports:
//   - Caption burn: re-encode one video with a SubRip track rendered into
//     the picture, audio copied unchanged
//   - Concat: join an ordered list of videos by stream copy through the
//     concat demuxer and a per-job manifest
//   - Poster frames: grab a single frame as PNG for thumbnails
//   - Probing: read codec and dimensions with FFprobe
//
// Every invocation goes through a Runner, which spawns the process, reports
// a start event with the command line, forwards each diagnostic line, and
// finishes with exactly one terminal event (error or complete). Inputs are
// checked before any process is spawned, and a counting semaphore bounds the
// number of encoder processes running at once.
package transcoder
