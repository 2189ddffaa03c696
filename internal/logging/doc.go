// Package logging provides the leveled logger used across the video
// captioner.
//
// Levels, from most to least verbose:
//   - DEBUG: encoder command lines, diagnostic lines, path resolution
//   - INFO: pipeline milestones and startup sections
//   - WARN: recoverable problems (bad config values, cleanup failures)
//   - ERROR: failed jobs and requests
//   - FATAL: startup errors that terminate the process
//
// The initial level comes from DEBUG or LOG_LEVEL in the environment and
// may be replaced once configuration is loaded via SetLevel.
package logging
