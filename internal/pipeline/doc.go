// Package pipeline runs the two request workflows of the service.
//
// Caption upload moves through Received, Renamed, CaptionWritten and
// Transcoding before ending in Done or Failed. Combine moves through
// Received, Validated and Transcoding to Done or Failed. There are no
// retries; every failure is reported as a *Error whose Kind decides the
// HTTP status.
package pipeline
