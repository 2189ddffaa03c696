// Package storage owns the storage area: the single directory holding
// uploaded originals, synthesized caption tracks, concat manifests, and
// produced outputs.
//
// Every path handed to the encoder is derived here. Paths for pipeline
// artifacts come from identifiers the server generates; paths for
// caller-supplied names go through Resolve, which rejects anything that
// could leave the root.
//
// Artifacts have no implicit lifetime. Retention is explicit: Remove deletes
// a single file on request and Sweeper periodically removes files older than
// the configured age. Sweeps skip temp files and anything a running job
// holds through Hold.
package storage
