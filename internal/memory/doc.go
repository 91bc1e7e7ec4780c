// Package memory implements the collective memory shared by the explorer
// fleet: a mutex-guarded, JSON-file-backed knowledge store holding target
// records, observed limitations, strategy effectiveness scores, worker
// liveness, and a ring of recent discoveries.
//
// # Concurrency model
//
// A single Store instance is shared by every worker goroutine and the
// coordinator loops. All operations take the store mutex, mutate the
// in-memory document, and persist it before returning, so the file on disk
// always reflects a consistent state.
//
// # Failure model
//
// Reads are fail-open: a missing or corrupt file yields a fresh empty
// document rather than an error, so the fleet keeps operating after state
// loss. Writes report failure as a boolean; callers log and continue,
// because a worker that cannot persist one observation should still finish
// its cycle.
package memory
