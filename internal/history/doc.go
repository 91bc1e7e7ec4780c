// Package history provides SQLite-based archival of probe outcomes and
// worker cycle summaries.
//
// The collective memory (internal/memory) holds the current merged view of
// every target; the history archive keeps the raw per-probe observations
// that view was derived from. Reports and the status command query it for
// per-worker activity, and the maintenance loop compacts it once it grows
// past the configured threshold.
package history
