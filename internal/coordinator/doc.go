// Package coordinator supervises the explorer fleet and the periodic
// operation loops.
//
// The coordinator derives one worker identity per configured slot
// (explorer-001, explorer-002, ...), runs every worker plus the
// synchronization, reporting, and maintenance loops under a single
// errgroup, and owns the operation statistics. Workers report counter
// updates through the Tally interface; the coordinator is the only writer
// of OperationStats and persists it exactly once at shutdown.
//
// Loop cadence comes from the configuration. Each loop runs its first pass
// immediately and then sleeps out the interval. A failed iteration does not
// stop the loop; it retries after a shorter fallback pause.
package coordinator
