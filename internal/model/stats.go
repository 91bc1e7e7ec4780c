package model

import "time"

// OperationStats holds the process-wide counters for one 24/7 operation run.
// The coordinator creates it at start, is its only writer, and persists it
// exactly once at shutdown.
//
// Design decision: Counters live here as plain ints rather than atomics
// because the coordinator serializes every mutation through its own
// goroutine-safe accessors. Keeping the type dumb makes it trivially
// serializable for the final statistics document.
type OperationStats struct {
	// StartTime is when the coordinator began operation.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the coordinator finished shutdown. Zero until then.
	EndTime time.Time `json:"end_time,omitzero"`

	// CyclesExecuted counts completed worker exploration cycles.
	CyclesExecuted int `json:"cycles_executed"`

	// TargetsDiscovered counts targets found through auto-discovery.
	TargetsDiscovered int `json:"targets_discovered"`

	// ErrorsEncountered counts worker iteration failures.
	ErrorsEncountered int `json:"errors_encountered"`

	// LastSync is when the synchronization loop last completed.
	LastSync time.Time `json:"last_sync,omitzero"`

	// LastReport is when the reporting loop last completed.
	LastReport time.Time `json:"last_report,omitzero"`
}

// NewOperationStats returns stats stamped with the given start time.
func NewOperationStats(start time.Time) *OperationStats {
	return &OperationStats{StartTime: start}
}
