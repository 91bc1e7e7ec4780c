package model

import "time"

// WorkerState is the lifecycle state of a worker identity as recorded in
// the collective memory.
type WorkerState string

// Worker lifecycle states.
const (
	// WorkerActive means the worker has synchronized or reported recently.
	WorkerActive WorkerState = "active"

	// WorkerInactive means the worker has gone quiet. The maintenance
	// sweep flags inactive workers but never removes them.
	WorkerInactive WorkerState = "inactive"
)

// WorkerStatus tracks liveness and productivity for one worker identity.
// It is owned by the knowledge store and updated on every discovery and
// synchronization.
type WorkerStatus struct {
	// LastActivity is the time of the worker's most recent discovery.
	LastActivity time.Time `json:"last_activity"`

	// LastSync is the time of the worker's most recent synchronization.
	LastSync time.Time `json:"last_sync"`

	// TargetsDiscovered counts targets this worker recorded first.
	TargetsDiscovered int `json:"targets_discovered"`

	// Verifications counts every verification this worker performed,
	// including re-verifications of known targets.
	Verifications int `json:"verifications"`

	// State is the current lifecycle state.
	State WorkerState `json:"state"`
}

// DiscoveryEvent is one entry in the recent-discoveries ring. It records
// who found what, and when, without duplicating the full target record.
type DiscoveryEvent struct {
	// URL is the discovered target.
	URL string `json:"url"`

	// WorkerID is the discovering worker.
	WorkerID string `json:"worker_id"`

	// Timestamp is when the discovery was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Kind distinguishes event types; currently always "new_target".
	Kind string `json:"kind"`
}
