package model

import "time"

// MemorySnapshot is the read-only aggregate view of the collective memory
// used for synchronization replies, the status command, and reporting.
type MemorySnapshot struct {
	// TotalTargets is the number of targets in the store.
	TotalTargets int `json:"total_targets"`

	// ActiveWorkers is the number of workers currently marked active.
	ActiveWorkers int `json:"active_workers"`

	// UpdatedAt is the store's last-update timestamp.
	UpdatedAt time.Time `json:"updated_at"`

	// SeedTargets is the configured seed priority list.
	SeedTargets []string `json:"seed_targets"`

	// StrategyScores maps strategy names to effectiveness in [0, 1].
	StrategyScores map[string]float64 `json:"strategy_scores"`

	// RecentLimitations holds limitations observed within the last 24
	// hours, keyed by category.
	RecentLimitations map[string][]LimitationRecord `json:"recent_limitations"`

	// RecentDiscoveries holds the most recent discovery events.
	RecentDiscoveries []DiscoveryEvent `json:"recent_discoveries"`
}

// SyncBundle is what a worker receives from the store when it synchronizes.
// It contains everything the worker needs to plan its next cycle.
type SyncBundle struct {
	// PrioritizedTargets is the ordered target list for the next cycle.
	PrioritizedTargets []string `json:"prioritized_targets"`

	// StrategyScores maps strategy names to current effectiveness.
	StrategyScores map[string]float64 `json:"strategy_scores"`

	// RecentLimitations holds limitations from the last 24 hours.
	RecentLimitations map[string][]LimitationRecord `json:"recent_limitations"`

	// RecentDiscoveries holds the latest discovery events.
	RecentDiscoveries []DiscoveryEvent `json:"recent_discoveries"`

	// Snapshot is the aggregate store state at sync time.
	Snapshot MemorySnapshot `json:"snapshot"`
}
