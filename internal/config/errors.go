package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidMaxWorkers is returned when the worker count is not positive.
	// Zero workers would mean the fleet never probes anything.
	ErrInvalidMaxWorkers = errors.New("invalid max workers: must be positive")

	// ErrInvalidInterval is returned when a periodic loop interval is not
	// positive. A zero interval would turn a periodic loop into a busy loop.
	ErrInvalidInterval = errors.New("invalid loop interval: sync, report, and maintenance intervals must be positive")

	// ErrInvalidCyclePause is returned when the inter-cycle pause is negative.
	// Use 0 for no pause between cycles.
	ErrInvalidCyclePause = errors.New("invalid cycle pause: must be non-negative")

	// ErrInvalidFailureBudget is returned when the quarantine failure budget
	// is not positive. A budget of zero would quarantine workers immediately.
	ErrInvalidFailureBudget = errors.New("invalid failure budget: max consecutive failures must be positive")

	// ErrInvalidQuarantine is returned when the quarantine duration is not
	// positive. Quarantine exists to give failing endpoints breathing room.
	ErrInvalidQuarantine = errors.New("invalid quarantine duration: must be positive")

	// ErrInvalidTargetLimit is returned when the per-cycle target limit is
	// not positive.
	ErrInvalidTargetLimit = errors.New("invalid target limit: targets per cycle must be positive")

	// ErrInvalidProbeTimeout is returned when the probe timeout is not
	// positive. A zero timeout would cause immediate request failures.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive")

	// ErrNoSeedTargets is returned when the seed target list is empty.
	// Workers fall back to the seed list when the store has no priorities,
	// so an empty list could leave the fleet with nothing to do.
	ErrNoSeedTargets = errors.New("no seed targets configured")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
