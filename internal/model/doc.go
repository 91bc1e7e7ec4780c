// Package model defines the core data structures shared across AIScout.
//
// This package contains the following main types:
//   - TargetRecord: Everything the fleet knows about one probed endpoint
//   - LimitationRecord: An observed restriction on a target
//   - WorkerStatus: Liveness and productivity data for one explorer worker
//   - OperationStats: Process-wide counters owned by the coordinator
//   - ProbeResult / ProbeOutcome: The prober collaborator's result types
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (memory, worker, coordinator, report) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for the collective
// memory document, per-worker history files, and report output.
package model
