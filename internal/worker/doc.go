// Package worker implements the explorer worker loop: the independently
// scheduled identity that pulls prioritized targets from the collective
// memory, probes them, and feeds observations back.
//
// # Lifecycle
//
// A worker cycles Idle -> Running -> Idle for as long as its context
// lives. A failed iteration triggers linear backoff (one backoff unit per
// consecutive failure); exhausting the failure budget sends the worker
// into Quarantined for the configured cooldown, after which the failure
// counter resets to zero and exploration resumes. Every sleep races the
// context, so shutdown is observed within one sleep bound.
//
// # Failure isolation
//
// Individual probe failures are recorded as failed outcomes and never
// abort the cycle. Only a cycle in which every target failed at the
// transport level counts as an iteration failure.
package worker
