package memory

import (
	"sort"
	"time"

	"github.com/nao1215/aiscout/internal/model"
)

// Strategy score movement per outcome. A success pulls the score up faster
// than a failure pulls it down, so one bad cycle does not bury a strategy
// that usually works.
const (
	// StrategyInitialScore is assigned to a strategy on first sighting.
	StrategyInitialScore = 0.5

	// strategySuccessStep is the upward movement on success, before weight.
	strategySuccessStep = 0.1

	// strategyFailureStep is the downward movement on failure, before weight.
	strategyFailureStep = 0.05
)

// RecordDiscovery merges one probe observation into the store under the
// given worker identity. It returns whether the target was new to the
// store and whether the mutation was persisted.
//
// For a known target the quality metrics are merged with the configured
// incoming weight, the descriptive fields and metadata are replaced by the
// new observation, the verification count increases, and the worker joins
// the verifier set. A new target additionally enters the recent-discoveries
// ring and counts toward the worker's discovery tally.
//
// Invalid records (no URL, metrics out of range) are rejected without
// touching the store.
func (s *Store) RecordDiscovery(workerID string, rec *model.TargetRecord) (isNew, ok bool) {
	if err := rec.Validate(); err != nil {
		s.logger.Warn("rejected invalid target record",
			"worker_id", workerID, "url", rec.URL, "error", err)
		return false, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, known := s.doc.Targets[rec.URL]
	if known {
		existing.Metrics = existing.Metrics.Merge(rec.Metrics, s.opts.MergeWeight)
		existing.Name = rec.Name
		existing.Classification = rec.Classification
		existing.DetectedModel = rec.DetectedModel
		existing.Availability = rec.Availability
		existing.Metadata = rec.Metadata
		existing.LastVerified = now
		existing.VerificationCount++
		existing.AddVerifier(workerID)
	} else {
		stored := *rec
		stored.DiscoveredBy = workerID
		stored.FirstDiscovered = now
		stored.LastVerified = now
		stored.VerificationCount = 1
		stored.VerifiedBy = []string{workerID}
		s.doc.Targets[rec.URL] = &stored
		s.pushDiscoveryLocked(model.DiscoveryEvent{
			URL:       rec.URL,
			WorkerID:  workerID,
			Timestamp: now,
			Kind:      "new_target",
		})
	}

	status := s.workerStatusLocked(workerID)
	status.LastActivity = now
	status.Verifications++
	status.State = model.WorkerActive
	if !known {
		status.TargetsDiscovered++
	}

	return !known, s.persist()
}

// RecordLimitation appends one limitation observation under the given
// category. Unknown categories are created on first use. A zero timestamp
// is stamped with the store clock.
func (s *Store) RecordLimitation(category string, lim model.LimitationRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lim.Timestamp.IsZero() {
		lim.Timestamp = s.now()
	}
	s.doc.Limitations[category] = append(s.doc.Limitations[category], lim)

	status := s.workerStatusLocked(lim.WorkerID)
	status.LastActivity = lim.Timestamp
	status.State = model.WorkerActive

	return s.persist()
}

// UpdateStrategyScore moves a strategy's effectiveness score after one
// outcome. Unknown strategies start at StrategyInitialScore before the
// movement applies. The result is clamped to [0, 1].
func (s *Store) UpdateStrategyScore(strategy string, success bool, weight float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, known := s.doc.StrategyScores[strategy]
	if !known {
		score = StrategyInitialScore
	}
	if success {
		score += strategySuccessStep * weight
	} else {
		score -= strategyFailureStep * weight
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	s.doc.StrategyScores[strategy] = score

	return s.persist()
}

// PrioritizedTargets builds the ordered probe list for one worker cycle.
//
// Seeds come first, in their configured order, when they have never been
// recorded, when their last verification is older than the recency window,
// or when fewer than the verifier quorum have confirmed them. Known targets
// whose response quality sits below the low-quality threshold follow, in
// discovery order, as a re-verification backlog. The list is truncated to
// limit; a non-positive limit returns an empty list.
func (s *Store) PrioritizedTargets(limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prioritizedLocked(limit)
}

// Snapshot returns the aggregate read-only view of the store.
func (s *Store) Snapshot() model.MemorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SyncWorker marks the worker active and returns its planning bundle for
// the next cycle. Synchronization never fails: if persisting the liveness
// mark does not succeed, the bundle is still returned so the worker can
// keep exploring.
func (s *Store) SyncWorker(workerID string, limit int) *model.SyncBundle {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	status := s.workerStatusLocked(workerID)
	status.LastSync = now
	status.State = model.WorkerActive

	snapshot := s.snapshotLocked()
	bundle := &model.SyncBundle{
		PrioritizedTargets: s.prioritizedLocked(limit),
		StrategyScores:     snapshot.StrategyScores,
		RecentLimitations:  snapshot.RecentLimitations,
		RecentDiscoveries:  snapshot.RecentDiscoveries,
		Snapshot:           snapshot,
	}

	if !s.persist() {
		s.logger.Warn("failed to persist sync mark", "worker_id", workerID)
	}
	return bundle
}

// FlagInactive marks workers whose last synchronization is older than the
// threshold as inactive and returns their identities. Flagged workers are
// never removed; the record of what they contributed stays.
func (s *Store) FlagInactive(olderThan time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	flagged := make([]string, 0)
	for id, status := range s.doc.WorkerStatus {
		if status.State == model.WorkerActive && status.LastSync.Before(cutoff) {
			status.State = model.WorkerInactive
			flagged = append(flagged, id)
		}
	}
	sort.Strings(flagged)

	if len(flagged) > 0 && !s.persist() {
		s.logger.Warn("failed to persist inactivity flags")
	}
	return flagged
}

// workerStatusLocked returns the status record for a worker, creating it on
// first sight. Callers must hold s.mu.
func (s *Store) workerStatusLocked(workerID string) *model.WorkerStatus {
	status, ok := s.doc.WorkerStatus[workerID]
	if !ok {
		status = &model.WorkerStatus{State: model.WorkerActive}
		s.doc.WorkerStatus[workerID] = status
	}
	return status
}

// pushDiscoveryLocked appends to the recent-discoveries ring, evicting the
// oldest entry beyond the cap. Callers must hold s.mu.
func (s *Store) pushDiscoveryLocked(event model.DiscoveryEvent) {
	s.doc.RecentDiscoveries = append(s.doc.RecentDiscoveries, event)
	if len(s.doc.RecentDiscoveries) > s.opts.RecentCap {
		s.doc.RecentDiscoveries = s.doc.RecentDiscoveries[len(s.doc.RecentDiscoveries)-s.opts.RecentCap:]
	}
}

// prioritizedLocked is PrioritizedTargets without locking, for use inside
// SyncWorker. Callers must hold s.mu.
func (s *Store) prioritizedLocked(limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	cutoff := s.now().Add(-s.opts.RecencyWindow)
	prioritized := make([]string, 0, limit)
	seen := make(map[string]bool)

	for _, seed := range s.doc.SeedTargets {
		rec, known := s.doc.Targets[seed]
		if !known || rec.LastVerified.Before(cutoff) || len(rec.VerifiedBy) < s.opts.MinVerifiers {
			prioritized = append(prioritized, seed)
			seen[seed] = true
		}
	}

	backlog := make([]*model.TargetRecord, 0)
	for _, rec := range s.doc.Targets {
		if seen[rec.URL] {
			continue
		}
		if rec.Metrics.ResponseQuality < model.LowQualityThreshold {
			backlog = append(backlog, rec)
		}
	}
	sort.Slice(backlog, func(i, j int) bool {
		if backlog[i].FirstDiscovered.Equal(backlog[j].FirstDiscovered) {
			return backlog[i].URL < backlog[j].URL
		}
		return backlog[i].FirstDiscovered.Before(backlog[j].FirstDiscovered)
	})
	for _, rec := range backlog {
		prioritized = append(prioritized, rec.URL)
	}

	if len(prioritized) > limit {
		prioritized = prioritized[:limit]
	}
	return prioritized
}

// snapshotLocked builds the aggregate view. Callers must hold s.mu.
func (s *Store) snapshotLocked() model.MemorySnapshot {
	now := s.now()
	cutoff := now.Add(-s.opts.RecencyWindow)

	active := 0
	for _, status := range s.doc.WorkerStatus {
		if status.State == model.WorkerActive {
			active++
		}
	}

	recentLimitations := make(map[string][]model.LimitationRecord)
	for category, records := range s.doc.Limitations {
		for _, lim := range records {
			if lim.Timestamp.After(cutoff) {
				recentLimitations[category] = append(recentLimitations[category], lim)
			}
		}
	}

	scores := make(map[string]float64, len(s.doc.StrategyScores))
	for name, score := range s.doc.StrategyScores {
		scores[name] = score
	}

	ring := s.doc.RecentDiscoveries
	if len(ring) > snapshotDiscoveries {
		ring = ring[len(ring)-snapshotDiscoveries:]
	}
	recent := append([]model.DiscoveryEvent(nil), ring...)

	return model.MemorySnapshot{
		TotalTargets:      len(s.doc.Targets),
		ActiveWorkers:     active,
		UpdatedAt:         s.doc.Metadata.UpdatedAt,
		SeedTargets:       append([]string(nil), s.doc.SeedTargets...),
		StrategyScores:    scores,
		RecentLimitations: recentLimitations,
		RecentDiscoveries: recent,
	}
}
