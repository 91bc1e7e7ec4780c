package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/model"
	"github.com/nao1215/aiscout/internal/prober"
)

// Cycle tuning.
const (
	// defaultStrategy is used before any strategy has a recorded score.
	defaultStrategy = "conversacao_natural"

	// discoveryDomainsPerCycle caps how many discovery domains one cycle
	// queries, bounding auto-discovery traffic.
	discoveryDomainsPerCycle = 2

	// restrictionLimitThreshold is the restriction level at or above which
	// a probe files a content-filtering limitation.
	restrictionLimitThreshold = 8.0
)

// probeOutcome classifies what happened to one target probe.
type probeOutcome int

const (
	probeSucceeded probeOutcome = iota
	probeNoInterface
	probeUnreachable
)

// runCycle executes one exploration cycle: synchronize with the collective
// memory, probe the prioritized targets, optionally auto-discover new
// candidates, and record the cycle summary.
func (w *Worker) runCycle(ctx context.Context) error {
	w.setState(StateRunning)
	defer w.setState(StateIdle)

	bundle := w.store.SyncWorker(w.id, w.cfg.TargetsPerCycle)
	targets := bundle.PrioritizedTargets
	if len(targets) == 0 {
		targets = fallbackTargets(w.cfg.SeedTargets)
	}
	strategy := pickStrategy(bundle.StrategyScores)

	w.logger.Info("starting exploration cycle",
		"cycle", w.Cycle()+1, "targets", len(targets), "strategy", strategy)
	w.fileLog("cycle started",
		"cycle", w.Cycle()+1, "targets", len(targets), "strategy", strategy)

	var successes, transportFailures int
	for _, target := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch w.probeTarget(ctx, target, strategy) {
		case probeSucceeded:
			successes++
		case probeUnreachable:
			transportFailures++
		case probeNoInterface:
			// A reachable non-chat page is a verified negative.
		}
	}

	discoveries := 0
	if w.cfg.AutoDiscovery {
		discoveries = w.autoDiscover(ctx, strategy)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	cycle := w.bumpCycle()
	if w.archive != nil {
		summary := &history.CycleSummary{
			WorkerID:      w.id,
			Cycle:         cycle,
			TargetsProbed: len(targets),
			Discoveries:   discoveries,
			Failures:      transportFailures,
		}
		if err := w.archive.InsertCycleSummary(ctx, summary); err != nil {
			w.logger.Warn("failed to archive cycle summary",
				"cycle", cycle, "error", err)
		}
	}
	w.tally.CycleCompleted()
	w.hist.recordCycle()
	w.flushHistory()

	w.logger.Info("cycle complete", "cycle", cycle,
		"successes", successes, "failures", transportFailures,
		"discoveries", discoveries)
	w.fileLog("cycle complete", "cycle", cycle,
		"successes", successes, "failures", transportFailures,
		"discoveries", discoveries)

	if len(targets) > 0 && successes == 0 && transportFailures == len(targets) {
		return fmt.Errorf("%w: %d targets", ErrBarrenCycle, len(targets))
	}
	return nil
}

// probeTarget probes one target, feeds the observation into the collective
// memory and the archive, and moves the strategy score. Probe failures are
// absorbed here; the caller only learns the outcome class.
func (w *Worker) probeTarget(ctx context.Context, target, strategy string) probeOutcome {
	result, err := w.prober.Probe(ctx, target)
	if err != nil {
		w.hist.recordProbe(target, false)
		if errors.Is(err, prober.ErrNoChatInterface) {
			// The fetch worked, so the strategy only half-failed.
			w.store.UpdateStrategyScore(strategy, false, 0.5)
			w.logger.Debug("no chat interface", "url", target)
			return probeNoInterface
		}
		w.store.UpdateStrategyScore(strategy, false, 1.0)
		w.logger.Debug("target unreachable", "url", target, "error", err)
		return probeUnreachable
	}

	isNew, persisted := w.store.RecordDiscovery(w.id, result.Record(w.id))
	if !persisted {
		w.logger.Warn("failed to persist discovery", "url", target)
	}
	w.hist.recordProbe(target, true)
	if isNew {
		w.hist.recordDiscovery(target)
		w.fileLog("new target discovered",
			"url", target, "classification", result.Classification)
	}

	if w.archive != nil {
		if _, err := w.archive.InsertProbe(ctx, w.id, result); err != nil {
			w.logger.Warn("failed to archive probe", "url", target, "error", err)
		}
	}

	if result.Metrics.RestrictionLevel >= restrictionLimitThreshold {
		w.store.RecordLimitation(model.LimitationContentFiltering, model.LimitationRecord{
			URL:      target,
			WorkerID: w.id,
			Detail: fmt.Sprintf("restriction level %.1f of %.0f",
				result.Metrics.RestrictionLevel, model.MetricMax),
		})
	}

	w.store.UpdateStrategyScore(strategy, true, 1.0)
	return probeSucceeded
}

// autoDiscover queries the first discovery domains for candidate endpoints
// and probes the first unknown candidate per domain. It returns the number
// of candidates that probed successfully.
func (w *Worker) autoDiscover(ctx context.Context, strategy string) int {
	domains := w.cfg.DiscoveryDomains
	if len(domains) > discoveryDomainsPerCycle {
		domains = domains[:discoveryDomainsPerCycle]
	}

	known := make(map[string]bool)
	for _, rec := range w.store.Targets() {
		known[rec.URL] = true
	}

	discovered := 0
	for _, domain := range domains {
		if ctx.Err() != nil {
			break
		}
		candidates, err := w.prober.DiscoverRelated(ctx, domain)
		if err != nil {
			w.logger.Debug("auto-discovery failed",
				"domain", domain, "error", err)
			continue
		}

		candidate := ""
		for _, c := range candidates {
			if !known[c] {
				candidate = c
				break
			}
		}
		if candidate == "" {
			continue
		}
		known[candidate] = true

		if w.probeTarget(ctx, candidate, strategy) == probeSucceeded {
			discovered++
			w.tally.TargetDiscovered()
		}
	}
	return discovered
}

// pickStrategy returns the highest-scored strategy, falling back to the
// default before any score exists. Ties break on name for determinism.
func pickStrategy(scores map[string]float64) string {
	best := defaultStrategy
	bestScore := -1.0
	for name, score := range scores {
		if score > bestScore || (score == bestScore && name < best) {
			best = name
			bestScore = score
		}
	}
	return best
}

// fallbackTargets returns the head of the seed list used when the store has
// no prioritized targets to hand out.
func fallbackTargets(seeds []string) []string {
	if len(seeds) > config.DefaultBaseTargets {
		seeds = seeds[:config.DefaultBaseTargets]
	}
	return seeds
}
