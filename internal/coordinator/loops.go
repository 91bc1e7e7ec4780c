package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/aiscout/internal/log"
	"github.com/nao1215/aiscout/internal/model"
	"github.com/nao1215/aiscout/internal/worker"
)

// Fallback pauses applied after a failed loop iteration. Shorter than the
// regular cadence so a transient fault is retried promptly.
const (
	syncFallback        = time.Minute
	reportFallback      = 5 * time.Minute
	maintenanceFallback = time.Hour
)

// inactivityFactor times the sync interval gives the threshold after which
// a silent worker is flagged inactive.
const inactivityFactor = 3

// syncLoop reconciles liveness state and refreshes the aggregate
// statistics, first pass immediately and then once per interval. Returns
// nil when the context is cancelled.
func (c *Coordinator) syncLoop(ctx context.Context) error {
	for {
		pause := c.cfg.SyncInterval
		if err := c.synchronize(ctx); err != nil {
			c.logger.Error("synchronization failed", "error", err)
			pause = syncFallback
		}
		if err := worker.Sleep(ctx, pause); err != nil {
			return nil
		}
	}
}

// synchronize runs one synchronization pass. Every fleet worker gets its
// liveness mark refreshed here: a worker sitting out a backoff or
// quarantine window runs no cycles of its own, and without the
// coordinator-driven sync the maintenance sweep would read that silence
// as death.
func (c *Coordinator) synchronize(ctx context.Context) error {
	for _, w := range c.workers {
		c.store.SyncWorker(w.ID(), c.cfg.TargetsPerCycle)
	}

	snapshot := c.store.Snapshot()

	var probes int64
	if c.archive != nil {
		count, err := c.archive.ProbeCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to read probe totals: %w", err)
		}
		probes = count
	}

	c.markSync(time.Now())
	c.logger.Info("synchronization complete",
		"targets", snapshot.TotalTargets,
		"active_workers", snapshot.ActiveWorkers,
		"probes_archived", probes)
	return nil
}

// reportLoop renders the collective report plus one report per active
// worker, first pass immediately and then once per interval. Returns nil
// when the context is cancelled.
func (c *Coordinator) reportLoop(ctx context.Context) error {
	for {
		pause := c.cfg.ReportInterval
		if err := c.report(ctx); err != nil {
			c.logger.Error("report generation failed", "error", err)
			pause = reportFallback
		}
		if err := worker.Sleep(ctx, pause); err != nil {
			return nil
		}
	}
}

// report runs one reporting pass. Workers flagged inactive keep their
// records but get no fresh report. Individual report failures are logged
// and skipped; only a collective failure counts as a failed pass.
func (c *Coordinator) report(ctx context.Context) error {
	if _, err := c.renderer.RenderCollective(ctx); err != nil {
		return err
	}
	for workerID, status := range c.store.WorkerStatuses() {
		if status.State != model.WorkerActive {
			continue
		}
		if _, err := c.renderer.RenderIndividual(ctx, workerID); err != nil {
			c.logger.Warn("failed to render individual report",
				"worker_id", workerID, "error", err)
		}
	}
	c.markReport(time.Now())
	return nil
}

// maintenanceLoop prunes logs, compacts the history archive, and sweeps
// worker liveness, first pass immediately and then once per interval.
// Returns nil when the context is cancelled.
func (c *Coordinator) maintenanceLoop(ctx context.Context) error {
	for {
		pause := c.cfg.MaintenanceInterval
		if err := c.maintain(ctx); err != nil {
			c.logger.Error("maintenance failed", "error", err)
			pause = maintenanceFallback
		}
		if err := worker.Sleep(ctx, pause); err != nil {
			return nil
		}
	}
}

// maintain runs one maintenance pass.
func (c *Coordinator) maintain(ctx context.Context) error {
	if c.cfg.LogDir != "" {
		pruned, err := log.PruneOldLogs(c.cfg.LogDir, c.cfg.LogRetention, time.Now())
		if err != nil {
			return fmt.Errorf("failed to prune logs: %w", err)
		}
		if pruned > 0 {
			c.logger.Info("pruned expired log files", "count", pruned)
		}
	}

	if c.archive != nil {
		count, err := c.archive.ProbeCount(ctx)
		if err != nil {
			return fmt.Errorf("failed to read probe totals: %w", err)
		}
		if count > int64(c.cfg.HistoryCompactThreshold) {
			removed, err := c.archive.Compact(ctx, int64(c.cfg.HistoryCompactThreshold))
			if err != nil {
				return fmt.Errorf("failed to compact history: %w", err)
			}
			c.logger.Info("compacted probe history", "removed", removed)
		}
	}

	if flagged := c.store.FlagInactive(time.Duration(inactivityFactor) * c.cfg.SyncInterval); len(flagged) > 0 {
		c.logger.Warn("flagged inactive workers", "workers", flagged)
	}
	return nil
}
