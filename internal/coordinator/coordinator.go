package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/model"
	"github.com/nao1215/aiscout/internal/prober"
	"github.com/nao1215/aiscout/internal/report"
	"github.com/nao1215/aiscout/internal/worker"
)

// finalizeTimeout bounds the shutdown report rendering. Shutdown must not
// hang on a slow disk or database.
const finalizeTimeout = 30 * time.Second

// Construction errors.
var (
	// ErrMissingStore is returned when no collective memory is supplied.
	ErrMissingStore = errors.New("coordinator requires a collective memory store")

	// ErrMissingProber is returned when no prober is supplied.
	ErrMissingProber = errors.New("coordinator requires a prober")

	// ErrMissingRenderer is returned when no report renderer is supplied.
	ErrMissingRenderer = errors.New("coordinator requires a report renderer")
)

// Params bundles the collaborators the coordinator needs.
type Params struct {
	// Store is the shared collective memory.
	Store *memory.Store

	// Archive receives raw probe observations. Optional.
	Archive *history.Archive

	// Prober performs target interaction, shared by all workers.
	Prober prober.Prober

	// Renderer renders the periodic and final reports.
	Renderer *report.Renderer

	// Sink owns the report directory, used for the final statistics.
	Sink *report.Sink

	// Config supplies fleet size and loop cadence.
	Config *config.Config

	// Logger receives coordinator diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Coordinator runs the fleet. Create it with New and drive it with Run.
type Coordinator struct {
	store    *memory.Store
	archive  *history.Archive
	renderer *report.Renderer
	sink     *report.Sink
	cfg      *config.Config
	logger   *slog.Logger
	workers  []*worker.Worker

	// statsMu guards stats. The coordinator is the only writer; workers
	// mutate through the Tally methods below.
	statsMu sync.Mutex
	stats   *model.OperationStats

	// finalizeOnce guarantees the final statistics document is persisted
	// exactly once regardless of how shutdown unwinds.
	finalizeOnce sync.Once
}

// New creates a coordinator and its worker fleet.
func New(p Params) (*Coordinator, error) {
	if p.Store == nil {
		return nil, ErrMissingStore
	}
	if p.Prober == nil {
		return nil, ErrMissingProber
	}
	if p.Renderer == nil {
		return nil, ErrMissingRenderer
	}
	if p.Config == nil {
		p.Config = config.NewConfig()
	}
	if p.Sink == nil {
		p.Sink = report.NewSink(p.Config.DataDir)
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	c := &Coordinator{
		store:    p.Store,
		archive:  p.Archive,
		renderer: p.Renderer,
		sink:     p.Sink,
		cfg:      p.Config,
		logger:   p.Logger,
		stats:    model.NewOperationStats(time.Now()),
	}

	for i := 0; i < p.Config.MaxWorkers; i++ {
		w, err := worker.New(worker.Params{
			ID:      WorkerID(i),
			Store:   p.Store,
			Prober:  p.Prober,
			Archive: p.Archive,
			Config:  p.Config,
			Tally:   c,
			Logger:  p.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create worker %s: %w", WorkerID(i), err)
		}
		c.workers = append(c.workers, w)
	}
	return c, nil
}

// WorkerID derives the identity for the i-th worker slot.
func WorkerID(i int) string {
	return fmt.Sprintf("explorer-%03d", i+1)
}

// Run starts the fleet and the periodic loops and blocks until the context
// is cancelled. The final statistics document and shutdown reports are
// written before Run returns.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator starting",
		"workers", len(c.workers),
		"sync_interval", c.cfg.SyncInterval,
		"report_interval", c.cfg.ReportInterval,
		"maintenance_interval", c.cfg.MaintenanceInterval)

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range c.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error { return c.syncLoop(gctx) })
	g.Go(func() error { return c.reportLoop(gctx) })
	g.Go(func() error { return c.maintenanceLoop(gctx) })

	err := g.Wait()
	c.finalize()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("operation ended abnormally: %w", err)
	}
	return nil
}

// Stats returns a copy of the current operation statistics.
func (c *Coordinator) Stats() model.OperationStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return *c.stats
}

// CycleCompleted implements worker.Tally.
func (c *Coordinator) CycleCompleted() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.CyclesExecuted++
}

// TargetDiscovered implements worker.Tally.
func (c *Coordinator) TargetDiscovered() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.TargetsDiscovered++
}

// ErrorOccurred implements worker.Tally.
func (c *Coordinator) ErrorOccurred() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.ErrorsEncountered++
}

// markSync stamps the synchronization loop's completion time.
func (c *Coordinator) markSync(t time.Time) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.LastSync = t
}

// markReport stamps the reporting loop's completion time.
func (c *Coordinator) markReport(t time.Time) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.LastReport = t
}

// finalize seals the operation statistics and renders the shutdown
// reports. Safe to call more than once; only the first call acts.
func (c *Coordinator) finalize() {
	c.finalizeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()

		c.statsMu.Lock()
		c.stats.EndTime = time.Now()
		final := *c.stats
		c.statsMu.Unlock()

		if err := c.sink.WriteFinalStats(&final); err != nil {
			c.logger.Error("failed to persist final statistics", "error", err)
		}
		if _, err := c.renderer.RenderCollective(ctx); err != nil {
			c.logger.Error("failed to render shutdown report", "error", err)
		}

		c.logger.Info("operation finished",
			"cycles", final.CyclesExecuted,
			"discoveries", final.TargetsDiscovered,
			"errors", final.ErrorsEncountered,
			"uptime", final.EndTime.Sub(final.StartTime).Round(time.Second))
	})
}
