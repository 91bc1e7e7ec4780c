package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/log"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/prober"
)

// State is the lifecycle state of a worker loop.
type State string

// Worker lifecycle states.
const (
	// StateIdle means the worker is between cycles or not yet started.
	StateIdle State = "idle"

	// StateRunning means the worker is inside an exploration cycle.
	StateRunning State = "running"

	// StateQuarantined means the worker exhausted its failure budget and
	// is cooling down.
	StateQuarantined State = "quarantined"
)

// Construction and cycle errors.
var (
	// ErrMissingStore is returned when no collective memory is supplied.
	ErrMissingStore = errors.New("worker requires a collective memory store")

	// ErrMissingProber is returned when no prober is supplied.
	ErrMissingProber = errors.New("worker requires a prober")

	// ErrMissingID is returned when the worker identity is empty.
	ErrMissingID = errors.New("worker requires an identity")

	// ErrBarrenCycle marks a cycle in which every target failed at the
	// transport level. It counts against the consecutive-failure budget.
	ErrBarrenCycle = errors.New("exploration cycle produced no reachable target")
)

// Tally receives operation-wide counter updates from workers.
// The coordinator implements it; workers never touch OperationStats
// directly.
type Tally interface {
	// CycleCompleted is called once per finished exploration cycle.
	CycleCompleted()

	// TargetDiscovered is called when auto-discovery lands a new target.
	TargetDiscovered()

	// ErrorOccurred is called once per failed iteration.
	ErrorOccurred()
}

// noopTally is used when no tally is wired, e.g. in tests.
type noopTally struct{}

func (noopTally) CycleCompleted()   {}
func (noopTally) TargetDiscovered() {}
func (noopTally) ErrorOccurred()    {}

// Params bundles the collaborators a worker needs.
type Params struct {
	// ID is the worker identity (e.g. "explorer-001").
	ID string

	// Store is the shared collective memory.
	Store *memory.Store

	// Prober performs target interaction.
	Prober prober.Prober

	// Archive receives raw probe observations. Optional.
	Archive *history.Archive

	// Config supplies loop cadence and failure policy.
	Config *config.Config

	// Tally receives operation counter updates. Optional.
	Tally Tally

	// Logger receives worker diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Worker is one explorer identity. Create it with New and drive it with
// Run; all other methods are safe to call concurrently with Run.
type Worker struct {
	id      string
	store   *memory.Store
	prober  prober.Prober
	archive *history.Archive
	cfg     *config.Config
	tally   Tally
	logger  *slog.Logger

	// fileLogger duplicates worker-scoped events into the per-day log
	// file under the log directory. Nil when no log directory is set.
	fileLogger *slog.Logger

	// mu guards the mutable loop state below.
	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	cycle               int

	// hist is the worker's private exploration history.
	hist *privateHistory
}

// New creates a worker from its collaborators.
func New(p Params) (*Worker, error) {
	if p.ID == "" {
		return nil, ErrMissingID
	}
	if p.Store == nil {
		return nil, ErrMissingStore
	}
	if p.Prober == nil {
		return nil, ErrMissingProber
	}
	if p.Config == nil {
		p.Config = config.NewConfig()
	}
	if p.Tally == nil {
		p.Tally = noopTally{}
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	return &Worker{
		id:      p.ID,
		store:   p.Store,
		prober:  p.Prober,
		archive: p.Archive,
		cfg:     p.Config,
		tally:   p.Tally,
		logger:  p.Logger.With("worker_id", p.ID),
		state:   StateIdle,
		hist:    loadPrivateHistory(p.Config.DataDir, p.ID),
	}, nil
}

// ID returns the worker identity.
func (w *Worker) ID() string {
	return w.id
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ConsecutiveFailures returns the current failure counter.
func (w *Worker) ConsecutiveFailures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.consecutiveFailures
}

// Cycle returns the number of completed cycles.
func (w *Worker) Cycle() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycle
}

// Run drives the worker loop until the context is cancelled. Cancellation
// is a normal exit, not an error; the final private history flush happens
// before returning.
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.LogDir != "" {
		if f, err := log.WorkerLogFile(w.cfg.LogDir, w.id, time.Now()); err == nil {
			w.fileLogger = log.NewSecureJSONLogger(f, w.cfg.Verbose)
			defer func() { _ = f.Close() }()
		} else {
			w.logger.Warn("failed to open worker log file", "error", err)
		}
	}
	defer w.setState(StateIdle)
	defer w.flushHistory()

	w.logger.Info("worker starting")
	for {
		err := w.runCycle(ctx)
		if ctx.Err() != nil {
			w.logger.Info("worker stopping", "cycles", w.Cycle())
			return nil
		}
		if err != nil {
			failures := w.recordFailure()
			w.tally.ErrorOccurred()
			w.logger.Error("iteration failed",
				"error", err, "attempt", failures)

			if failures >= w.cfg.MaxConsecutiveFailures {
				w.setState(StateQuarantined)
				w.logger.Error("worker entering quarantine",
					"duration", w.cfg.QuarantineDuration)
				if err := Sleep(ctx, w.cfg.QuarantineDuration); err != nil {
					return nil
				}
				w.resetFailures()
				continue
			}

			if err := Sleep(ctx, w.cfg.BackoffUnit*time.Duration(failures)); err != nil {
				return nil
			}
			continue
		}

		w.resetFailures()
		if err := Sleep(ctx, w.cfg.CyclePause); err != nil {
			return nil
		}
	}
}

// setState updates the lifecycle state.
func (w *Worker) setState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// recordFailure bumps the failure counter and returns its new value.
func (w *Worker) recordFailure() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures++
	return w.consecutiveFailures
}

// resetFailures zeroes the failure counter.
func (w *Worker) resetFailures() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.consecutiveFailures = 0
}

// bumpCycle increments the completed-cycle counter and returns it.
func (w *Worker) bumpCycle() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cycle++
	return w.cycle
}

// Sleep blocks for d or until the context is cancelled, whichever comes
// first. It returns the context error on cancellation so callers can bail
// out of their loop.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fileLog writes an event to the per-worker log file when one is open.
func (w *Worker) fileLog(msg string, args ...any) {
	if w.fileLogger != nil {
		w.fileLogger.Info(msg, args...)
	}
}
