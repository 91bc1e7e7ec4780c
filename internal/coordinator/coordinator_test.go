package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/model"
	"github.com/nao1215/aiscout/internal/report"
)

// fakeProber answers every probe with a healthy generic result.
type fakeProber struct {
	mu     sync.Mutex
	probed int
}

// Probe implements prober.Prober.
func (f *fakeProber) Probe(_ context.Context, target string) (*model.ProbeResult, error) {
	f.mu.Lock()
	f.probed++
	f.mu.Unlock()

	return &model.ProbeResult{
		URL:            target,
		Name:           "generic",
		Classification: "generic",
		Metrics: model.QualityMetrics{
			ResponseQuality:    6,
			RestrictionLevel:   4,
			LatencyScore:       8,
			AccessibilityScore: 8,
		},
		Availability: 1,
		ProbedAt:     time.Now(),
	}, nil
}

// DiscoverRelated implements prober.Prober.
func (f *fakeProber) DiscoverRelated(context.Context, string) ([]string, error) {
	return nil, nil
}

// newTestCoordinator builds a coordinator with millisecond loop cadence.
func newTestCoordinator(t *testing.T, mutate func(*config.Config)) (*Coordinator, string) {
	t.Helper()

	dataDir := t.TempDir()
	seeds := []string{"https://seed.example/one", "https://seed.example/two"}
	store, err := memory.Open(dataDir, seeds, memory.DefaultOptions())
	if err != nil {
		t.Fatalf("memory.Open() error = %v", err)
	}
	archive, err := history.Open(dataDir, history.DefaultOptions())
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	cfg := config.NewConfig()
	cfg.MaxWorkers = 2
	cfg.DataDir = dataDir
	cfg.LogDir = ""
	cfg.AutoDiscovery = false
	cfg.SeedTargets = seeds
	cfg.TargetsPerCycle = 2
	cfg.CyclePause = 5 * time.Millisecond
	cfg.BackoffUnit = 2 * time.Millisecond
	cfg.SyncInterval = 10 * time.Millisecond
	cfg.ReportInterval = 20 * time.Millisecond
	cfg.MaintenanceInterval = 30 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	sink := report.NewSink(dataDir)
	c, err := New(Params{
		Store:    store,
		Archive:  archive,
		Prober:   &fakeProber{},
		Renderer: report.NewRenderer(store, archive, sink, nil),
		Sink:     sink,
		Config:   cfg,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, dataDir
}

// TestNew tests constructor validation and fleet derivation.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing collaborators", func(t *testing.T) {
		t.Parallel()

		if _, err := New(Params{}); !errors.Is(err, ErrMissingStore) {
			t.Errorf("New() error = %v, want ErrMissingStore", err)
		}
	})

	t.Run("derives one worker per slot", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestCoordinator(t, func(cfg *config.Config) {
			cfg.MaxWorkers = 3
		})
		if len(c.workers) != 3 {
			t.Errorf("len(workers) = %d, want 3", len(c.workers))
		}
	})
}

// TestWorkerID tests identity derivation.
func TestWorkerID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slot int
		want string
	}{
		{0, "explorer-001"},
		{1, "explorer-002"},
		{11, "explorer-012"},
	}

	for _, tt := range tests {
		if got := WorkerID(tt.slot); got != tt.want {
			t.Errorf("WorkerID(%d) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}

// TestCoordinatorRun tests a short operation run end to end.
func TestCoordinatorRun(t *testing.T) {
	t.Parallel()

	c, dataDir := newTestCoordinator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool {
		stats := c.Stats()
		return stats.CyclesExecuted >= 2 && !stats.LastSync.IsZero()
	})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	stats := c.Stats()
	if stats.EndTime.IsZero() {
		t.Error("EndTime is zero, want shutdown timestamp")
	}
	if stats.ErrorsEncountered != 0 {
		t.Errorf("ErrorsEncountered = %d, want 0", stats.ErrorsEncountered)
	}

	// The final statistics document is written during shutdown.
	data, err := os.ReadFile(filepath.Join(dataDir, "reports", "final_operation_stats.json"))
	if err != nil {
		t.Fatalf("final stats not written: %v", err)
	}
	var persisted model.OperationStats
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("final stats are not valid JSON: %v", err)
	}
	if persisted.CyclesExecuted < 2 {
		t.Errorf("persisted CyclesExecuted = %d, want at least 2", persisted.CyclesExecuted)
	}

	// Shutdown also renders a last collective report.
	reports, err := filepath.Glob(filepath.Join(dataDir, "reports", "collective", "report_collective_*.json"))
	if err != nil || len(reports) == 0 {
		t.Errorf("collective reports = %v (err %v), want at least one", reports, err)
	}
}

// TestSynchronize tests that one synchronization pass refreshes liveness
// for the whole fleet, not just workers that completed a cycle.
func TestSynchronize(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, nil)

	// No worker has run a cycle yet; the store has never seen the fleet.
	if err := c.synchronize(context.Background()); err != nil {
		t.Fatalf("synchronize() error = %v", err)
	}

	statuses := c.store.WorkerStatuses()
	for _, id := range []string{"explorer-001", "explorer-002"} {
		status, ok := statuses[id]
		if !ok {
			t.Fatalf("worker %s missing from store after synchronize", id)
		}
		if status.LastSync.IsZero() {
			t.Errorf("worker %s LastSync is zero, want refreshed", id)
		}
	}

	// A worker sitting out a quarantine window must not read as dead after
	// a coordinator-driven sync.
	if flagged := c.store.FlagInactive(time.Minute); len(flagged) != 0 {
		t.Errorf("FlagInactive() = %v, want none after synchronize", flagged)
	}

	if c.Stats().LastSync.IsZero() {
		t.Error("LastSync stat is zero, want stamped")
	}
}

// TestLoopsRunFirstPassImmediately tests that the periodic loops do their
// work before the first sleep instead of waiting out a full interval.
func TestLoopsRunFirstPassImmediately(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, func(cfg *config.Config) {
		cfg.SyncInterval = time.Hour
		cfg.ReportInterval = time.Hour
		cfg.MaintenanceInterval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool {
		stats := c.Stats()
		return !stats.LastSync.IsZero() && !stats.LastReport.IsZero()
	})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on cancellation", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

// TestReportSkipsInactiveWorkers tests that a reporting pass renders
// individual reports only for active workers.
func TestReportSkipsInactiveWorkers(t *testing.T) {
	t.Parallel()

	c, dataDir := newTestCoordinator(t, nil)
	ctx := context.Background()

	// Register two identities, then let the sweep flag both and revive one.
	c.store.SyncWorker("explorer-001", 1)
	c.store.SyncWorker("ghost-001", 1)
	if flagged := c.store.FlagInactive(0); len(flagged) != 2 {
		t.Fatalf("FlagInactive() = %v, want both identities", flagged)
	}
	c.store.SyncWorker("explorer-001", 1)

	if err := c.report(ctx); err != nil {
		t.Fatalf("report() error = %v", err)
	}

	active, err := filepath.Glob(filepath.Join(dataDir, "reports", "individual", "report_explorer-001_*.json"))
	if err != nil || len(active) == 0 {
		t.Errorf("active worker reports = %v (err %v), want at least one", active, err)
	}
	inactive, err := filepath.Glob(filepath.Join(dataDir, "reports", "individual", "report_ghost-001_*.json"))
	if err != nil || len(inactive) != 0 {
		t.Errorf("inactive worker reports = %v (err %v), want none", inactive, err)
	}
}

// TestFinalizeOnce tests that shutdown statistics are sealed exactly once.
func TestFinalizeOnce(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, nil)

	c.finalize()
	first := c.Stats().EndTime
	if first.IsZero() {
		t.Fatal("EndTime is zero after finalize")
	}

	time.Sleep(5 * time.Millisecond)
	c.finalize()
	if got := c.Stats().EndTime; !got.Equal(first) {
		t.Errorf("EndTime changed on second finalize: %v != %v", got, first)
	}
}

// TestTallyConcurrency tests that counter updates from many goroutines are
// not lost.
func TestTallyConcurrency(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, nil)

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.CycleCompleted()
				c.TargetDiscovered()
				c.ErrorOccurred()
			}
		}()
	}
	wg.Wait()

	stats := c.Stats()
	want := goroutines * perGoroutine
	if stats.CyclesExecuted != want {
		t.Errorf("CyclesExecuted = %d, want %d", stats.CyclesExecuted, want)
	}
	if stats.TargetsDiscovered != want {
		t.Errorf("TargetsDiscovered = %d, want %d", stats.TargetsDiscovered, want)
	}
	if stats.ErrorsEncountered != want {
		t.Errorf("ErrorsEncountered = %d, want %d", stats.ErrorsEncountered, want)
	}
}

// TestMaintain tests one maintenance pass directly.
func TestMaintain(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	c, _ := newTestCoordinator(t, func(cfg *config.Config) {
		cfg.LogDir = logDir
		cfg.LogRetention = 24 * time.Hour
		cfg.HistoryCompactThreshold = 3
	})

	// An expired log file should be pruned.
	expired := filepath.Join(logDir, "explorer-001_20200101.log")
	if err := os.WriteFile(expired, []byte("old"), 0o600); err != nil {
		t.Fatalf("failed to plant log file: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(expired, old, old); err != nil {
		t.Fatalf("failed to age log file: %v", err)
	}

	// Overfill the archive past the compaction threshold.
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result := &model.ProbeResult{
			URL:          "https://chat.example.ai",
			Metrics:      model.QualityMetrics{ResponseQuality: 5},
			Availability: 1,
		}
		if _, err := c.archive.InsertProbe(ctx, "explorer-001", result); err != nil {
			t.Fatalf("InsertProbe() error = %v", err)
		}
	}

	if err := c.maintain(ctx); err != nil {
		t.Fatalf("maintain() error = %v", err)
	}

	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Errorf("expired log file survived maintenance: %v", err)
	}
	count, err := c.archive.ProbeCount(ctx)
	if err != nil {
		t.Fatalf("ProbeCount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("ProbeCount() after compaction = %d, want 3", count)
	}
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}
