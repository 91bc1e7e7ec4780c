package memory

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/nao1215/aiscout/internal/model"
)

// TestUpdateStrategyScore tests score movement and clamping.
func TestUpdateStrategyScore(t *testing.T) {
	t.Parallel()

	t.Run("success then failure from default", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)

		if !s.UpdateStrategyScore("conversacao_natural", true, 1.0) {
			t.Fatal("UpdateStrategyScore() failed")
		}
		if got := s.StrategyScores()["conversacao_natural"]; math.Abs(got-0.6) > floatTolerance {
			t.Errorf("score after success = %v, want 0.6", got)
		}

		s.UpdateStrategyScore("conversacao_natural", false, 1.0)
		if got := s.StrategyScores()["conversacao_natural"]; math.Abs(got-0.55) > floatTolerance {
			t.Errorf("score after failure = %v, want 0.55", got)
		}
	})

	t.Run("score stays in range for random sequences", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		rng := rand.New(rand.NewSource(42)) //nolint:gosec // Deterministic sequence for a property test

		for i := 0; i < 500; i++ {
			s.UpdateStrategyScore("fuzzed", rng.Intn(2) == 0, rng.Float64()*5)
			got := s.StrategyScores()["fuzzed"]
			if got < 0 || got > 1 {
				t.Fatalf("iteration %d: score %v escaped [0, 1]", i, got)
			}
		}
	})

	t.Run("weight scales the movement", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		s.UpdateStrategyScore("weighted", true, 2.0)
		if got := s.StrategyScores()["weighted"]; math.Abs(got-0.7) > floatTolerance {
			t.Errorf("score = %v, want 0.7 (0.5 + 0.1*2)", got)
		}
	})
}

// TestPrioritizedTargets tests the seed-and-backlog ranking policy.
func TestPrioritizedTargets(t *testing.T) {
	t.Parallel()

	t.Run("unrecorded seeds come first in seed order", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test", "https://b.test"})
		got := s.PrioritizedTargets(10)
		if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
			t.Errorf("PrioritizedTargets() = %v, want seeds in order", got)
		}
	})

	t.Run("fully verified fresh seed is excluded", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test"})
		for _, worker := range []string{"w1", "w2", "w3"} {
			s.RecordDiscovery(worker, &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(8)})
		}

		if got := s.PrioritizedTargets(10); len(got) != 0 {
			t.Errorf("PrioritizedTargets() = %v, want empty for a fresh quorum-verified seed", got)
		}
	})

	t.Run("stale seed re-qualifies", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test"})
		for _, worker := range []string{"w1", "w2", "w3"} {
			s.RecordDiscovery(worker, &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(8)})
		}

		// Move the clock past the recency window.
		s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

		got := s.PrioritizedTargets(10)
		if len(got) != 1 || got[0] != "https://a.test" {
			t.Errorf("PrioritizedTargets() = %v, want the stale seed", got)
		}
	})

	t.Run("seed below verifier quorum qualifies", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test"})
		s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(8)})
		s.RecordDiscovery("w2", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(8)})

		got := s.PrioritizedTargets(10)
		if len(got) != 1 || got[0] != "https://a.test" {
			t.Errorf("PrioritizedTargets() = %v, want under-verified seed", got)
		}
	})

	t.Run("low quality known targets form the backlog", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		for _, worker := range []string{"w1", "w2", "w3"} {
			s.RecordDiscovery(worker, &model.TargetRecord{URL: "https://weak.test", Metrics: metricsOf(2)})
			s.RecordDiscovery(worker, &model.TargetRecord{URL: "https://strong.test", Metrics: metricsOf(9)})
		}

		got := s.PrioritizedTargets(10)
		if len(got) != 1 || got[0] != "https://weak.test" {
			t.Errorf("PrioritizedTargets() = %v, want only the low-quality target", got)
		}
	})

	t.Run("result is truncated to limit", func(t *testing.T) {
		t.Parallel()

		seeds := []string{"https://a.test", "https://b.test", "https://c.test"}
		s := testStore(t, seeds)
		got := s.PrioritizedTargets(2)
		if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
			t.Errorf("PrioritizedTargets(2) = %v, want first two seeds", got)
		}
	})

	t.Run("non-positive limit yields empty list", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test"})
		if got := s.PrioritizedTargets(0); len(got) != 0 {
			t.Errorf("PrioritizedTargets(0) = %v, want empty", got)
		}
	})

	t.Run("quorum-verified fresh targets only return when weak", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // Deterministic property test

		for i := 0; i < 30; i++ {
			url := fmt.Sprintf("https://t%02d.test", i)
			quality := rng.Float64() * 10
			for _, worker := range []string{"w1", "w2", "w3"} {
				s.RecordDiscovery(worker, &model.TargetRecord{URL: url, Metrics: metricsOf(quality)})
			}
		}

		targets := make(map[string]model.TargetRecord)
		for _, rec := range s.Targets() {
			targets[rec.URL] = rec
		}
		for _, url := range s.PrioritizedTargets(100) {
			rec := targets[url]
			if rec.Metrics.ResponseQuality >= model.LowQualityThreshold {
				t.Errorf("%s returned despite quorum verification and quality %v",
					url, rec.Metrics.ResponseQuality)
			}
		}
	})
}

// TestSyncWorker tests the synchronization handshake.
func TestSyncWorker(t *testing.T) {
	t.Parallel()

	s := testStore(t, []string{"https://a.test"})
	s.RecordDiscovery("w2", &model.TargetRecord{URL: "https://b.test", Metrics: metricsOf(3)})

	bundle := s.SyncWorker("w1", 10)
	if bundle == nil {
		t.Fatal("SyncWorker() returned nil bundle")
	}

	if len(bundle.PrioritizedTargets) != 2 {
		t.Errorf("PrioritizedTargets = %v, want seed plus backlog", bundle.PrioritizedTargets)
	}
	if bundle.Snapshot.TotalTargets != 1 {
		t.Errorf("Snapshot.TotalTargets = %d, want 1", bundle.Snapshot.TotalTargets)
	}

	status := s.WorkerStatuses()["w1"]
	if status.LastSync.IsZero() {
		t.Error("SyncWorker should stamp LastSync")
	}
	if status.State != model.WorkerActive {
		t.Errorf("State = %q, want active", status.State)
	}
	if bundle.Snapshot.ActiveWorkers != 2 {
		t.Errorf("ActiveWorkers = %d, want 2", bundle.Snapshot.ActiveWorkers)
	}
}

// TestFlagInactive tests the maintenance health sweep.
func TestFlagInactive(t *testing.T) {
	t.Parallel()

	s := testStore(t, nil)
	s.SyncWorker("w1", 1)
	s.SyncWorker("w2", 1)

	// Only w2 syncs again after the clock advances.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s.SyncWorker("w2", 1)

	flagged := s.FlagInactive(time.Hour)
	if len(flagged) != 1 || flagged[0] != "w1" {
		t.Errorf("FlagInactive() = %v, want [w1]", flagged)
	}

	statuses := s.WorkerStatuses()
	if statuses["w1"].State != model.WorkerInactive {
		t.Error("w1 should be flagged inactive")
	}
	if statuses["w2"].State != model.WorkerActive {
		t.Error("w2 should stay active")
	}
	if _, ok := statuses["w1"]; !ok {
		t.Error("flagged workers must never be removed")
	}

	// A second sweep with nothing new to flag reports nothing.
	if again := s.FlagInactive(time.Hour); len(again) != 0 {
		t.Errorf("second FlagInactive() = %v, want empty", again)
	}
}
