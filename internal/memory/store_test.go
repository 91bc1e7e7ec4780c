package memory

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/aiscout/internal/model"
)

// floatTolerance is the comparison tolerance for merged metric values.
const floatTolerance = 1e-9

// testStore opens a store in a temp dir with the given seeds.
func testStore(t *testing.T, seeds []string) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), seeds, DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

// metricsOf builds uniform quality metrics.
func metricsOf(v float64) model.QualityMetrics {
	return model.QualityMetrics{
		ResponseQuality:    v,
		RestrictionLevel:   v,
		LatencyScore:       v,
		AccessibilityScore: v,
	}
}

// TestOpen tests store creation and fail-open loading.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("fresh store has default limitation categories", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, []string{"https://a.test"})
		limitations := s.Limitations()
		for _, category := range model.DefaultLimitationCategories() {
			if _, ok := limitations[category]; !ok {
				t.Errorf("missing default category %q", category)
			}
		}

		snap := s.Snapshot()
		if snap.TotalTargets != 0 {
			t.Errorf("TotalTargets = %d, want 0", snap.TotalTargets)
		}
		if len(snap.SeedTargets) != 1 {
			t.Errorf("SeedTargets = %v, want 1 seed", snap.SeedTargets)
		}
	})

	t.Run("corrupt file falls back to empty store", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600); err != nil {
			t.Fatalf("failed to plant corrupt file: %v", err)
		}

		s, err := Open(dir, []string{"https://a.test"}, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if s.Snapshot().TotalTargets != 0 {
			t.Error("corrupt file should yield an empty store")
		}
	})

	t.Run("reopen sees persisted state", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, []string{"https://a.test"}, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, ok := s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(5)}); !ok {
			t.Fatal("RecordDiscovery() failed to persist")
		}

		reopened, err := Open(dir, nil, DefaultOptions())
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		if reopened.Snapshot().TotalTargets != 1 {
			t.Error("reopened store should contain the recorded target")
		}
		if len(reopened.Snapshot().SeedTargets) != 1 {
			t.Error("seed list should survive reopen when none is supplied")
		}
	})
}

// TestRecordDiscovery covers the insert-then-merge lifecycle.
func TestRecordDiscovery(t *testing.T) {
	t.Parallel()

	t.Run("two workers observing one target", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)

		isNew, ok := s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(5)})
		if !ok || !isNew {
			t.Fatalf("first RecordDiscovery() = (%v, %v), want (true, true)", isNew, ok)
		}

		isNew, ok = s.RecordDiscovery("w2", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(8)})
		if !ok || isNew {
			t.Fatalf("second RecordDiscovery() = (%v, %v), want (false, true)", isNew, ok)
		}

		targets := s.Targets()
		if len(targets) != 1 {
			t.Fatalf("len(Targets()) = %d, want 1", len(targets))
		}
		rec := targets[0]

		wantMetric := 5*0.7 + 8*0.3
		if math.Abs(rec.Metrics.ResponseQuality-wantMetric) > floatTolerance {
			t.Errorf("merged ResponseQuality = %v, want %v", rec.Metrics.ResponseQuality, wantMetric)
		}
		if rec.VerificationCount != 2 {
			t.Errorf("VerificationCount = %d, want 2", rec.VerificationCount)
		}
		if len(rec.VerifiedBy) != 2 || !rec.HasVerifier("w1") || !rec.HasVerifier("w2") {
			t.Errorf("VerifiedBy = %v, want {w1, w2}", rec.VerifiedBy)
		}
		if rec.DiscoveredBy != "w1" {
			t.Errorf("DiscoveredBy = %q, want w1", rec.DiscoveredBy)
		}
	})

	t.Run("repeat verification by same worker keeps verifier set", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(5)})
		s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(6)})

		rec := s.Targets()[0]
		if len(rec.VerifiedBy) != 1 {
			t.Errorf("VerifiedBy = %v, want single w1 entry", rec.VerifiedBy)
		}
		if rec.VerificationCount != 2 {
			t.Errorf("VerificationCount = %d, want 2", rec.VerificationCount)
		}
	})

	t.Run("invalid record is rejected", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		if _, ok := s.RecordDiscovery("w1", &model.TargetRecord{URL: "", Metrics: metricsOf(5)}); ok {
			t.Error("record without URL should be rejected")
		}
		if _, ok := s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(11)}); ok {
			t.Error("record with out-of-range metrics should be rejected")
		}
		if s.Snapshot().TotalTargets != 0 {
			t.Error("rejected records must not enter the store")
		}
	})

	t.Run("new discovery updates worker status and ring", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(5)})

		status := s.WorkerStatuses()["w1"]
		if status.TargetsDiscovered != 1 || status.Verifications != 1 {
			t.Errorf("status = %+v, want 1 discovery and 1 verification", status)
		}
		if status.State != model.WorkerActive {
			t.Errorf("State = %q, want active", status.State)
		}

		snap := s.Snapshot()
		if len(snap.RecentDiscoveries) != 1 || snap.RecentDiscoveries[0].URL != "https://a.test" {
			t.Errorf("RecentDiscoveries = %v, want the new target", snap.RecentDiscoveries)
		}
	})

	t.Run("write failure reports false but keeps memory state", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		s.path = filepath.Join(t.TempDir(), "absent", "memory.json")

		if _, ok := s.RecordDiscovery("w1", &model.TargetRecord{URL: "https://a.test", Metrics: metricsOf(5)}); ok {
			t.Error("persist into a missing directory should report failure")
		}
		if s.Snapshot().TotalTargets != 1 {
			t.Error("in-memory state should survive a failed persist")
		}
	})
}

// TestRecentDiscoveriesRing tests the ring cap.
func TestRecentDiscoveriesRing(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.RecentCap = 3
	s, err := Open(t.TempDir(), nil, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	urls := []string{"https://a.test", "https://b.test", "https://c.test", "https://d.test", "https://e.test"}
	for _, u := range urls {
		s.RecordDiscovery("w1", &model.TargetRecord{URL: u, Metrics: metricsOf(5)})
	}

	recent := s.Snapshot().RecentDiscoveries
	if len(recent) != 3 {
		t.Fatalf("len(RecentDiscoveries) = %d, want 3", len(recent))
	}
	if recent[0].URL != "https://c.test" || recent[2].URL != "https://e.test" {
		t.Errorf("ring should keep the newest entries, got %v", recent)
	}
}

// TestRecordLimitation tests append-only limitation tracking.
func TestRecordLimitation(t *testing.T) {
	t.Parallel()

	t.Run("appends and stamps missing timestamps", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		if !s.RecordLimitation(model.LimitationRateLimiting, model.LimitationRecord{
			URL:      "https://a.test",
			WorkerID: "w1",
			Detail:   "429 after 3 requests",
		}) {
			t.Fatal("RecordLimitation() failed")
		}

		records := s.Limitations()[model.LimitationRateLimiting]
		if len(records) != 1 {
			t.Fatalf("len(records) = %d, want 1", len(records))
		}
		if records[0].Timestamp.IsZero() {
			t.Error("zero timestamp should be stamped")
		}
	})

	t.Run("unknown category is created", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		s.RecordLimitation("captcha_wall", model.LimitationRecord{URL: "https://a.test", WorkerID: "w1"})
		if len(s.Limitations()["captcha_wall"]) != 1 {
			t.Error("unknown category should be created on first use")
		}
	})

	t.Run("snapshot filters to recent window", func(t *testing.T) {
		t.Parallel()

		s := testStore(t, nil)
		old := time.Now().Add(-48 * time.Hour)
		s.RecordLimitation(model.LimitationAuthRequired, model.LimitationRecord{
			URL: "https://old.test", WorkerID: "w1", Timestamp: old,
		})
		s.RecordLimitation(model.LimitationAuthRequired, model.LimitationRecord{
			URL: "https://new.test", WorkerID: "w1",
		})

		recent := s.Snapshot().RecentLimitations[model.LimitationAuthRequired]
		if len(recent) != 1 || recent[0].URL != "https://new.test" {
			t.Errorf("recent limitations = %v, want only the fresh record", recent)
		}
	})
}
