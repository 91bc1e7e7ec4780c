package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/nao1215/aiscout/internal/model"
)

// testArchive opens an archive in a temp dir and registers cleanup.
func testArchive(t *testing.T) *Archive {
	t.Helper()

	a, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return a
}

// probeResult builds a minimal probe result for archiving.
func probeResult(url string, quality float64) *model.ProbeResult {
	return &model.ProbeResult{
		URL:            url,
		Classification: "generic",
		DetectedModel:  "gpt-4",
		Metrics: model.QualityMetrics{
			ResponseQuality:    quality,
			RestrictionLevel:   3,
			LatencyScore:       7,
			AccessibilityScore: 8,
		},
		Availability: 0.8,
	}
}

// TestOpen tests archive creation modes.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates archive with default options", func(t *testing.T) {
		t.Parallel()

		a := testArchive(t)
		count, err := a.ProbeCount(context.Background())
		if err != nil {
			t.Fatalf("ProbeCount() error = %v", err)
		}
		if count != 0 {
			t.Errorf("ProbeCount() = %d, want 0", count)
		}
	})

	t.Run("refuses missing archive without create option", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("Open() should fail when the archive does not exist")
		}
	})
}

// TestInsertProbe tests archiving and retrieval of probe observations.
func TestInsertProbe(t *testing.T) {
	t.Parallel()

	a := testArchive(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := a.InsertProbe(ctx, "explorer-001", probeResult(fmt.Sprintf("https://t%d.test", i), 6)); err != nil {
			t.Fatalf("InsertProbe() error = %v", err)
		}
	}
	if _, err := a.InsertProbe(ctx, "explorer-002", probeResult("https://other.test", 4)); err != nil {
		t.Fatalf("InsertProbe() error = %v", err)
	}

	count, err := a.ProbeCount(ctx)
	if err != nil {
		t.Fatalf("ProbeCount() error = %v", err)
	}
	if count != 4 {
		t.Errorf("ProbeCount() = %d, want 4", count)
	}

	byWorker, err := a.ProbeCountByWorker(ctx)
	if err != nil {
		t.Fatalf("ProbeCountByWorker() error = %v", err)
	}
	if byWorker["explorer-001"] != 3 || byWorker["explorer-002"] != 1 {
		t.Errorf("ProbeCountByWorker() = %v, want 3 and 1", byWorker)
	}
}

// TestRecentProbes tests ordering and filtering.
func TestRecentProbes(t *testing.T) {
	t.Parallel()

	a := testArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := a.InsertProbe(ctx, "explorer-001", probeResult(fmt.Sprintf("https://t%d.test", i), 6)); err != nil {
			t.Fatalf("InsertProbe() error = %v", err)
		}
	}
	if _, err := a.InsertProbe(ctx, "explorer-002", probeResult("https://other.test", 4)); err != nil {
		t.Fatalf("InsertProbe() error = %v", err)
	}

	t.Run("per-worker filter with newest first", func(t *testing.T) {
		t.Parallel()

		entries, err := a.RecentProbes(ctx, "explorer-001", 2)
		if err != nil {
			t.Fatalf("RecentProbes() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("len(entries) = %d, want 2", len(entries))
		}
		if entries[0].URL != "https://t4.test" {
			t.Errorf("newest entry = %q, want https://t4.test", entries[0].URL)
		}
		if entries[0].WorkerID != "explorer-001" {
			t.Errorf("WorkerID = %q, want explorer-001", entries[0].WorkerID)
		}
		if entries[0].Metrics.ResponseQuality != 6 {
			t.Errorf("ResponseQuality = %v, want 6", entries[0].Metrics.ResponseQuality)
		}
	})

	t.Run("empty worker returns fleet-wide probes", func(t *testing.T) {
		t.Parallel()

		entries, err := a.RecentProbes(ctx, "", 10)
		if err != nil {
			t.Fatalf("RecentProbes() error = %v", err)
		}
		if len(entries) != 6 {
			t.Errorf("len(entries) = %d, want 6", len(entries))
		}
	})
}

// TestInsertCycleSummary tests cycle archiving.
func TestInsertCycleSummary(t *testing.T) {
	t.Parallel()

	a := testArchive(t)
	ctx := context.Background()

	sum := &CycleSummary{
		WorkerID:      "explorer-001",
		Cycle:         7,
		TargetsProbed: 10,
		Discoveries:   2,
		Failures:      1,
	}
	if err := a.InsertCycleSummary(ctx, sum); err != nil {
		t.Fatalf("InsertCycleSummary() error = %v", err)
	}
}

// TestCompact tests threshold-based compaction.
func TestCompact(t *testing.T) {
	t.Parallel()

	a := testArchive(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := a.InsertProbe(ctx, "explorer-001", probeResult(fmt.Sprintf("https://t%d.test", i), 5)); err != nil {
			t.Fatalf("InsertProbe() error = %v", err)
		}
	}

	removed, err := a.Compact(ctx, 4)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if removed != 6 {
		t.Errorf("Compact() removed = %d, want 6", removed)
	}

	entries, err := a.RecentProbes(ctx, "", 100)
	if err != nil {
		t.Fatalf("RecentProbes() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4 after compaction", len(entries))
	}
	if entries[0].URL != "https://t9.test" {
		t.Errorf("compaction should keep the newest rows, newest = %q", entries[0].URL)
	}

	t.Run("nothing to remove", func(t *testing.T) {
		removed, err := a.Compact(ctx, 100)
		if err != nil {
			t.Fatalf("Compact() error = %v", err)
		}
		if removed != 0 {
			t.Errorf("Compact() removed = %d, want 0", removed)
		}
	})
}
