package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/model"
)

// testRenderer wires a renderer over a seeded store and archive in a
// temporary data directory.
func testRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()

	dataDir := t.TempDir()
	store, err := memory.Open(dataDir, []string{"https://seed.example/one"}, memory.DefaultOptions())
	if err != nil {
		t.Fatalf("memory.Open() error = %v", err)
	}

	rec := &model.TargetRecord{
		URL:            "https://chat.example.ai",
		Name:           "chatgpt",
		Classification: "chatgpt",
		Metrics: model.QualityMetrics{
			ResponseQuality:    8,
			RestrictionLevel:   3,
			LatencyScore:       9,
			AccessibilityScore: 8,
		},
		Availability: 1,
	}
	if _, ok := store.RecordDiscovery("explorer-001", rec); !ok {
		t.Fatal("failed to seed the store")
	}
	if !store.RecordLimitation(model.LimitationRateLimiting, model.LimitationRecord{
		URL:      "https://chat.example.ai",
		WorkerID: "explorer-001",
		Detail:   "429 after three prompts",
	}) {
		t.Fatal("failed to record limitation")
	}

	archive, err := history.Open(dataDir, history.DefaultOptions())
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	result := &model.ProbeResult{
		URL:            "https://chat.example.ai",
		Classification: "chatgpt",
		Metrics:        rec.Metrics,
		Availability:   1,
		ProbedAt:       time.Now(),
	}
	if _, err := archive.InsertProbe(context.Background(), "explorer-001", result); err != nil {
		t.Fatalf("InsertProbe() error = %v", err)
	}

	return NewRenderer(store, archive, NewSink(dataDir), nil), dataDir
}

// TestRenderIndividual tests per-worker report assembly and output files.
func TestRenderIndividual(t *testing.T) {
	t.Parallel()

	t.Run("known worker", func(t *testing.T) {
		t.Parallel()

		r, dataDir := testRenderer(t)
		rep, err := r.RenderIndividual(context.Background(), "explorer-001")
		if err != nil {
			t.Fatalf("RenderIndividual() error = %v", err)
		}

		if rep.WorkerID != "explorer-001" {
			t.Errorf("WorkerID = %q, want explorer-001", rep.WorkerID)
		}
		if rep.TargetsExplored != 1 {
			t.Errorf("TargetsExplored = %d, want 1 archived probe", rep.TargetsExplored)
		}
		if rep.UniqueDiscoveries != 1 {
			t.Errorf("UniqueDiscoveries = %d, want 1", rep.UniqueDiscoveries)
		}
		if len(rep.TopDiscoveries) != 1 {
			t.Errorf("TopDiscoveries = %v, want the seeded target", rep.TopDiscoveries)
		}
		if len(rep.Limitations) != 1 {
			t.Errorf("Limitations = %v, want the filed limitation", rep.Limitations)
		}
		if len(rep.Recommendations) == 0 {
			t.Error("Recommendations empty, want at least the standing hint")
		}

		assertReportPair(t, filepath.Join(dataDir, reportsDirName, individualDirName), "report_explorer-001_")
	})

	t.Run("unknown worker", func(t *testing.T) {
		t.Parallel()

		r, _ := testRenderer(t)
		if _, err := r.RenderIndividual(context.Background(), "explorer-999"); !errors.Is(err, ErrUnknownWorker) {
			t.Errorf("RenderIndividual() error = %v, want ErrUnknownWorker", err)
		}
	})
}

// TestRenderCollective tests fleet report assembly and output files.
func TestRenderCollective(t *testing.T) {
	t.Parallel()

	r, dataDir := testRenderer(t)
	rep, err := r.RenderCollective(context.Background())
	if err != nil {
		t.Fatalf("RenderCollective() error = %v", err)
	}

	if rep.TotalTargets != 1 {
		t.Errorf("TotalTargets = %d, want 1", rep.TotalTargets)
	}
	if rep.TotalProbes != 1 {
		t.Errorf("TotalProbes = %d, want 1", rep.TotalProbes)
	}
	if rep.ActiveWorkers != 1 {
		t.Errorf("ActiveWorkers = %d, want 1", rep.ActiveWorkers)
	}
	if got := rep.CommonLimitations[model.LimitationRateLimiting]; got != 1 {
		t.Errorf("CommonLimitations[rate_limiting] = %d, want 1", got)
	}

	assertReportPair(t, filepath.Join(dataDir, reportsDirName, collectiveDirName), "report_collective_")
}

// TestSinkWriteFinalStats tests the shutdown statistics document.
func TestSinkWriteFinalStats(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	sink := NewSink(dataDir)

	stats := model.NewOperationStats(time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC))
	stats.CyclesExecuted = 10
	stats.EndTime = time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)

	if err := sink.WriteFinalStats(stats); err != nil {
		t.Fatalf("WriteFinalStats() error = %v", err)
	}

	data, err := os.ReadFile(sink.FinalStatsPath())
	if err != nil {
		t.Fatalf("failed to read final stats: %v", err)
	}
	var got model.OperationStats
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("final stats are not valid JSON: %v", err)
	}
	if got.CyclesExecuted != 10 {
		t.Errorf("CyclesExecuted = %d, want 10", got.CyclesExecuted)
	}
	if got.EndTime.IsZero() {
		t.Error("EndTime is zero, want the shutdown timestamp")
	}
}

// assertReportPair checks that one JSON report plus its Markdown companion
// exist under dir with the expected name prefix.
func assertReportPair(t *testing.T, dir, prefix string) {
	t.Helper()

	jsonFiles, err := filepath.Glob(filepath.Join(dir, prefix+"*.json"))
	if err != nil || len(jsonFiles) != 1 {
		t.Fatalf("JSON reports under %s = %v (err %v), want exactly 1", dir, jsonFiles, err)
	}
	mdFiles, err := filepath.Glob(filepath.Join(dir, prefix+"*.md"))
	if err != nil || len(mdFiles) != 1 {
		t.Fatalf("Markdown reports under %s = %v (err %v), want exactly 1", dir, mdFiles, err)
	}
}
