package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/model"
)

// Report directory layout under the data directory.
const (
	// reportsDirName is the root of all rendered reports.
	reportsDirName = "reports"

	// individualDirName holds per-worker reports.
	individualDirName = "individual"

	// collectiveDirName holds fleet-wide reports.
	collectiveDirName = "collective"

	// finalStatsFileName is the shutdown statistics document.
	finalStatsFileName = "final_operation_stats.json"

	// fileTimestampLayout makes report filenames sort chronologically.
	fileTimestampLayout = "20060102_150405"
)

// ErrUnknownWorker is returned when an individual report is requested for
// a worker the collective memory has never seen.
var ErrUnknownWorker = errors.New("worker unknown to the collective memory")

// Renderer assembles report documents from the collective memory and the
// history archive and hands them to the sink.
type Renderer struct {
	store   *memory.Store
	archive *history.Archive
	sink    *Sink
	window  time.Duration
	logger  *slog.Logger

	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewRenderer creates a renderer over the given sources. The archive may be
// nil; probe totals then fall back to verification counts.
func NewRenderer(store *memory.Store, archive *history.Archive, sink *Sink, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		store:   store,
		archive: archive,
		sink:    sink,
		window:  memory.DefaultRecencyWindow,
		logger:  logger,
		now:     time.Now,
	}
}

// RenderIndividual builds one worker's report and writes the JSON document
// plus its Markdown companion.
func (r *Renderer) RenderIndividual(ctx context.Context, workerID string) (*IndividualReport, error) {
	rep, err := r.Individual(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if err := r.sink.WriteIndividual(rep, rep.GeneratedAt); err != nil {
		return nil, fmt.Errorf("failed to write individual report: %w", err)
	}
	r.logger.Info("individual report rendered", "worker_id", workerID)
	return rep, nil
}

// Individual assembles one worker's report without writing it. The status
// command uses this for display-only views.
func (r *Renderer) Individual(ctx context.Context, workerID string) (*IndividualReport, error) {
	statuses := r.store.WorkerStatuses()
	status, known := statuses[workerID]
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorker, workerID)
	}

	explored := status.Verifications
	if r.archive != nil {
		counts, err := r.archive.ProbeCountByWorker(ctx)
		if err != nil {
			r.logger.Warn("failed to count archived probes", "error", err)
		} else {
			explored = int(counts[workerID])
		}
	}

	discovered := make([]model.TargetRecord, 0)
	for _, rec := range r.store.Targets() {
		if rec.DiscoveredBy == workerID {
			discovered = append(discovered, rec)
		}
	}

	limitations := make([]model.LimitationRecord, 0)
	for _, records := range r.store.Snapshot().RecentLimitations {
		for _, lim := range records {
			if lim.WorkerID == workerID {
				limitations = append(limitations, lim)
			}
		}
	}

	efficiency := 0.0
	if explored > 0 {
		efficiency = float64(status.TargetsDiscovered) / float64(explored) * 100
	}

	now := r.now()
	return &IndividualReport{
		WorkerID:            workerID,
		Period:              periodLabel(now, r.window),
		GeneratedAt:         now,
		State:               status.State,
		TargetsExplored:     explored,
		UniqueDiscoveries:   status.TargetsDiscovered,
		Verifications:       status.Verifications,
		DiscoveryEfficiency: efficiency,
		TopDiscoveries:      topByQuality(discovered, topDiscoveries),
		Limitations:         limitations,
		Recommendations:     recommendations(explored, len(limitations), efficiency),
	}, nil
}

// RenderCollective builds the fleet-wide report and writes the JSON
// document plus its Markdown companion.
func (r *Renderer) RenderCollective(ctx context.Context) (*CollectiveReport, error) {
	rep := r.Collective(ctx)
	if err := r.sink.WriteCollective(rep, rep.GeneratedAt); err != nil {
		return nil, fmt.Errorf("failed to write collective report: %w", err)
	}
	r.logger.Info("collective report rendered",
		"targets", rep.TotalTargets, "workers", rep.ActiveWorkers)
	return rep, nil
}

// Collective assembles the fleet-wide report without writing it.
func (r *Renderer) Collective(ctx context.Context) *CollectiveReport {
	snapshot := r.store.Snapshot()

	var totalProbes int64
	if r.archive != nil {
		count, err := r.archive.ProbeCount(ctx)
		if err != nil {
			r.logger.Warn("failed to count archived probes", "error", err)
		} else {
			totalProbes = count
		}
	}

	common := make(map[string]int, len(snapshot.RecentLimitations))
	for category, records := range snapshot.RecentLimitations {
		common[category] = len(records)
	}

	now := r.now()
	return &CollectiveReport{
		Period:            periodLabel(now, r.window),
		GeneratedAt:       now,
		ActiveWorkers:     snapshot.ActiveWorkers,
		TotalTargets:      snapshot.TotalTargets,
		TotalProbes:       totalProbes,
		NewDiscoveries:    len(snapshot.RecentDiscoveries),
		TopTargets:        topByQuality(r.store.Targets(), topTargets),
		CommonLimitations: common,
		StrategyScores:    snapshot.StrategyScores,
		RecentDiscoveries: snapshot.RecentDiscoveries,
	}
}

// Sink owns the report directory layout and filename convention. Filenames
// embed a sortable timestamp so operators can list reports chronologically.
type Sink struct {
	baseDir string
}

// NewSink creates a sink rooted at the data directory.
func NewSink(dataDir string) *Sink {
	return &Sink{baseDir: filepath.Join(dataDir, reportsDirName)}
}

// WriteIndividual writes a worker report pair (JSON plus Markdown).
func (s *Sink) WriteIndividual(rep *IndividualReport, now time.Time) error {
	stem := fmt.Sprintf("report_%s_%s", rep.WorkerID, now.Format(fileTimestampLayout))
	return s.writePair(individualDirName, stem, func(w Writer) error {
		_, err := w.WriteIndividual(rep)
		return err
	})
}

// WriteCollective writes the fleet report pair (JSON plus Markdown).
func (s *Sink) WriteCollective(rep *CollectiveReport, now time.Time) error {
	stem := fmt.Sprintf("report_collective_%s", now.Format(fileTimestampLayout))
	return s.writePair(collectiveDirName, stem, func(w Writer) error {
		_, err := w.WriteCollective(rep)
		return err
	})
}

// WriteFinalStats writes the shutdown statistics document. It overwrites
// any previous run's document; there is exactly one per data directory.
func (s *Sink) WriteFinalStats(stats *model.OperationStats) error {
	if err := os.MkdirAll(s.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(s.baseDir, finalStatsFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create final stats file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := NewJSONWriter(f, WithPrettyPrint()).writeJSON(stats); err != nil {
		return fmt.Errorf("failed to write final stats: %w", err)
	}
	return nil
}

// FinalStatsPath returns where the shutdown statistics document lives.
func (s *Sink) FinalStatsPath() string {
	return filepath.Join(s.baseDir, finalStatsFileName)
}

// writePair writes the JSON document and its Markdown companion under the
// given category directory.
func (s *Sink) writePair(category, stem string, write func(Writer) error) error {
	dir := filepath.Join(s.baseDir, category)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	jsonFile, err := os.Create(filepath.Join(dir, stem+".json"))
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = jsonFile.Close() }()
	if err := write(NewJSONWriter(jsonFile, WithPrettyPrint())); err != nil {
		return err
	}

	mdFile, err := os.Create(filepath.Join(dir, stem+".md"))
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = mdFile.Close() }()
	return write(NewMarkdownWriter(mdFile))
}
