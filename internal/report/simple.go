package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/aiscout/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display, used by the status command
// and for quick inspection of rendered reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteIndividual outputs one worker's report as terminal text.
func (w *SimpleWriter) WriteIndividual(report *IndividualReport) (int, error) {
	var b strings.Builder

	writeRule(&b)
	fmt.Fprintf(&b, "Explorer Report: %s\n", report.WorkerID)
	writeRule(&b)
	fmt.Fprintf(&b, "Period:               %s\n", report.Period)
	fmt.Fprintf(&b, "State:                %s\n", report.State)
	fmt.Fprintf(&b, "Targets explored:     %d\n", report.TargetsExplored)
	fmt.Fprintf(&b, "Unique discoveries:   %d\n", report.UniqueDiscoveries)
	fmt.Fprintf(&b, "Verifications:        %d\n", report.Verifications)
	fmt.Fprintf(&b, "Discovery efficiency: %.1f%%\n", report.DiscoveryEfficiency)

	if len(report.TopDiscoveries) > 0 || w.showEmpty {
		b.WriteString("\nTop discoveries:\n")
		writeTargets(&b, report.TopDiscoveries)
	}
	if len(report.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	writeRule(&b)

	return w.output.Write([]byte(b.String()))
}

// WriteCollective outputs the fleet report as terminal text.
func (w *SimpleWriter) WriteCollective(report *CollectiveReport) (int, error) {
	var b strings.Builder

	writeRule(&b)
	b.WriteString("Fleet Report\n")
	writeRule(&b)
	fmt.Fprintf(&b, "Period:          %s\n", report.Period)
	fmt.Fprintf(&b, "Active workers:  %d\n", report.ActiveWorkers)
	fmt.Fprintf(&b, "Targets mapped:  %d\n", report.TotalTargets)
	fmt.Fprintf(&b, "Probes archived: %d\n", report.TotalProbes)
	fmt.Fprintf(&b, "New discoveries: %d\n", report.NewDiscoveries)

	if len(report.TopTargets) > 0 || w.showEmpty {
		b.WriteString("\nMost promising targets:\n")
		writeTargets(&b, report.TopTargets)
	}

	if len(report.CommonLimitations) > 0 {
		b.WriteString("\nLimitations by category:\n")
		categories := make([]string, 0, len(report.CommonLimitations))
		for category := range report.CommonLimitations {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(&b, "  %-20s %d\n", category, report.CommonLimitations[category])
		}
	}

	if len(report.StrategyScores) > 0 {
		b.WriteString("\nStrategy effectiveness:\n")
		names := make([]string, 0, len(report.StrategyScores))
		for name := range report.StrategyScores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %-24s %.2f\n", name, report.StrategyScores[name])
		}
	}
	writeRule(&b)

	return w.output.Write([]byte(b.String()))
}

// writeTargets writes one line per target with its headline numbers.
func writeTargets(b *strings.Builder, targets []model.TargetRecord) {
	if len(targets) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, t := range targets {
		fmt.Fprintf(b, "  %-50s %-10s quality %.1f  availability %.0f%%\n",
			truncateString(t.URL, 50), t.Classification,
			t.Metrics.ResponseQuality, t.Availability*100)
	}
}

// writeRule writes a horizontal separator line.
func writeRule(b *strings.Builder) {
	b.WriteString(strings.Repeat("=", 72))
	b.WriteByte('\n')
}
