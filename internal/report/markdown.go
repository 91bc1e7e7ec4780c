package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/aiscout/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteIndividual outputs one worker's report in Markdown format.
func (w *MarkdownWriter) WriteIndividual(report *IndividualReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Explorer Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Worker", "`" + report.WorkerID + "`"},
			{"Period", report.Period},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"State", string(report.State)},
			{"Targets Explored", strconv.Itoa(report.TargetsExplored)},
			{"Unique Discoveries", strconv.Itoa(report.UniqueDiscoveries)},
			{"Verifications", strconv.Itoa(report.Verifications)},
			{"Discovery Efficiency", fmt.Sprintf("%.1f%%", report.DiscoveryEfficiency)},
		},
	})
	md.PlainText("")

	w.writeTargetTable(md, "Top Discoveries", report.TopDiscoveries)
	w.writeLimitations(md, report.Limitations)

	if len(report.Recommendations) > 0 {
		md.H2("Recommendations")
		md.PlainText("")
		md.BulletList(report.Recommendations...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteCollective outputs the fleet report in Markdown format.
func (w *MarkdownWriter) WriteCollective(report *CollectiveReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Fleet Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Period", report.Period},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Active Workers", strconv.Itoa(report.ActiveWorkers)},
			{"Targets Mapped", strconv.Itoa(report.TotalTargets)},
			{"Probes Archived", strconv.FormatInt(report.TotalProbes, 10)},
			{"New Discoveries", strconv.Itoa(report.NewDiscoveries)},
		},
	})
	md.PlainText("")

	if report.TotalTargets == 0 {
		md.Note("No targets mapped yet. The fleet is still warming up.")
		md.PlainText("")
	}

	w.writeTargetTable(md, "Most Promising Targets", report.TopTargets)
	w.writeLimitationChart(md, report.CommonLimitations)
	w.writeStrategies(md, report.StrategyScores)

	if len(report.RecentDiscoveries) > 0 {
		md.H2("Recent Discoveries")
		md.PlainText("")
		items := make([]string, 0, len(report.RecentDiscoveries))
		for _, event := range report.RecentDiscoveries {
			items = append(items, fmt.Sprintf("`%s` found by %s at %s",
				event.URL, event.WorkerID, event.Timestamp.Format("2006-01-02 15:04")))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeTargetTable writes a section listing targets with their scores.
func (w *MarkdownWriter) writeTargetTable(md *markdown.Markdown, title string, targets []model.TargetRecord) {
	md.H2(title)
	md.PlainText("")

	if len(targets) == 0 {
		md.PlainText("Nothing to report yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		detected := t.DetectedModel
		if detected == "" {
			detected = "-"
		}
		rows = append(rows, []string{
			truncateString(t.URL, 50),
			t.Classification,
			detected,
			fmt.Sprintf("%.1f", t.Metrics.ResponseQuality),
			fmt.Sprintf("%.0f%%", t.Availability*100),
			strconv.Itoa(t.VerificationCount),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Class", "Model", "Quality", "Availability", "Verified"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLimitations writes the per-worker limitation section.
func (w *MarkdownWriter) writeLimitations(md *markdown.Markdown, limitations []model.LimitationRecord) {
	md.H2("Limitations Observed")
	md.PlainText("")

	if len(limitations) == 0 {
		md.PlainText("No limitations observed in this period.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(limitations))
	for _, lim := range limitations {
		rows = append(rows, []string{
			truncateString(lim.URL, 50),
			truncateString(lim.Detail, 60),
			lim.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Detail", "Observed"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLimitationChart writes a mermaid pie chart of limitation categories.
func (w *MarkdownWriter) writeLimitationChart(md *markdown.Markdown, counts map[string]int) {
	md.H2("Limitation Categories")
	md.PlainText("")

	total := 0
	categories := make([]string, 0, len(counts))
	for category, n := range counts {
		total += n
		if n > 0 {
			categories = append(categories, category)
		}
	}
	if total == 0 {
		md.PlainText("No limitations recorded recently.")
		md.PlainText("")
		return
	}
	sort.Strings(categories)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Recent Limitations by Category"),
		piechart.WithShowData(true),
	)
	for _, category := range categories {
		chart.LabelAndIntValue(category, uint64(counts[category]))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeStrategies writes the strategy effectiveness table.
func (w *MarkdownWriter) writeStrategies(md *markdown.Markdown, scores map[string]float64) {
	if len(scores) == 0 {
		return
	}

	md.H2("Strategy Effectiveness")
	md.PlainText("")

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%.2f", scores[name])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Strategy", "Score"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [AIScout](https://github.com/nao1215/aiscout)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
