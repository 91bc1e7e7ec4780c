// Package report builds and renders the periodic operation reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown companions for documentation and sharing
//
// Design decision: We separate report rendering from the data it reports on
// (the collective memory and the history archive) to follow the single
// responsibility principle. The Renderer assembles report documents from
// those sources; writers only format them.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
