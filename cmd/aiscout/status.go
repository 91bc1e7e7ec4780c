package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/report"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current state of the collective memory",
		Long: `Status reads the collective memory and the probe-history archive from
the data directory and prints a fleet overview without writing any report
files.

Examples:
  # Human-readable overview
  aiscout status

  # JSON output for scripting
  aiscout status --json

  # Inspect a non-default data directory
  aiscout status --data-dir /var/lib/aiscout`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory holding the collective memory and history")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON instead of the human-readable overview")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dataDir, memory.FileName)); err != nil {
		return fmt.Errorf("no collective memory found in %s (run `aiscout run` first)", dataDir)
	}

	// Open read-only views over the stored state. Opening the store with an
	// empty seed list leaves the persisted document untouched.
	store, err := memory.Open(dataDir, nil, memory.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open collective memory: %w", err)
	}

	// The archive is optional for status; probe totals then fall back to
	// verification counts.
	var archive *history.Archive
	opts := history.DefaultOptions()
	opts.CreateIfNotExists = false
	if a, err := history.Open(dataDir, opts); err == nil {
		archive = a
		defer func() { _ = a.Close() }()
	}

	renderer := report.NewRenderer(store, archive, report.NewSink(dataDir), nil)
	rep := renderer.Collective(cmd.Context())

	var w report.Writer
	if asJSON {
		w = report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint())
	} else {
		w = report.NewSimpleWriter(cmd.OutOrStdout())
	}
	if _, err := w.WriteCollective(rep); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}
