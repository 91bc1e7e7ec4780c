// Package main provides the entry point for the AIScout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for AIScout.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aiscout",
		Short: "Fleet coordinator for mapping AI chat services",
		Long: `AIScout runs a fleet of explorer workers that probe AI chat services,
pool their findings in a shared collective memory, and render reports.

Each worker pulls prioritized targets from the collective memory, probes
them with a fixed prompt battery, and records quality metrics and detected
limitations. The coordinator supervises synchronization, reporting, and
maintenance loops on top of the fleet.

By default probe traffic goes out directly. Use --use-tor to route it
through Tor, either via an embedded daemon or an external SOCKS proxy.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
