// Package main provides the entry point for the AIScout CLI.
//
// AIScout coordinates a fleet of explorer workers that probe external AI
// chat services, pool their findings in a shared collective memory, and
// render periodic reports.
//
// Usage:
//
//	aiscout run
//	aiscout status
//
// See --help for all available options.
package main

// main is the entry point for AIScout.
func main() {
	Execute()
}
