// Package config provides configuration structures and utilities for AIScout.
// It defines the options controlling fleet size, loop cadence, worker
// failure policy, probe transport, and the on-disk state layout.
package config
