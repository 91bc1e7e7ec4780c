package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The intervals mirror the cadence the fleet was tuned for in production:
// frequent synchronization, hourly reports, daily maintenance.
const (
	// DefaultMaxWorkers is the number of concurrent explorer workers.
	// Three workers keep steady coverage of the seed list without
	// hammering any single endpoint.
	DefaultMaxWorkers = 3

	// DefaultSyncInterval is how often the synchronization loop refreshes
	// worker liveness and priority data in the collective memory.
	DefaultSyncInterval = 5 * time.Minute

	// DefaultReportInterval is how often the reporting loop renders one
	// collective report plus one report per active worker.
	DefaultReportInterval = time.Hour

	// DefaultMaintenanceInterval is how often log pruning, history
	// compaction, and the worker health sweep run.
	DefaultMaintenanceInterval = 24 * time.Hour

	// DefaultCyclePause is the pause between successful worker cycles.
	// This bounds the load on probed endpoints regardless of error state.
	DefaultCyclePause = 60 * time.Second

	// DefaultBackoffUnit is multiplied by the consecutive-failure count to
	// produce the linear backoff after a failed worker iteration.
	DefaultBackoffUnit = 60 * time.Second

	// DefaultMaxConsecutiveFailures is the failure budget before a worker
	// is quarantined and its session discarded.
	DefaultMaxConsecutiveFailures = 3

	// DefaultQuarantineDuration is how long a quarantined worker sleeps
	// before resuming as a fresh idle worker.
	DefaultQuarantineDuration = 5 * time.Minute

	// DefaultTargetsPerCycle caps how many prioritized targets a worker
	// pulls from the collective memory per cycle.
	DefaultTargetsPerCycle = 10

	// DefaultBaseTargets is how many seed-list entries a worker falls back
	// to when the store returns no prioritized targets.
	DefaultBaseTargets = 5

	// DefaultProbeTimeout is the per-request timeout for probe traffic.
	DefaultProbeTimeout = 30 * time.Second

	// DefaultUserAgent identifies AIScout in HTTP requests.
	DefaultUserAgent = "AIScout/1.0 (+https://github.com/nao1215/aiscout)"

	// DefaultMaxBodySize limits the response body size read per probe.
	// 5MB covers chat landing pages while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultLogRetention is how long worker log artifacts are kept before
	// the maintenance loop prunes them.
	DefaultLogRetention = 30 * 24 * time.Hour

	// DefaultHistoryCompactThreshold is the probe-history row count above
	// which the maintenance loop triggers compaction.
	DefaultHistoryCompactThreshold = 1000

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap when anonymous probing is enabled.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "aiscout"
)

// DefaultSeedTargets returns the operator-supplied high-priority endpoints a
// fresh deployment starts with. The list is replaced, not extended, by the
// seeds section of the configuration file.
func DefaultSeedTargets() []string {
	return []string{
		"https://chat.openai.com",
		"https://claude.ai",
		"https://gemini.google.com",
		"https://poe.com",
		"https://character.ai",
		"https://you.com",
		"https://www.perplexity.ai",
		"https://huggingface.co/chat",
		"http://localhost:11434", // Ollama local
		"http://localhost:7860",  // common Gradio port
	}
}

// DefaultDiscoveryDomains returns the domains auto-discovery derives new
// candidates from. Only the first two are queried per cycle to bound load.
func DefaultDiscoveryDomains() []string {
	return []string{
		"huggingface.co",
		"replicate.com",
		"runpod.io",
		"colab.research.google.com",
		"github.io",
		"vercel.app",
		"netlify.app",
	}
}

// Config holds all configuration options for AIScout.
// It is populated from CLI flags plus the optional .aiscout file and passed
// through the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., WorkerConfig, LoopConfig) for simplicity. The number of options is
// manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// MaxWorkers is the number of concurrent explorer worker identities.
	MaxWorkers int

	// SyncInterval is the cadence of the synchronization loop.
	SyncInterval time.Duration

	// ReportInterval is the cadence of the reporting loop.
	ReportInterval time.Duration

	// MaintenanceInterval is the cadence of the maintenance loop.
	MaintenanceInterval time.Duration

	// CyclePause is the pause between successful worker cycles.
	CyclePause time.Duration

	// BackoffUnit is the linear backoff unit after a failed iteration.
	// The actual backoff is BackoffUnit multiplied by the consecutive
	// failure count.
	BackoffUnit time.Duration

	// MaxConsecutiveFailures is the failure budget before quarantine.
	MaxConsecutiveFailures int

	// QuarantineDuration is how long a quarantined worker cools down.
	QuarantineDuration time.Duration

	// AutoDiscovery enables deriving new candidate targets from the
	// discovery domains each cycle.
	AutoDiscovery bool

	// TargetsPerCycle caps prioritized targets pulled per worker cycle.
	TargetsPerCycle int

	// ProbeTimeout is the per-request timeout for probe traffic.
	ProbeTimeout time.Duration

	// SeedTargets is the operator-supplied priority target list.
	SeedTargets []string

	// DiscoveryDomains seeds the auto-discovery candidate search.
	DiscoveryDomains []string

	// UserAgent is the User-Agent header sent with probe requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// DataDir is the directory holding the collective memory document,
	// per-worker history, the probe-history archive, and reports.
	// Defaults to the XDG data directory.
	DataDir string

	// LogDir is the directory holding per-worker log artifacts subject to
	// maintenance pruning. Defaults to the XDG state directory.
	LogDir string

	// LogRetention is how long log artifacts are kept.
	LogRetention time.Duration

	// HistoryCompactThreshold is the archive row count that triggers
	// compaction during maintenance.
	HistoryCompactThreshold int

	// UseTor routes probe traffic through a Tor SOCKS proxy.
	UseTor bool

	// SocksProxyAddress is an external SOCKS5 proxy in "host:port" format.
	// When empty and UseTor is set, an embedded Tor daemon is started.
	SocksProxyAddress string

	// TorStartupTimeout bounds embedded Tor bootstrap time.
	TorStartupTimeout time.Duration

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .aiscout in the current directory and then in the
	// user's home directory.
	ConfigFilePath string

	// TargetConfigs holds per-target overrides loaded from the config file.
	TargetConfigs *File

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most
// deployments. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because almost every default is non-zero (intervals, budgets,
// seed lists). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxWorkers:              DefaultMaxWorkers,
		SyncInterval:            DefaultSyncInterval,
		ReportInterval:          DefaultReportInterval,
		MaintenanceInterval:     DefaultMaintenanceInterval,
		CyclePause:              DefaultCyclePause,
		BackoffUnit:             DefaultBackoffUnit,
		MaxConsecutiveFailures:  DefaultMaxConsecutiveFailures,
		QuarantineDuration:      DefaultQuarantineDuration,
		AutoDiscovery:           true,
		TargetsPerCycle:         DefaultTargetsPerCycle,
		ProbeTimeout:            DefaultProbeTimeout,
		SeedTargets:             DefaultSeedTargets(),
		DiscoveryDomains:        DefaultDiscoveryDomains(),
		UserAgent:               DefaultUserAgent,
		MaxBodySize:             DefaultMaxBodySize,
		DataDir:                 XDGDataDir(),
		LogDir:                  XDGStateDir(),
		LogRetention:            DefaultLogRetention,
		HistoryCompactThreshold: DefaultHistoryCompactThreshold,
		TorStartupTimeout:       DefaultTorStartupTimeout,
	}
}

// XDGDataDir returns the XDG data directory for AIScout.
// On Linux: ~/.local/share/aiscout
// On macOS: ~/Library/Application Support/aiscout
// On Windows: %LOCALAPPDATA%\aiscout
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGStateDir returns the XDG state directory for AIScout's log artifacts.
// On Linux: ~/.local/state/aiscout
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// XDGConfigDir returns the XDG config directory for AIScout.
// On Linux: ~/.config/aiscout
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the coordinator starts.
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return ErrInvalidMaxWorkers
	}
	if c.SyncInterval <= 0 || c.ReportInterval <= 0 || c.MaintenanceInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.CyclePause < 0 {
		return ErrInvalidCyclePause
	}
	if c.MaxConsecutiveFailures <= 0 {
		return ErrInvalidFailureBudget
	}
	if c.QuarantineDuration <= 0 {
		return ErrInvalidQuarantine
	}
	if c.TargetsPerCycle <= 0 {
		return ErrInvalidTargetLimit
	}
	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if len(c.SeedTargets) == 0 {
		return ErrNoSeedTargets
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
