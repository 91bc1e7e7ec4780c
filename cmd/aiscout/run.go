package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/aiscout/internal/anonet"
	"github.com/nao1215/aiscout/internal/config"
	"github.com/nao1215/aiscout/internal/coordinator"
	"github.com/nao1215/aiscout/internal/history"
	"github.com/nao1215/aiscout/internal/log"
	"github.com/nao1215/aiscout/internal/memory"
	"github.com/nao1215/aiscout/internal/prober"
	"github.com/nao1215/aiscout/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [seed-url...]",
		Short: "Run the explorer fleet until interrupted",
		Long: `Run starts the explorer worker fleet plus the synchronization,
reporting, and maintenance loops, and blocks until interrupted.

Positional arguments replace the built-in seed target list. State lives
under the data directory: the collective memory document, per-worker
history, the probe-history archive, and rendered reports.

Examples:
  # Run with the built-in seed list
  aiscout run

  # Run against specific endpoints with a larger fleet
  aiscout run --workers 5 https://chat.example.ai https://other.example

  # Route probe traffic through an external Tor proxy
  aiscout run --use-tor --socks-proxy 127.0.0.1:9150

  # Use a custom configuration file
  aiscout run -c myconfig.yaml

Configuration file (.aiscout) example:
  seeds:
    - https://chat.example.ai
  discoveryDomains:
    - example.ai
  targets:
    https://chat.example.ai:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	// Fleet sizing and cadence flags
	cmd.Flags().IntP("workers", "w", config.DefaultMaxWorkers,
		"Number of concurrent explorer workers")
	cmd.Flags().Duration("sync-interval", config.DefaultSyncInterval,
		"Cadence of the synchronization loop")
	cmd.Flags().Duration("report-interval", config.DefaultReportInterval,
		"Cadence of the reporting loop")
	cmd.Flags().Duration("maintenance-interval", config.DefaultMaintenanceInterval,
		"Cadence of the maintenance loop")

	// Worker behavior flags
	cmd.Flags().Duration("cycle-pause", config.DefaultCyclePause,
		"Pause between successful worker cycles")
	cmd.Flags().Int("max-failures", config.DefaultMaxConsecutiveFailures,
		"Consecutive failures before a worker is quarantined")
	cmd.Flags().Duration("quarantine", config.DefaultQuarantineDuration,
		"How long a quarantined worker cools down")
	cmd.Flags().Int("targets-per-cycle", config.DefaultTargetsPerCycle,
		"Maximum prioritized targets pulled per worker cycle")
	cmd.Flags().DurationP("timeout", "t", config.DefaultProbeTimeout,
		"Connection timeout for each probe request")
	cmd.Flags().Bool("no-discovery", false,
		"Disable deriving new candidate targets from discovery domains")

	// Storage flags
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory for the collective memory, history, and reports")
	cmd.Flags().String("log-dir", config.XDGStateDir(),
		"Directory for per-worker log files")

	// Tor connection flags
	cmd.Flags().Bool("use-tor", false,
		"Route probe traffic through Tor")
	cmd.Flags().StringP("socks-proxy", "e", "",
		"External SOCKS5 proxy address (e.g., 127.0.0.1:9150); implies --use-tor")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .aiscout in current or home directory)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with sensitive-value masking
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runOperation(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.MaxWorkers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.SyncInterval, err = cmd.Flags().GetDuration("sync-interval")
	if err != nil {
		return nil, err
	}

	cfg.ReportInterval, err = cmd.Flags().GetDuration("report-interval")
	if err != nil {
		return nil, err
	}

	cfg.MaintenanceInterval, err = cmd.Flags().GetDuration("maintenance-interval")
	if err != nil {
		return nil, err
	}

	cfg.CyclePause, err = cmd.Flags().GetDuration("cycle-pause")
	if err != nil {
		return nil, err
	}

	cfg.MaxConsecutiveFailures, err = cmd.Flags().GetInt("max-failures")
	if err != nil {
		return nil, err
	}

	cfg.QuarantineDuration, err = cmd.Flags().GetDuration("quarantine")
	if err != nil {
		return nil, err
	}

	cfg.TargetsPerCycle, err = cmd.Flags().GetInt("targets-per-cycle")
	if err != nil {
		return nil, err
	}

	cfg.ProbeTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	noDiscovery, err := cmd.Flags().GetBool("no-discovery")
	if err != nil {
		return nil, err
	}
	cfg.AutoDiscovery = !noDiscovery

	cfg.DataDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	cfg.LogDir, err = cmd.Flags().GetString("log-dir")
	if err != nil {
		return nil, err
	}

	cfg.UseTor, err = cmd.Flags().GetBool("use-tor")
	if err != nil {
		return nil, err
	}

	cfg.SocksProxyAddress, err = cmd.Flags().GetString("socks-proxy")
	if err != nil {
		return nil, err
	}
	if cfg.SocksProxyAddress != "" {
		cfg.UseTor = true
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load seed lists and target overrides from the config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(cf)
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	// Positional arguments replace the seed list entirely.
	if len(args) > 0 {
		cfg.SeedTargets = args
	}

	return cfg, nil
}

// runOperation wires storage, transport, and the coordinator, then runs the
// fleet until the context is cancelled.
func runOperation(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting operation",
		"workers", cfg.MaxWorkers,
		"seeds", len(cfg.SeedTargets),
		"dataDir", cfg.DataDir,
		"useTor", cfg.UseTor,
	)

	// Open the collective memory document
	storeOpts := memory.DefaultOptions()
	storeOpts.Logger = logger
	store, err := memory.Open(cfg.DataDir, cfg.SeedTargets, storeOpts)
	if err != nil {
		return fmt.Errorf("failed to open collective memory: %w", err)
	}

	// Open the probe-history archive
	archive, err := history.Open(cfg.DataDir, history.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history archive: %w", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Error("failed to close history archive", "error", err)
		}
	}()

	// Build the HTTP client, optionally routed through Tor
	httpClient, cleanup, err := buildHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	p := prober.NewHTTPProber(httpClient, prober.Options{
		UserAgent:     cfg.UserAgent,
		MaxBodySize:   cfg.MaxBodySize,
		TargetConfigs: cfg.TargetConfigs,
		Logger:        logger,
	})

	sink := report.NewSink(cfg.DataDir)
	c, err := coordinator.New(coordinator.Params{
		Store:    store,
		Archive:  archive,
		Prober:   p,
		Renderer: report.NewRenderer(store, archive, sink, logger),
		Sink:     sink,
		Config:   cfg,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	fmt.Printf("AIScout running with %d workers. Press Ctrl+C to stop.\n", cfg.MaxWorkers)
	if err := c.Run(ctx); err != nil {
		return err
	}

	stats := c.Stats()
	fmt.Printf("\nOperation finished: %d cycles, %d discoveries, %d errors.\n",
		stats.CyclesExecuted, stats.TargetsDiscovered, stats.ErrorsEncountered)
	fmt.Printf("Final statistics: %s\n", sink.FinalStatsPath())
	return nil
}

// buildHTTPClient returns the probe transport and a cleanup function.
// Without Tor the transport is a plain client bounded by the probe timeout.
func buildHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, func(), error) {
	if !cfg.UseTor {
		return &http.Client{Timeout: cfg.ProbeTimeout}, func() {}, nil
	}

	if cfg.SocksProxyAddress != "" {
		// Use external SOCKS proxy
		client, err := anonet.NewClient(cfg.SocksProxyAddress, cfg.ProbeTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create proxy client: %w", err)
		}

		status := client.CheckConnection(ctx)
		if status != anonet.ProxyStatusOK {
			return nil, nil, fmt.Errorf("proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.SocksProxyAddress)
		}

		logger.Info("proxy connection verified", "address", cfg.SocksProxyAddress)
		return client.NewHTTPClient(), func() {}, nil
	}

	// Start embedded Tor daemon
	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := anonet.NewEmbeddedTor(
		anonet.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	client, err := embedded.NewClient(cfg.ProbeTimeout)
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	status := client.CheckConnection(ctx)
	if status != anonet.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
	cleanup := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	return client.NewHTTPClient(), cleanup, nil
}
