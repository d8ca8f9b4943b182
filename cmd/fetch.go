package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
	"nwpfetch/internal/pipeline"
	"nwpfetch/internal/services"
)

var (
	fetchOnce       bool
	fetchNoProgress bool
	fetchBasePath   string
	fetchChunkSize  int
	fetchWorkers    int
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <source>",
	Short: "Poll for and download a source's forecast runs",
	Long: `Continuously retrieve a source's forecast runs as they are published.

The scheduler determines where to resume from the provider's run listing
and the local artifacts, waits until the run's first file can plausibly be
ready, polls each expected file, downloads ready files concurrently, and
on completion converts and optimizes the run into a single netCDF
artifact. Raw downloads are deleted once the artifact exists.

The ensemble source (gefs) runs one independent schedule per member.

Signals:
  SIGINT/SIGTERM  finish or cancel in-flight work, exit 0 without
                  starting a new run
  SIGUSR1         abort immediately with exit code 1

Examples:
  # Fetch GFS continuously into /data/nwp
  nwpfetch fetch gfs_0p25 --base-path /data/nwp

  # Fetch a single HRRR run and exit
  nwpfetch fetch hrrr_hourly --base-path /data/nwp --once

  # All 23 GEFS members concurrently
  nwpfetch fetch gefs --base-path /data/nwp`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchOnce, "once", false, "process a single run and exit")
	fetchCmd.Flags().BoolVar(&fetchNoProgress, "no-progress", false, "disable progress indicators")
	fetchCmd.Flags().StringVar(&fetchBasePath, "base-path", "", "directory to save data in (overrides config)")
	fetchCmd.Flags().IntVar(&fetchChunkSize, "chunksize", 0, "download chunk size in KB (overrides config)")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent optimizer invocations (overrides config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	sourceName := args[0]

	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFetchFlags(config)

	logLevel := lib.LogLevelInfo
	if verbose {
		logLevel = lib.LogLevelDebug
	}
	logger := lib.NewLogger(logLevel)

	profile, ok := models.ProfileByName(sourceName)
	if !ok {
		return fmt.Errorf("unknown source %q, see 'nwpfetch sources'", sourceName)
	}

	if err := pipeline.CheckWgrib2(); err != nil {
		return err
	}

	profiles := []models.SourceProfile{profile}
	if models.IsEnsemble(sourceName) {
		profiles = models.GEFSMembers()
	}

	// One fetcher per source tree; a second process would race the same
	// polling schedule and temp files.
	lock, err := services.AcquireSourceLock(config.BasePath, profile, logger)
	if err != nil {
		return fmt.Errorf("cannot start fetching: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release source lock", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalHandlers(cancel, logger)

	// Generous timeout: a subset request can take minutes while the
	// provider extracts the requested fields.
	httpClient := services.NewHTTPClient(11*time.Minute, config.Retry, logger)
	endpoints := services.DefaultEndpoints()
	converter := pipeline.NewWgribConverter(logger)
	optimizer := pipeline.NewCommandOptimizer(config.Optimize.Command, config.Workers, logger)

	logger.Info("Starting fetch", "source", sourceName, "drivers", len(profiles),
		"base_path", config.BasePath, "once", fetchOnce)

	err = pipeline.RunAll(ctx, profiles, config, httpClient, endpoints,
		converter, optimizer, !fetchNoProgress, fetchOnce, logger)
	if err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		logger.Info("Shut down cleanly")
	}
	return nil
}

func applyFetchFlags(config *models.Config) {
	if fetchBasePath != "" {
		config.BasePath = fetchBasePath
	}
	if fetchChunkSize > 0 {
		config.ChunkSizeKB = fetchChunkSize
	}
	if fetchWorkers > 0 {
		config.Workers = fetchWorkers
	}
}

// installSignalHandlers wires the two termination signals: a graceful
// shutdown that cancels the run drivers, and an immediate abort.
func installSignalHandlers(cancel context.CancelFunc, logger *lib.Logger) {
	graceful := make(chan os.Signal, 1)
	signal.Notify(graceful, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-graceful
		logger.Warn("Received signal, shutting down gracefully", "signal", sig.String())
		cancel()
	}()
	installAbortHandler(logger)
}
