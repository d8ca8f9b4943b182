package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
	"nwpfetch/internal/pipeline"
	"nwpfetch/internal/services"
	"nwpfetch/internal/ui"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <directory> <source>",
	Short: "Convert and optimize already-downloaded raw files",
	Long: `Run the conversion and optimization steps against a directory that
already contains a run's raw grib files, skipping all polling and
fetching. Useful for reprocessing after a failed conversion or for files
obtained out of band.

Examples:
  nwpfetch process /data/nwp/rap/2023/04/01/06 rap
  nwpfetch process ./downloads hrrr_subhourly`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	dir := args[0]
	sourceName := args[1]

	config, err := services.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logLevel := lib.LogLevelInfo
	if verbose {
		logLevel = lib.LogLevelDebug
	}
	logger := lib.NewLogger(logLevel)

	profile, ok := models.ProfileByName(sourceName)
	if !ok {
		return fmt.Errorf("unknown source %q, see 'nwpfetch sources'", sourceName)
	}
	if models.IsEnsemble(sourceName) {
		return fmt.Errorf("process works on one run directory; pass a single gefs member's files")
	}

	if err := pipeline.CheckWgrib2(); err != nil {
		return err
	}

	raws, err := filepath.Glob(filepath.Join(dir, "*.grib2"))
	if err != nil || len(raws) == 0 {
		return fmt.Errorf("%s is not a valid directory with grib files", dir)
	}

	converter := pipeline.NewWgribConverter(logger)
	optimizer := pipeline.NewCommandOptimizer(config.Optimize.Command, config.Workers, logger)

	spinner := ui.NewSpinner(fmt.Sprintf("Processing %d raw files in %s", len(raws), dir))
	spinner.Start()
	err = pipeline.ProcessDirectory(context.Background(), dir, profile, converter, optimizer, logger)
	spinner.Stop(err == nil)
	return err
}
