/*
Copyright © 2026 nwpfetch Contributors

nwpfetch continuously retrieves numerical weather prediction files from
NOMADS as runs become available.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nwpfetch",
	Short: "nwpfetch - NWP availability-polling downloader",
	Long: `nwpfetch retrieves numerical weather prediction files from the NCEP
NOMADS server as a model run's files become available.

File availability is discovered by polling: for each run, the expected
forecast files are probed, downloaded concurrently once ready, converted
to netCDF with wgrib2, and optimized for time-series access. When a run
stalls and the next run has started publishing, the stalled run is
abandoned. Resumption after a restart is inferred entirely from the local
filesystem and the provider's published run listing.

Example:
  nwpfetch fetch gfs_0p25 --base-path /data/nwp
  nwpfetch fetch gefs --base-path /data/nwp --once
  nwpfetch process /data/nwp/rap/2023/04/01/06 rap
  nwpfetch sources`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./nwpfetch.yaml, ~/.config/nwpfetch/nwpfetch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.SetVersionTemplate("nwpfetch version {{.Version}}\n")
}
