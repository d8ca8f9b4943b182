package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nwpfetch/internal/models"
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the known data sources",
	Long: `List the data sources this tool knows how to fetch, with their run
cadence and the number of files expected per 00Z run.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	fmt.Printf("%-16s %-10s %-8s %s\n", "SOURCE", "INTERVAL", "FILES", "ARTIFACT")
	for _, name := range models.ProfileNames() {
		profile, _ := models.ProfileByName(name)

		files := len(profile.Offsets(0))
		artifact := profile.OutputFile
		if models.IsEnsemble(name) {
			members := len(models.GEFSMemberIDs())
			artifact = fmt.Sprintf("gefs_<member>.nc (%d members)", members)
		}

		fmt.Printf("%-16s %-10s %-8d %s\n", name, profile.UpdateInterval, files, artifact)
	}
	return nil
}
