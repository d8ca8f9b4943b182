package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `Generate shell completion script for nwpfetch.

To load completions:

Bash:
  $ source <(nwpfetch completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ nwpfetch completion bash > /etc/bash_completion.d/nwpfetch
  # macOS:
  $ nwpfetch completion bash > $(brew --prefix)/etc/bash_completion.d/nwpfetch

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ nwpfetch completion zsh > "${fpath[1]}/_nwpfetch"

  # For oh-my-zsh users:
  $ mkdir -p ~/.oh-my-zsh/custom/plugins/nwpfetch
  $ nwpfetch completion zsh > ~/.oh-my-zsh/custom/plugins/nwpfetch/_nwpfetch
  # Then add 'nwpfetch' to your plugins array in ~/.zshrc:
  # plugins=(... nwpfetch)

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ nwpfetch completion fish | source

  # To load completions for each session, execute once:
  $ nwpfetch completion fish > ~/.config/fish/completions/nwpfetch.fish

PowerShell:
  PS> nwpfetch completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> nwpfetch completion powershell > nwpfetch.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
