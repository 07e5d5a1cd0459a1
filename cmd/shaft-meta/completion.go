package main

import (
	"github.com/spf13/cobra"

	"github.com/shaftpkg/shaft-meta/internal/common/output"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a shell completion script for shaft-meta. The update command
completes package names from the configured manifest.

  $ source <(shaft-meta completion bash)
  $ shaft-meta completion zsh > "${fpath[1]}/_shaft-meta"
  $ shaft-meta completion fish > ~/.config/fish/completions/shaft-meta.fish
  PS> shaft-meta completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, w := cmd.Root(), output.Stdout
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(w, true)
		case "zsh":
			return root.GenZshCompletion(w)
		case "fish":
			return root.GenFishCompletion(w, true)
		default:
			return root.GenPowerShellCompletionWithDesc(w)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
