package cli

import "github.com/spf13/cobra"

// NewCompletionCommand prints a shell completion script for leapframe.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapframe.

To load completions:

Bash:
  $ source <(leapframe completion bash)

Zsh:
  $ leapframe completion zsh > "${fpath[1]}/_leapframe"

Fish:
  $ leapframe completion fish | source

PowerShell:
  PS> leapframe completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}
