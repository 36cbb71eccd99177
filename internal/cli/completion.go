package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for chatbuddy.

Besides commands and flags, the script completes network names for
'wallet switch' and --network, values for --output and --store, and
configuration paths for 'config get' and 'config set'.`,
	Example: `  # bash, current session
  source <(chatbuddy completion bash)

  # zsh, every session
  chatbuddy completion zsh > "${fpath[1]}/_chatbuddy"

  # fish
  chatbuddy completion fish > ~/.config/fish/completions/chatbuddy.fish

  # PowerShell
  chatbuddy completion powershell | Out-String | Invoke-Expression`,
	GroupID:               "config",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		root := cmd.Root()
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

// configKeys lists every path accepted by 'config get' and 'config set'.
func configKeys() []string {
	keys := []string{
		"home",
		"network",
		"wallet.key_source",
		"wallet.key_file",
		"wallet.keyring_user",
		"wallet.memory_lock",
		"tx.finalize_timeout_seconds",
		"rpc.rate_per_second",
		"rpc.burst",
		"rpc.max_attempts",
		"output.default_format",
		"output.verbose",
		"output.color",
		"logging.level",
		"logging.file",
	}
	for _, n := range []string{config.NetworkHolesky, config.NetworkLocalhost} {
		for _, k := range []string{"rpc", "chain_id", "contract_address", "deployment_file"} {
			keys = append(keys, "networks."+n+"."+k)
		}
	}
	return keys
}

// completeConfigKey completes the path argument of 'config get' and 'config set'.
func completeConfigKey(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, k := range configKeys() {
		if strings.HasPrefix(k, toComplete) {
			out = append(out, k)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// Flag value completions, registered next to the flags they serve.
//
//nolint:gochecknoglobals // shared by the init functions that define the flags
var (
	completeOutput = cobra.FixedCompletions(
		[]string{string(output.FormatText), string(output.FormatJSON), string(output.FormatAuto)},
		cobra.ShellCompDirectiveNoFileComp)
	completeNetwork = cobra.FixedCompletions(
		[]string{config.NetworkHolesky, config.NetworkLocalhost},
		cobra.ShellCompDirectiveNoFileComp)
	completeStore = cobra.FixedCompletions(
		[]string{config.KeySourceKeyring, config.KeySourceFile},
		cobra.ShellCompDirectiveNoFileComp)
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)

	configGetCmd.ValidArgsFunction = completeConfigKey
	configSetCmd.ValidArgsFunction = completeConfigKey
}
