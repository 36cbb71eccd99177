package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:     "account",
	Short:   "Manage your chat profile",
	Long:    `Create and inspect the on-chain profile tied to your wallet address.`,
	GroupID: "chat",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile for the connected account",
	Long: `Register a display name for the connected wallet account.

The transaction is signed by the wallet and the command waits until it is
mined (up to tx.finalize_timeout_seconds). An account can register only once,
and only for itself: --address must match the connected account.`,
	Example: `  chatbuddy account create alice
  chatbuddy account create "Alice Smith"
  chatbuddy account create alice --address 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Long: `Show the connected account, its profile name and the number of friends
and registered users.`,
	Example: `  chatbuddy account show
  chatbuddy account show -o json`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var accountAddress string

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd, accountShowCmd)

	accountCreateCmd.Flags().StringVar(&accountAddress, "address", "", "account to register (default: the connected account)")
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, writeTimeout(cc))
	defer cancel()

	chat, err := connectChat(ctx, cc, true)
	if err != nil {
		return err
	}

	addr := accountAddress
	if addr == "" {
		addr = chat.Snapshot().Account.Hex()
	}
	output.Info(cmd.ErrOrStderr(), "Creating profile, waiting for the transaction to be mined...")
	if err := chat.CreateAccount(ctx, args[0], addr); err != nil {
		return err
	}

	st := chat.Snapshot()
	view := newProfileView(st)
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		output.Success(w, "Profile '%s' created for %s on %s", st.UserName, st.Account.Hex(), st.Network)
		return nil
	})
}
