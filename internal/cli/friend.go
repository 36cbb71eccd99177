package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var friendCmd = &cobra.Command{
	Use:     "friend",
	Short:   "Manage your friend list",
	Long:    `Add friends by address and list the friends saved on chain.`,
	GroupID: "chat",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var friendAddCmd = &cobra.Command{
	Use:   "add <address> <name>",
	Short: "Add a friend by address",
	Long: `Save a registered user as a friend under the given name.

Both you and the friend must have a profile. The command waits until the
transaction is mined and then prints the updated friend list.`,
	Example: `  chatbuddy friend add 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC bob
  chatbuddy friend add 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC "Bob Jones"`,
	Args: cobra.ExactArgs(2),
	RunE: runFriendAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var friendListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your friends",
	Long: `List your friends in the order they were added.

--search keeps friends whose name contains the query or is a near miss of it.`,
	Example: `  chatbuddy friend list
  chatbuddy friend list --search bob
  chatbuddy friend list -o json`,
	Args: cobra.NoArgs,
	RunE: runFriendList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var friendSearch string

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(friendCmd)
	friendCmd.AddCommand(friendAddCmd, friendListCmd)

	friendListCmd.Flags().StringVarP(&friendSearch, "search", "s", "", "filter friends by name")
}

func runFriendAdd(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, writeTimeout(cc))
	defer cancel()

	chat, err := connectChat(ctx, cc, false)
	if err != nil {
		return err
	}

	output.Info(cmd.ErrOrStderr(), "Adding friend, waiting for the transaction to be mined...")
	if err := chat.AddFriend(ctx, args[1], args[0]); err != nil {
		return err
	}
	output.Success(cmd.ErrOrStderr(), "Added %s as a friend", args[1])
	return displayFriends(cc, chat.Snapshot().FriendLists)
}

func runFriendList(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	chat, err := connectChat(ctx, cc, false)
	if err != nil {
		return err
	}
	return displayFriends(cc, filterFriends(chat.Snapshot().FriendLists, friendSearch))
}

func displayFriends(cc *CommandContext, friends []contract.Friend) error {
	if friends == nil {
		friends = []contract.Friend{}
	}
	return cc.Fmt.Emit(friends, func(w io.Writer) error {
		if len(friends) == 0 {
			outln(w, "No friends found. Add one with 'chatbuddy friend add <address> <name>'.")
			return nil
		}
		return output.FriendTable(friends).Render(w)
	})
}
