package cli

import (
	"context"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/output"
	"github.com/mrz1836/chatbuddy/internal/session"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List every registered user",
	Long: `List all users registered on the ChatApp contract of the current network.

No profile is needed to browse the directory.`,
	Example: `  chatbuddy users
  chatbuddy users -o json`,
	GroupID: "chat",
	Args:    cobra.NoArgs,
	RunE:    runUsers,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var openCmd = &cobra.Command{
	Use:   "open <friend>",
	Short: "Show the conversation with a friend",
	Long: `Select a friend by name or address and print your conversation in the
order the messages were recorded on chain.`,
	Example: `  chatbuddy open bob
  chatbuddy open 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
  chatbuddy open bob -o json`,
	GroupID: "chat",
	Args:    cobra.ExactArgs(1),
	RunE:    runOpen,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send <friend> <message...>",
	Short: "Send a message to a friend",
	Long: `Send a message to a friend, addressed by name or address.

The command waits until the transaction is mined and then prints the
updated conversation.`,
	Example: `  chatbuddy send bob hello there
  chatbuddy send bob "see you at 5"
  chatbuddy send 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC hi`,
	GroupID: "chat",
	Args:    cobra.MinimumNArgs(2),
	RunE:    runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(usersCmd, openCmd, sendCmd)
}

// conversationView is the JSON shape of a conversation.
type conversationView struct {
	Friend   contract.User      `json:"friend"`
	Messages []contract.Message `json:"messages"`
}

func newConversationView(st session.State) conversationView {
	msgs := st.FriendMsg
	if msgs == nil {
		msgs = []contract.Message{}
	}
	return conversationView{
		Friend:   contract.User{Name: st.CurrentUserName, AccountAddress: st.CurrentUserAddress},
		Messages: msgs,
	}
}

func transcriptOf(st session.State) output.Transcript {
	return output.Transcript{
		Self:       st.Account,
		SelfName:   st.UserName,
		FriendName: st.CurrentUserName,
		Messages:   st.FriendMsg,
	}
}

func displayConversation(cc *CommandContext, st session.State) error {
	return cc.Fmt.Emit(newConversationView(st), func(w io.Writer) error {
		out(w, "Conversation with %s (%s)\n\n", st.CurrentUserName, st.CurrentUserAddress.Hex())
		return transcriptOf(st).Render(w)
	})
}

func runUsers(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	chat := cc.Chat()
	if err := chat.RefreshUsers(ctx); err != nil {
		return err
	}

	var self common.Address
	if account, ok := cc.Wallet().CachedAccount(); ok {
		self = account
	}
	users := chat.Snapshot().UserLists
	if users == nil {
		users = []contract.User{}
	}
	return cc.Fmt.Emit(users, func(w io.Writer) error {
		if len(users) == 0 {
			outln(w, "No registered users yet.")
			return nil
		}
		return output.UserTable(users, self).Render(w)
	})
}

// openConversation selects peer and loads the conversation with it.
func openConversation(ctx context.Context, chat *session.Session, peer string) error {
	addr, _, err := resolvePeer(chat.Snapshot(), peer)
	if err != nil {
		return err
	}
	if err := chat.ReadUser(ctx, addr.Hex()); err != nil {
		return err
	}
	return chat.ReadMessage(ctx, addr.Hex())
}

func runOpen(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	chat, err := connectChat(ctx, cc, false)
	if err != nil {
		return err
	}
	if err := openConversation(ctx, chat, args[0]); err != nil {
		return err
	}
	return displayConversation(cc, chat.Snapshot())
}

func runSend(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, writeTimeout(cc))
	defer cancel()

	chat, err := connectChat(ctx, cc, false)
	if err != nil {
		return err
	}
	addr, _, err := resolvePeer(chat.Snapshot(), args[0])
	if err != nil {
		return err
	}
	if err := chat.ReadUser(ctx, addr.Hex()); err != nil {
		return err
	}

	output.Info(cmd.ErrOrStderr(), "Sending, waiting for the transaction to be mined...")
	if err := chat.SendMessage(ctx, strings.Join(args[1:], " "), addr.Hex()); err != nil {
		return err
	}
	return displayConversation(cc, chat.Snapshot())
}
