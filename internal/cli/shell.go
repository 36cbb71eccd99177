package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/output"
	"github.com/mrz1836/chatbuddy/internal/session"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// shellHelp lists the chat shell's commands.
const shellHelp = `  /open <friend>          select a friend by name or address
  /send <message>         send a message (same as typing it)
  /read                   reload the open conversation
  /clear                  clear the conversation from the screen
  /friends [query]        list friends, optionally filtered
  /add <address> <name>   add a friend
  /users                  list registered users
  /switch <network>       move the wallet to holesky or localhost
  /whoami                 show your profile
  /help                   show this list
  /quit                   leave the session
`

// watchInterval is how often the chat shell polls the wallet's chain.
const watchInterval = 5 * time.Second

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var chatCmd = &cobra.Command{
	Use:   "chat [friend]",
	Short: "Start an interactive chat session",
	Long: "Open an interactive session on top of the connected wallet.\n\n" +
		"Type a message to send it to the open conversation, or a slash command:\n\n" +
		shellHelp + "\n" +
		"When the wallet changes chain, the session reloads before the next command.",
	Example: `  chatbuddy chat
  chatbuddy chat bob
  chatbuddy chat --network localhost`,
	GroupID: "chat",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runChat,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatShell is the read-eval loop behind the chat command.
type chatShell struct {
	cc   *CommandContext
	chat *session.Session
	out  io.Writer
	errw io.Writer

	// switchedTo holds a chain ID reported by the wallet watcher, or zero.
	switchedTo atomic.Int64
}

func runChat(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, readTimeout)
	chat, err := connectChat(connectCtx, cc, true)
	connectCancel()
	if err != nil {
		return err
	}

	sh := &chatShell{cc: cc, chat: chat, out: cmd.OutOrStdout(), errw: cmd.ErrOrStderr()}
	sh.whoami()

	go cc.Wallet().Watch(ctx, watchInterval, func(chainID int64) {
		sh.switchedTo.Store(chainID)
	})

	if len(args) == 1 {
		sh.handle(ctx, "/open "+args[0])
	}
	return sh.run(ctx, stdinReader)
}

// run reads commands from in until /quit, EOF or ctx is done.
func (s *chatShell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		s.prompt()
		if !scanner.Scan() {
			outln(s.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		if chainID := s.switchedTo.Swap(0); chainID != 0 {
			output.Warn(s.errw, "Wallet switched to chain %d.", chainID)
			s.reload(ctx)
		}
		if quit := s.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

func (s *chatShell) prompt() {
	st := s.chat.Snapshot()
	if st.CurrentUserName != "" {
		out(s.out, "%s> ", st.CurrentUserName)
		return
	}
	out(s.out, "> ")
}

// handle runs one input line and reports whether the session should end.
func (s *chatShell) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		s.report(s.send(ctx, line))
		return false
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "h":
		out(s.out, "%s", shellHelp)
	case "open", "o":
		err = s.open(ctx, rest)
	case "send", "s":
		err = s.send(ctx, rest)
	case "read", "r":
		err = s.read(ctx)
	case "clear":
		s.chat.ClearChat()
		outln(s.out, "Conversation cleared.")
	case "friends", "f":
		err = s.friends(ctx, rest)
	case "add":
		err = s.add(ctx, rest)
	case "users", "u":
		err = s.users(ctx)
	case "switch":
		err = s.switchNetwork(ctx, rest)
	case "whoami":
		s.whoami()
	default:
		err = chaterr.WithSuggestion(
			chaterr.WithDetails(chaterr.ErrInvalidInput, map[string]string{"command": "/" + name}),
			"type /help for the list of commands",
		)
	}
	s.report(err)
	return false
}

// report prints a failed command without ending the session.
func (s *chatShell) report(err error) {
	if err == nil {
		return
	}
	d := output.Describe(err)
	if d.Suggestion != "" {
		output.Warn(s.errw, "%s (%s)", d.Message, d.Suggestion)
		return
	}
	output.Warn(s.errw, "%s", d.Message)
}

func (s *chatShell) whoami() {
	st := s.chat.Snapshot()
	if !st.Registered {
		output.Warn(s.errw, "Connected as %s on %s without a profile. Create one with 'chatbuddy account create <name>'.",
			st.Account.Hex(), st.Network)
		return
	}
	output.Info(s.out, "Connected as %s (%s) on %s, %d friends.",
		st.UserName, st.Account.Hex(), st.Network, len(st.FriendLists))
}

func (s *chatShell) reload(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	err := s.chat.ConnectWallet(rctx)
	if err != nil && !chaterr.Is(err, chaterr.ErrAccountNotFound) {
		s.report(err)
		return
	}
	s.whoami()
}

func (s *chatShell) open(ctx context.Context, peer string) error {
	if peer == "" {
		return chaterr.WithSuggestion(chaterr.ErrInvalidInput, "usage: /open <friend>")
	}
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	if err := openConversation(rctx, s.chat, peer); err != nil {
		return err
	}
	return s.printConversation()
}

func (s *chatShell) read(ctx context.Context) error {
	st := s.chat.Snapshot()
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	// An unselected conversation has a zero address, which ReadMessage rejects.
	addr := ""
	if st.CurrentUserName != "" {
		addr = st.CurrentUserAddress.Hex()
	}
	if err := s.chat.ReadMessage(rctx, addr); err != nil {
		return err
	}
	return s.printConversation()
}

func (s *chatShell) send(ctx context.Context, msg string) error {
	st := s.chat.Snapshot()
	if st.CurrentUserName == "" {
		return chaterr.WithSuggestion(chaterr.ErrInvalidInput, "open a conversation first with /open <friend>")
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout(s.cc))
	defer cancel()
	output.Info(s.errw, "Sending...")
	if err := s.chat.SendMessage(wctx, msg, st.CurrentUserAddress.Hex()); err != nil {
		return err
	}
	return s.printConversation()
}

func (s *chatShell) friends(ctx context.Context, query string) error {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	if err := s.chat.RefreshFriends(rctx); err != nil {
		return err
	}
	friends := filterFriends(s.chat.Snapshot().FriendLists, query)
	if len(friends) == 0 {
		outln(s.out, "No friends found.")
		return nil
	}
	return output.FriendTable(friends).Render(s.out)
}

func (s *chatShell) add(ctx context.Context, args string) error {
	address, name, ok := strings.Cut(args, " ")
	if !ok {
		return chaterr.WithSuggestion(chaterr.ErrInvalidInput, "usage: /add <address> <name>")
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout(s.cc))
	defer cancel()
	output.Info(s.errw, "Adding friend...")
	if err := s.chat.AddFriend(wctx, name, address); err != nil {
		return err
	}
	output.Success(s.out, "Added %s.", strings.TrimSpace(name))
	return nil
}

func (s *chatShell) users(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	if err := s.chat.RefreshUsers(rctx); err != nil {
		return err
	}
	st := s.chat.Snapshot()
	return output.UserTable(st.UserLists, st.Account).Render(s.out)
}

func (s *chatShell) switchNetwork(ctx context.Context, name string) error {
	net, ok := s.cc.Resolver.ByName(name)
	if !ok {
		return chaterr.WithDetails(chaterr.ErrUnsupportedNetwork, map[string]string{"network": name})
	}
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	err := s.chat.SwitchNetwork(rctx, net.ChainID)
	if err != nil && !chaterr.Is(err, chaterr.ErrAccountNotFound) {
		return err
	}
	s.whoami()
	return nil
}

func (s *chatShell) printConversation() error {
	st := s.chat.Snapshot()
	out(s.out, "--- %s ---\n", st.CurrentUserName)
	return transcriptOf(st).Render(s.out)
}
