package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/output"
	"github.com/mrz1836/chatbuddy/internal/session"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and load your profile",
	Long: `Unlock the wallet, check that it is on a supported network and load your
profile, friends and the user directory from the ChatApp contract.

The approved account is remembered, so later commands reconnect without
prompting until 'chatbuddy wallet reset'. An account without a profile is
still connected; create one with 'chatbuddy account create'.`,
	Example: `  chatbuddy connect
  chatbuddy connect --network localhost
  chatbuddy connect -o json`,
	GroupID: "chat",
	Args:    cobra.NoArgs,
	RunE:    runConnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
}

// profileView summarizes a connected session.
type profileView struct {
	Account    string `json:"account"`
	Network    string `json:"network"`
	Name       string `json:"name,omitempty"`
	Registered bool   `json:"registered"`
	Friends    int    `json:"friends"`
	Users      int    `json:"users"`
	Notice     string `json:"notice,omitempty"`
}

func newProfileView(st session.State) profileView {
	return profileView{
		Account:    st.Account.Hex(),
		Network:    st.Network,
		Name:       st.UserName,
		Registered: st.Registered,
		Friends:    len(st.FriendLists),
		Users:      len(st.UserLists),
		Notice:     st.Error,
	}
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	chat, err := connectChat(ctx, cc, true)
	if err != nil {
		return err
	}
	return displayProfile(cmd, cc, chat.Snapshot())
}

func displayProfile(cmd *cobra.Command, cc *CommandContext, st session.State) error {
	view := newProfileView(st)
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		writeProfile(w, cmd.ErrOrStderr(), view)
		return nil
	})
}

func writeProfile(w, errw io.Writer, view profileView) {
	out(w, "Account:  %s\n", view.Account)
	out(w, "Network:  %s\n", view.Network)
	if !view.Registered {
		output.Warn(errw, "%s Run 'chatbuddy account create <name>'.", view.Notice)
		return
	}
	out(w, "Profile:  %s\n", view.Name)
	out(w, "Friends:  %d\n", view.Friends)
	out(w, "Users:    %d\n", view.Users)
}
