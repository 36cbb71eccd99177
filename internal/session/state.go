// Package session holds the chat client's observable state and the actions
// that change it. Every action runs the same protocol: clear the previous
// error, validate input, raise the loading flag, talk to the wallet and the
// contract, then either commit the slices it affects or record a single
// user-facing error message.
package session

import (
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chatbuddy/internal/contract"
)

// State is the view-facing snapshot of a session.
type State struct {
	Account    common.Address `json:"account"`
	UserName   string         `json:"user_name"`
	Registered bool           `json:"registered"`
	Network    string         `json:"network,omitempty"`

	FriendLists []contract.Friend  `json:"friend_lists"`
	UserLists   []contract.User    `json:"user_lists"`
	FriendMsg   []contract.Message `json:"friend_msg"`

	CurrentUserName    string         `json:"current_user_name"`
	CurrentUserAddress common.Address `json:"current_user_address"`

	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

// Connected reports whether a wallet account is known.
func (s State) Connected() bool {
	return s.Account != (common.Address{})
}

// FriendByName returns the first friend with the given name.
func (s State) FriendByName(name string) (contract.Friend, bool) {
	for _, f := range s.FriendLists {
		if f.Name == name {
			return f, true
		}
	}
	return contract.Friend{}, false
}

// FriendName returns the name under which addr is saved as a friend.
func (s State) FriendName(addr common.Address) (string, bool) {
	for _, f := range s.FriendLists {
		if f.Pubkey == addr {
			return f.Name, true
		}
	}
	return "", false
}

func (s State) clone() State {
	s.FriendLists = slices.Clone(s.FriendLists)
	s.UserLists = slices.Clone(s.UserLists)
	s.FriendMsg = slices.Clone(s.FriendMsg)
	return s
}
