package session

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/chatbuddy/internal/contract"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// ConnectWallet connects the wallet and loads the caller's profile, friends
// and the user directory. An account without a profile is still recorded,
// with Registered false and an error asking to create one.
func (s *Session) ConnectWallet(ctx context.Context) error {
	return s.do(ctx, action{
		name:     "connectWallet",
		fallback: msgConnectFailed,
		run:      s.load,
	})
}

// load reads everything ConnectWallet and SwitchNetwork commit.
func (s *Session) load(ctx context.Context, b *Binding) (func(*State), error) {
	exists, err := b.Contract.CheckUserExists(ctx, b.Account)
	if err != nil {
		return nil, err
	}
	if !exists {
		commit := func(st *State) {
			st.Account = b.Account
			st.Network = b.Network.Name
			st.Registered = false
			st.UserName = ""
			st.FriendLists = nil
			st.UserLists = nil
		}
		return commit, reject(chaterr.ErrAccountNotFound, msgCreateFirst)
	}

	var (
		friends []contract.Friend
		users   []contract.User
		name    string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		friends, err = b.Contract.GetMyFriendList(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = b.Contract.GetAllAppUser(gctx)
		return err
	})
	g.Go(func() (err error) {
		name, err = b.Contract.GetUsername(gctx, b.Account)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return func(st *State) {
		st.Account = b.Account
		st.Network = b.Network.Name
		st.Registered = true
		st.UserName = name
		st.FriendLists = friends
		st.UserLists = users
	}, nil
}

// CreateAccount registers name for accountAddress, which must be the
// connected account.
func (s *Session) CreateAccount(ctx context.Context, name, accountAddress string) error {
	name = trim(name)
	return s.do(ctx, action{
		name:     "createAccount",
		fallback: msgCreateFailed,
		check: func() error {
			return check(s.validate, profileInput{Name: name, Address: trim(accountAddress)}, msgCreateEmpty)
		},
		needSigner: true,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			addr := toAddress(accountAddress)
			exists, err := b.Contract.CheckUserExists(ctx, addr)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, reject(chaterr.ErrAccountExists, msgUserExists)
			}
			if addr != b.Account {
				return nil, reject(chaterr.ErrValidation, msgCreateMismatch)
			}

			p, err := b.Contract.CreateAccount(ctx, name)
			if err != nil {
				return nil, err
			}
			if err := s.wait(ctx, p); err != nil {
				return nil, err
			}

			return func(st *State) {
				st.Account = addr
				st.Network = b.Network.Name
				st.UserName = name
				st.Registered = true
			}, nil
		},
	})
}

// AddFriend saves accountAddress under name and reloads the friend list.
func (s *Session) AddFriend(ctx context.Context, name, accountAddress string) error {
	name = trim(name)
	return s.do(ctx, action{
		name:     "addFriend",
		fallback: msgAddFriendFailed,
		check: func() error {
			return check(s.validate, profileInput{Name: name, Address: trim(accountAddress)}, msgFriendEmpty)
		},
		needSigner: true,
		registered: true,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			friend := toAddress(accountAddress)
			if err := s.requireUser(ctx, b, friend, msgFriendNoAccount); err != nil {
				return nil, err
			}

			p, err := b.Contract.AddFriend(ctx, friend, name)
			if err != nil {
				return nil, err
			}
			if err := s.wait(ctx, p); err != nil {
				return nil, err
			}

			friends, err := b.Contract.GetMyFriendList(ctx)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.FriendLists = friends }, nil
		},
	})
}

// SendMessage sends msg to address. The conversation is reloaded only when
// address is the selected partner.
func (s *Session) SendMessage(ctx context.Context, msg, address string) error {
	return s.do(ctx, action{
		name:     "sendMessage",
		fallback: msgSendFailed,
		check: func() error {
			return check(s.validate, messageInput{Msg: trim(msg), Address: trim(address)}, msgMessageEmpty)
		},
		needSigner: true,
		registered: true,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			friend := toAddress(address)
			if err := s.requireUser(ctx, b, friend, msgRecipientMissing); err != nil {
				return nil, err
			}

			p, err := b.Contract.SendMessage(ctx, friend, msg)
			if err != nil {
				return nil, err
			}
			if err := s.wait(ctx, p); err != nil {
				return nil, err
			}

			msgs, err := b.Contract.ReadMessages(ctx, friend)
			if err != nil {
				return nil, err
			}
			if msgs == nil {
				msgs = []contract.Message{}
			}
			return func(st *State) {
				if st.CurrentUserAddress == friend {
					st.FriendMsg = msgs
				}
			}, nil
		},
	})
}

// ReadMessage replaces the message list with the conversation with address.
func (s *Session) ReadMessage(ctx context.Context, address string) error {
	return s.do(ctx, action{
		name:     "readMessage",
		fallback: msgReadFailed,
		check: func() error {
			return check(s.validate, addressInput{Address: trim(address)}, msgSelectUser)
		},
		registered: true,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			msgs, err := b.Contract.ReadMessages(ctx, toAddress(address))
			if err != nil {
				return nil, err
			}
			if msgs == nil {
				msgs = []contract.Message{}
			}
			return func(st *State) { st.FriendMsg = msgs }, nil
		},
	})
}

// ReadUser selects address as the current conversation partner. It does not
// load messages; call ReadMessage next.
func (s *Session) ReadUser(ctx context.Context, address string) error {
	return s.do(ctx, action{
		name:     "readUser",
		fallback: msgReadUserFailed,
		check: func() error {
			return check(s.validate, addressInput{Address: trim(address)}, msgSelectUser)
		},
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			user := toAddress(address)
			if err := s.requireUser(ctx, b, user, msgUserMissing); err != nil {
				return nil, err
			}
			name, err := b.Contract.GetUsername(ctx, user)
			if err != nil {
				return nil, err
			}
			return func(st *State) {
				st.CurrentUserName = name
				st.CurrentUserAddress = user
			}, nil
		},
	})
}

// RefreshUsers reloads the user directory.
func (s *Session) RefreshUsers(ctx context.Context) error {
	return s.do(ctx, action{
		name:     "refreshUsers",
		fallback: msgUsersFailed,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			users, err := b.Contract.GetAllAppUser(ctx)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.UserLists = users }, nil
		},
	})
}

// RefreshFriends reloads the caller's friend list.
func (s *Session) RefreshFriends(ctx context.Context) error {
	return s.do(ctx, action{
		name:       "refreshFriends",
		fallback:   msgFriendsFailed,
		registered: true,
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			friends, err := b.Contract.GetMyFriendList(ctx)
			if err != nil {
				return nil, err
			}
			return func(st *State) { st.FriendLists = friends }, nil
		},
	})
}

// SwitchNetwork moves the wallet to chainID and reloads the session there.
// The conversation selection belongs to the old chain and is cleared.
func (s *Session) SwitchNetwork(ctx context.Context, chainID int64) error {
	return s.do(ctx, action{
		name:     "switchNetwork",
		fallback: msgConnectFailed,
		prepare: func(ctx context.Context) error {
			if err := s.connector.SwitchChain(ctx, chainID); err != nil {
				return chaterr.WithCause(chaterr.ErrNetworkSwitch, err)
			}
			return nil
		},
		run: func(ctx context.Context, b *Binding) (func(*State), error) {
			commit, err := s.load(ctx, b)
			if commit == nil {
				return nil, err
			}
			return func(st *State) {
				commit(st)
				st.FriendMsg = nil
				st.CurrentUserName = ""
				st.CurrentUserAddress = common.Address{}
			}, err
		},
	})
}

// Disconnect drops the wallet connection and resets the state.
func (s *Session) Disconnect() error {
	if !s.busy.CompareAndSwap(false, true) {
		s.metrics.RecordBusy()
		return chaterr.WithDetails(chaterr.ErrSessionBusy, map[string]string{"action": "disconnect"})
	}
	defer s.busy.Store(false)

	err := s.connector.Disconnect()
	s.update(func(st *State) { *st = State{} })
	return err
}

// requireUser fails with msg when addr has no profile.
func (s *Session) requireUser(ctx context.Context, b *Binding, addr common.Address, msg string) error {
	exists, err := b.Contract.CheckUserExists(ctx, addr)
	if err != nil {
		return err
	}
	if !exists {
		return reject(chaterr.ErrAccountNotFound, msg)
	}
	return nil
}
