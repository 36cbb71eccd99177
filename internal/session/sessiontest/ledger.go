// Package sessiontest provides an in-memory ChatApp ledger for exercising
// sessions without a node.
package sessiontest

import (
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/network"
	"github.com/mrz1836/chatbuddy/internal/session"
)

// Errors mirroring the contract's require() reverts.
var (
	ErrAlreadyRegistered = errors.New("user already exists")
	ErrNotRegistered     = errors.New("create an account first")
	ErrAlreadyFriends    = errors.New("these users are already friends")
	ErrNotFriends        = errors.New("you are not friends with the given user")
	ErrSelfFriend        = errors.New("users cannot add themselves as friends")
)

// Localhost is the network every binding reports.
//
//nolint:gochecknoglobals // shared fixture
var Localhost = network.Network{Name: "localhost", ChainID: 31337}

// Ledger is a shared ChatApp state. Friendship is mutual and conversations
// are keyed by the unordered pair of participants, as on chain.
type Ledger struct {
	mu       sync.Mutex
	users    []contract.User
	friends  map[common.Address][]contract.Friend
	messages map[[2]common.Address][]contract.Message
	clock    time.Time
	txs      int64
}

// NewLedger returns an empty ledger whose clock starts at start.
func NewLedger(start time.Time) *Ledger {
	return &Ledger{
		friends:  map[common.Address][]contract.Friend{},
		messages: map[[2]common.Address][]contract.Message{},
		clock:    start,
	}
}

// Register adds a profile directly.
func (l *Ledger) Register(addr common.Address, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = append(l.users, contract.User{Name: name, AccountAddress: addr})
}

// Befriend records a mutual friendship directly.
func (l *Ledger) Befriend(a, b common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.befriendLocked(a, b, l.nameLocked(b))
}

// Post appends a message directly.
func (l *Ledger) Post(from, to common.Address, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.postLocked(from, to, msg)
}

// Messages returns the conversation between a and b.
func (l *Ledger) Messages(a, b common.Address) []contract.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.messages[pair(a, b)])
}

// Connector returns a connector acting as account.
func (l *Ledger) Connector(account common.Address) *Connector {
	return &Connector{ledger: l, account: account}
}

func pair(a, b common.Address) [2]common.Address {
	if a.Cmp(b) > 0 {
		a, b = b, a
	}
	return [2]common.Address{a, b}
}

func (l *Ledger) nameLocked(addr common.Address) string {
	for _, u := range l.users {
		if u.AccountAddress == addr {
			return u.Name
		}
	}
	return ""
}

func (l *Ledger) existsLocked(addr common.Address) bool {
	return slices.ContainsFunc(l.users, func(u contract.User) bool { return u.AccountAddress == addr })
}

func (l *Ledger) friendsLocked(a, b common.Address) bool {
	return slices.ContainsFunc(l.friends[a], func(f contract.Friend) bool { return f.Pubkey == b })
}

func (l *Ledger) befriendLocked(a, b common.Address, name string) error {
	switch {
	case a == b:
		return ErrSelfFriend
	case !l.existsLocked(a) || !l.existsLocked(b):
		return ErrNotRegistered
	case l.friendsLocked(a, b):
		return ErrAlreadyFriends
	}
	l.friends[a] = append(l.friends[a], contract.Friend{Name: name, Pubkey: b})
	l.friends[b] = append(l.friends[b], contract.Friend{Name: l.nameLocked(a), Pubkey: a})
	return nil
}

func (l *Ledger) postLocked(from, to common.Address, msg string) {
	l.clock = l.clock.Add(time.Minute)
	k := pair(from, to)
	l.messages[k] = append(l.messages[k], contract.Message{Sender: from, Msg: msg, Timestamp: l.clock})
}

// Connector implements session.Connector for one account.
type Connector struct {
	ledger  *Ledger
	account common.Address

	mu       sync.Mutex
	err      error
	switched []int64
	closed   bool
}

// Fail makes every later Connect return err. A nil err restores it.
func (c *Connector) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Switched returns the chain ids passed to SwitchChain.
func (c *Connector) Switched() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.switched)
}

// Disconnected reports whether Disconnect was called.
func (c *Connector) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Connect implements session.Connector.
func (c *Connector) Connect(context.Context, bool) (*session.Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &session.Binding{
		Account:  c.account,
		Network:  Localhost,
		Contract: &binding{ledger: c.ledger, caller: c.account},
	}, nil
}

// SwitchChain implements session.Connector.
func (c *Connector) SwitchChain(_ context.Context, chainID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switched = append(c.switched, chainID)
	return nil
}

// Disconnect implements session.Connector.
func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// binding is the contract as seen by caller.
type binding struct {
	ledger *Ledger
	caller common.Address
}

func (b *binding) CheckUserExists(_ context.Context, addr common.Address) (bool, error) {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	return b.ledger.existsLocked(addr), nil
}

func (b *binding) GetUsername(_ context.Context, addr common.Address) (string, error) {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	if !b.ledger.existsLocked(addr) {
		return "", ErrNotRegistered
	}
	return b.ledger.nameLocked(addr), nil
}

func (b *binding) GetMyFriendList(context.Context) ([]contract.Friend, error) {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	return slices.Clone(b.ledger.friends[b.caller]), nil
}

func (b *binding) GetAllAppUser(context.Context) ([]contract.User, error) {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	return slices.Clone(b.ledger.users), nil
}

func (b *binding) ReadMessages(_ context.Context, friend common.Address) ([]contract.Message, error) {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	return slices.Clone(b.ledger.messages[pair(b.caller, friend)]), nil
}

func (b *binding) CreateAccount(_ context.Context, name string) (session.Pending, error) {
	return b.submit(func(l *Ledger) error {
		if l.existsLocked(b.caller) {
			return ErrAlreadyRegistered
		}
		l.users = append(l.users, contract.User{Name: name, AccountAddress: b.caller})
		return nil
	}), nil
}

func (b *binding) AddFriend(_ context.Context, friend common.Address, name string) (session.Pending, error) {
	return b.submit(func(l *Ledger) error {
		return l.befriendLocked(b.caller, friend, name)
	}), nil
}

func (b *binding) SendMessage(_ context.Context, friend common.Address, msg string) (session.Pending, error) {
	return b.submit(func(l *Ledger) error {
		if !l.friendsLocked(b.caller, friend) {
			return ErrNotFriends
		}
		l.postLocked(b.caller, friend, msg)
		return nil
	}), nil
}

func (b *binding) submit(apply func(*Ledger) error) *pending {
	b.ledger.mu.Lock()
	defer b.ledger.mu.Unlock()
	b.ledger.txs++
	return &pending{ledger: b.ledger, apply: apply, hash: common.BigToHash(big.NewInt(b.ledger.txs))}
}

// pending applies its change when waited on; a revert surfaces from Wait.
type pending struct {
	ledger *Ledger
	apply  func(*Ledger) error
	hash   common.Hash
}

func (p *pending) Hash() common.Hash { return p.hash }

func (p *pending) Wait(context.Context, time.Duration) (*types.Receipt, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	if err := p.apply(p.ledger); err != nil {
		return nil, err
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: p.hash}, nil
}
