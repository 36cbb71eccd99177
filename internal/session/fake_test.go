package session

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
)

var (
	me    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	carol = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	dave  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")

	errBoom = errors.New("boom")
)

// fakeChat is an in-memory ChatApp ledger for the caller me. Mutations take
// effect when their pending transaction is waited on.
type fakeChat struct {
	mu       sync.Mutex
	users    []contract.User
	friends  []contract.Friend
	messages map[common.Address][]contract.Message
	errs     map[string]error
	waitErr  error
	calls    []string

	// gate, when set, blocks CheckUserExists until closed.
	gate chan struct{}

	// readNil makes ReadMessages return a nil slice, as an empty decode does.
	readNil bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		messages: map[common.Address][]contract.Message{},
		errs:     map[string]error{},
	}
}

func (f *fakeChat) register(addr common.Address, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, contract.User{Name: name, AccountAddress: addr})
}

func (f *fakeChat) addMessages(friend common.Address, msgs ...contract.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[friend] = append(f.messages[friend], msgs...)
}

func (f *fakeChat) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
	return f.errs[method]
}

func (f *fakeChat) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.calls, method)
}

func (f *fakeChat) nameOf(addr common.Address) (string, bool) {
	for _, u := range f.users {
		if u.AccountAddress == addr {
			return u.Name, true
		}
	}
	return "", false
}

func (f *fakeChat) CheckUserExists(_ context.Context, addr common.Address) (bool, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err := f.record(contract.MethodCheckUserExist); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nameOf(addr)
	return ok, nil
}

func (f *fakeChat) GetUsername(_ context.Context, addr common.Address) (string, error) {
	if err := f.record(contract.MethodGetUsername); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := f.nameOf(addr)
	return name, nil
}

func (f *fakeChat) GetMyFriendList(context.Context) ([]contract.Friend, error) {
	if err := f.record(contract.MethodGetMyFriendList); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.friends), nil
}

func (f *fakeChat) GetAllAppUser(context.Context) ([]contract.User, error) {
	if err := f.record(contract.MethodGetAllAppUser); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.users), nil
}

func (f *fakeChat) ReadMessages(_ context.Context, friend common.Address) ([]contract.Message, error) {
	if err := f.record(contract.MethodReadMessages); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readNil {
		return nil, nil
	}
	return slices.Clone(f.messages[friend]), nil
}

func (f *fakeChat) CreateAccount(_ context.Context, name string) (Pending, error) {
	if err := f.record(contract.MethodCreateAccount); err != nil {
		return nil, err
	}
	return f.pending(func() { f.users = append(f.users, contract.User{Name: name, AccountAddress: me}) }), nil
}

func (f *fakeChat) AddFriend(_ context.Context, friend common.Address, name string) (Pending, error) {
	if err := f.record(contract.MethodAddFriend); err != nil {
		return nil, err
	}
	return f.pending(func() { f.friends = append(f.friends, contract.Friend{Name: name, Pubkey: friend}) }), nil
}

func (f *fakeChat) SendMessage(_ context.Context, friend common.Address, msg string) (Pending, error) {
	if err := f.record(contract.MethodSendMessage); err != nil {
		return nil, err
	}
	return f.pending(func() {
		f.messages[friend] = append(f.messages[friend], contract.Message{Sender: me, Msg: msg, Timestamp: time.Unix(1_700_000_000, 0)})
	}), nil
}

func (f *fakeChat) pending(apply func()) *fakePending {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakePending{chat: f, apply: apply, err: f.waitErr, hash: common.BigToHash(big.NewInt(int64(len(f.calls))))}
}

type fakePending struct {
	chat  *fakeChat
	apply func()
	err   error
	hash  common.Hash
}

func (p *fakePending) Hash() common.Hash { return p.hash }

func (p *fakePending) Wait(_ context.Context, _ time.Duration) (*types.Receipt, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.chat.mu.Lock()
	defer p.chat.mu.Unlock()
	p.apply()
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: p.hash}, nil
}

// fakeConnector hands out a binding to chat for account me on localhost.
type fakeConnector struct {
	mu           sync.Mutex
	chat         *fakeChat
	err          error
	switchErr    error
	connects     int
	signers      []bool
	switched     []int64
	disconnected bool
}

func (c *fakeConnector) Connect(_ context.Context, needSigner bool) (*Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	c.signers = append(c.signers, needSigner)
	if c.err != nil {
		return nil, c.err
	}
	return &Binding{
		Account:  me,
		Network:  network.Network{Name: "localhost", ChainID: 31337},
		Contract: c.chat,
	}, nil
}

func (c *fakeConnector) SwitchChain(_ context.Context, chainID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switched = append(c.switched, chainID)
	return c.switchErr
}

func (c *fakeConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

func (c *fakeConnector) connectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}
