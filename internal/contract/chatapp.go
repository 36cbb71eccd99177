package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

var (
	errReverted = errors.New("transaction reverted")
	errNoOutput = errors.New("empty call result")
)

// Backend is everything a binding needs from a node connection.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Message is one chat message.
type Message struct {
	Sender    common.Address `json:"sender"`
	Msg       string         `json:"msg"`
	Timestamp time.Time      `json:"timestamp"`
}

// Friend is an entry of the caller's friend list.
type Friend struct {
	Name   string         `json:"name"`
	Pubkey common.Address `json:"pubkey"`
}

// User is a registered chat user.
type User struct {
	Name           string         `json:"name"`
	AccountAddress common.Address `json:"account_address"`
}

// Field order mirrors the ABI tuples; abi.ConvertType copies positionally.
type rawMessage struct {
	Sender    common.Address
	Timestamp *big.Int
	Msg       string
}

type rawFriend struct {
	Pubkey common.Address
	Name   string
}

type rawUser struct {
	Name           string
	AccountAddress common.Address
}

// ChatApp is a handle on one deployed ChatApp contract. It is built per action
// and never shared: the signer may change between actions.
type ChatApp struct {
	address  common.Address
	from     common.Address
	contract *bind.BoundContract
	backend  Backend
	signer   *bind.TransactOpts
	log      config.LogWriter
	metrics  *metrics.Metrics
}

// Option customizes a binding.
type Option func(*ChatApp)

// WithLogger sets the logger.
func WithLogger(l config.LogWriter) Option {
	return func(c *ChatApp) { c.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ChatApp) { c.metrics = m }
}

// Bind verifies that code is deployed at address and returns a binding.
// from is the connected account, used as msg.sender for view calls that depend
// on it. A nil signer yields a read-only binding.
func Bind(ctx context.Context, backend Backend, address, from common.Address, signer *bind.TransactOpts, opts ...Option) (*ChatApp, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}

	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrNetworkError, err)
	}
	if len(code) == 0 {
		return nil, chaterr.WithDetails(chaterr.ErrContractNotDeployed, map[string]string{
			"address": address.Hex(),
		})
	}

	c := &ChatApp{
		address:  address,
		from:     from,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
		backend:  backend,
		signer:   signer,
		log:      config.NullLogger(),
		metrics:  metrics.Global,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Address returns the bound contract address.
func (c *ChatApp) Address() common.Address {
	return c.address
}

// ReadOnly reports whether the binding lacks a signer.
func (c *ChatApp) ReadOnly() bool {
	return c.signer == nil
}

// CheckUserExists reports whether addr has created a profile.
func (c *ChatApp) CheckUserExists(ctx context.Context, addr common.Address) (bool, error) {
	out, err := c.call(ctx, MethodCheckUserExist, addr)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// GetUsername returns the profile name of addr.
func (c *ChatApp) GetUsername(ctx context.Context, addr common.Address) (string, error) {
	out, err := c.call(ctx, MethodGetUsername, addr)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// GetMyFriendList returns the caller's friends in contract order.
func (c *ChatApp) GetMyFriendList(ctx context.Context) ([]Friend, error) {
	out, err := c.call(ctx, MethodGetMyFriendList)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]rawFriend)).(*[]rawFriend)
	friends := make([]Friend, 0, len(raw))
	for _, f := range raw {
		friends = append(friends, Friend{Name: f.Name, Pubkey: f.Pubkey})
	}
	return friends, nil
}

// GetAllAppUser returns every registered user in contract order.
func (c *ChatApp) GetAllAppUser(ctx context.Context) ([]User, error) {
	out, err := c.call(ctx, MethodGetAllAppUser)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]rawUser)).(*[]rawUser)
	users := make([]User, 0, len(raw))
	for _, u := range raw {
		users = append(users, User{Name: u.Name, AccountAddress: u.AccountAddress})
	}
	return users, nil
}

// ReadMessages returns the conversation between the caller and friend in ledger order.
func (c *ChatApp) ReadMessages(ctx context.Context, friend common.Address) ([]Message, error) {
	out, err := c.call(ctx, MethodReadMessages, friend)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]rawMessage)).(*[]rawMessage)
	msgs := make([]Message, 0, len(raw))
	for _, m := range raw {
		var ts time.Time
		if m.Timestamp != nil && m.Timestamp.IsInt64() {
			ts = time.Unix(m.Timestamp.Int64(), 0)
		}
		msgs = append(msgs, Message{Sender: m.Sender, Msg: m.Msg, Timestamp: ts})
	}
	return msgs, nil
}

// CreateAccount submits a createAccount transaction for the signer.
func (c *ChatApp) CreateAccount(ctx context.Context, name string) (*PendingTx, error) {
	return c.transact(ctx, MethodCreateAccount, name)
}

// AddFriend submits an addFriend transaction.
func (c *ChatApp) AddFriend(ctx context.Context, friend common.Address, name string) (*PendingTx, error) {
	return c.transact(ctx, MethodAddFriend, friend, name)
}

// SendMessage submits a sendMessage transaction.
func (c *ChatApp) SendMessage(ctx context.Context, friend common.Address, msg string) (*PendingTx, error) {
	return c.transact(ctx, MethodSendMessage, friend, msg)
}

func (c *ChatApp) call(ctx context.Context, method string, params ...any) ([]any, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx, From: c.from}
	err := c.contract.Call(opts, &out, method, params...)
	if err == nil && len(out) == 0 {
		err = errNoOutput
	}
	c.metrics.RecordContractRead(err)
	if err != nil {
		c.log.Error("%s call failed: %v", method, err)
		return nil, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrContractCallFailed, err), map[string]string{
			"method": method,
		})
	}
	c.log.Debug("%s call ok", method)
	return out, nil
}

func (c *ChatApp) transact(ctx context.Context, method string, params ...any) (*PendingTx, error) {
	if c.signer == nil {
		return nil, chaterr.WithDetails(chaterr.ErrReadOnlyBinding, map[string]string{"method": method})
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		c.log.Error("%s submit failed: %v", method, err)
		return nil, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrTransactionFailed, err), map[string]string{
			"method": method,
			"stage":  "submit",
		})
	}
	c.log.Debug("%s submitted: %s", method, tx.Hash().Hex())
	return newPendingTx(method, tx, c.backend, c.metrics), nil
}

// String implements fmt.Stringer.
func (c *ChatApp) String() string {
	mode := "read-write"
	if c.ReadOnly() {
		mode = "read-only"
	}
	return fmt.Sprintf("ChatApp(%s, %s)", c.address.Hex(), mode)
}
