package session

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	"github.com/mrz1836/chatbuddy/internal/network"
	"github.com/mrz1836/chatbuddy/internal/wallet"
)

// Pending is a submitted transaction awaiting finalization.
type Pending interface {
	Hash() common.Hash
	Wait(ctx context.Context, timeout time.Duration) (*types.Receipt, error)
}

// ChatContract is the contract surface the actions use.
type ChatContract interface {
	CheckUserExists(ctx context.Context, addr common.Address) (bool, error)
	GetUsername(ctx context.Context, addr common.Address) (string, error)
	GetMyFriendList(ctx context.Context) ([]contract.Friend, error)
	GetAllAppUser(ctx context.Context) ([]contract.User, error)
	ReadMessages(ctx context.Context, friend common.Address) ([]contract.Message, error)
	CreateAccount(ctx context.Context, name string) (Pending, error)
	AddFriend(ctx context.Context, friend common.Address, name string) (Pending, error)
	SendMessage(ctx context.Context, friend common.Address, msg string) (Pending, error)
}

// Binding is what one action works against.
type Binding struct {
	Account  common.Address
	Network  network.Network
	Contract ChatContract
}

// Connector produces a fresh binding for each action.
type Connector interface {
	// Connect runs wallet, chain check, address resolution and contract
	// binding in that order. needSigner requests a binding that can submit
	// transactions.
	Connect(ctx context.Context, needSigner bool) (*Binding, error)
	// SwitchChain asks the wallet to move to chainID.
	SwitchChain(ctx context.Context, chainID int64) error
	// Disconnect drops the cached wallet connection.
	Disconnect() error
}

// ChainConnector connects through a wallet session and a network resolver.
type ChainConnector struct {
	wallet   *wallet.Session
	resolver *network.Resolver
	log      config.LogWriter
	metrics  *metrics.Metrics
}

// NewChainConnector creates a connector.
func NewChainConnector(w *wallet.Session, r *network.Resolver, log config.LogWriter, m *metrics.Metrics) *ChainConnector {
	if log == nil {
		log = config.NullLogger()
	}
	if m == nil {
		m = metrics.Global
	}
	return &ChainConnector{wallet: w, resolver: r, log: log, metrics: m}
}

// Connect implements Connector. The chain check happens before any contract
// lookup, so an unsupported chain never reaches the node with a contract call.
func (c *ChainConnector) Connect(ctx context.Context, needSigner bool) (*Binding, error) {
	conn, err := c.wallet.EnsureConnected(ctx)
	if err != nil {
		return nil, err
	}

	chainID, err := c.wallet.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	net, err := c.resolver.Check(chainID)
	if err != nil {
		return nil, err
	}
	address, err := c.resolver.Resolve(ctx, chainID)
	if err != nil {
		return nil, err
	}

	backend, err := conn.Provider.Backend(ctx)
	if err != nil {
		return nil, err
	}
	var signer *bind.TransactOpts
	if needSigner {
		if signer, err = conn.Provider.Transactor(ctx, conn.Account); err != nil {
			return nil, err
		}
	}

	chat, err := contract.Bind(ctx, backend, address, conn.Account, signer,
		contract.WithLogger(c.log), contract.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}
	c.log.Debug("bound %s on %s for %s", chat, net.Name, conn.Account.Hex())

	return &Binding{Account: conn.Account, Network: net, Contract: chatApp{chat}}, nil
}

// SwitchChain implements Connector.
func (c *ChainConnector) SwitchChain(ctx context.Context, chainID int64) error {
	return c.wallet.SwitchChain(ctx, chainID)
}

// Disconnect implements Connector.
func (c *ChainConnector) Disconnect() error {
	return c.wallet.Reset()
}

// chatApp adapts *contract.ChatApp to ChatContract.
type chatApp struct {
	*contract.ChatApp
}

func (a chatApp) CreateAccount(ctx context.Context, name string) (Pending, error) {
	return pending(a.ChatApp.CreateAccount(ctx, name))
}

func (a chatApp) AddFriend(ctx context.Context, friend common.Address, name string) (Pending, error) {
	return pending(a.ChatApp.AddFriend(ctx, friend, name))
}

func (a chatApp) SendMessage(ctx context.Context, friend common.Address, msg string) (Pending, error) {
	return pending(a.ChatApp.SendMessage(ctx, friend, msg))
}

// pending avoids returning a typed nil inside the interface.
func pending(p *contract.PendingTx, err error) (Pending, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
