// Package wallet is the signing side of chatbuddy: where the private key comes
// from, how the node connection is made, and the cached connection the rest of
// the client reuses between actions.
package wallet

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"

	"github.com/mrz1836/chatbuddy/internal/chain"
	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/contract"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	"github.com/mrz1836/chatbuddy/internal/network"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// Provider is the wallet boundary: account access, the selected chain and a
// signer for that chain.
type Provider interface {
	// RequestAccounts unlocks the wallet, prompting if needed.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns the unlocked accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// ChainID returns the chain the wallet is currently on.
	ChainID(ctx context.Context) (int64, error)
	// SwitchChain asks the wallet to move to chainID.
	SwitchChain(ctx context.Context, chainID int64) error
	// Backend returns the node connection for the current chain.
	Backend(ctx context.Context) (contract.Backend, error)
	// Transactor returns signing options for account on the current chain.
	Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
	// SubscribeChainChanged delivers the new chain id after every switch.
	// Subscribers must keep draining ch.
	SubscribeChainChanged(ch chan<- int64) event.Subscription
	// Close locks the wallet and drops node connections.
	Close()
}

// DialFunc opens a node connection.
type DialFunc func(ctx context.Context, rawURL string) (RPCClient, error)

// DialEthClient dials with go-ethereum's ethclient.
func DialEthClient(ctx context.Context, rawURL string) (RPCClient, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// KeyProvider is a Provider backed by a local private key and a JSON-RPC node.
type KeyProvider struct {
	resolver *network.Resolver
	source   KeySource
	dial     DialFunc
	limiter  *chain.RateLimiter
	retry    chain.RetryConfig
	metrics  *metrics.Metrics
	log      config.LogWriter

	mu       sync.Mutex
	active   network.Network
	backends map[string]*rpcBackend
	key      *SecureBytes
	account  common.Address
	feed     event.Feed
}

// ProviderOption customizes a KeyProvider.
type ProviderOption func(*KeyProvider)

// WithDialer replaces the node dialer.
func WithDialer(d DialFunc) ProviderOption {
	return func(p *KeyProvider) { p.dial = d }
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l config.LogWriter) ProviderOption {
	return func(p *KeyProvider) { p.log = l }
}

// WithProviderMetrics sets the metrics sink.
func WithProviderMetrics(m *metrics.Metrics) ProviderOption {
	return func(p *KeyProvider) { p.metrics = m }
}

// NewKeyProvider starts on the configured network. It neither unlocks the key
// nor dials the node.
func NewKeyProvider(cfg *config.Config, resolver *network.Resolver, source KeySource, opts ...ProviderOption) (*KeyProvider, error) {
	active, ok := resolver.ByName(cfg.ActiveNetwork())
	if !ok {
		return nil, chaterr.WithDetails(chaterr.ErrConfigInvalid, map[string]string{
			"network": cfg.ActiveNetwork(),
		})
	}

	retry := chain.DefaultRetryConfig()
	if cfg.RPC.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.RPC.MaxAttempts
	}

	p := &KeyProvider{
		resolver: resolver,
		source:   source,
		dial:     DialEthClient,
		limiter:  chain.NewRateLimiter(cfg.RPC.RatePerSecond, cfg.RPC.Burst),
		retry:    retry,
		metrics:  metrics.Global,
		log:      config.NullLogger(),
		active:   active,
		backends: make(map[string]*rpcBackend),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source returns the key source.
func (p *KeyProvider) Source() KeySource {
	return p.source
}

// Network returns the selected network.
func (p *KeyProvider) Network() network.Network {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RequestAccounts implements Provider.
func (p *KeyProvider) RequestAccounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == nil {
		if err := p.unlockLocked(); err != nil {
			return nil, err
		}
	}
	return []common.Address{p.account}, nil
}

// Accounts implements Provider. Non-interactive sources are unlocked silently.
func (p *KeyProvider) Accounts(_ context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == nil && !p.source.Interactive() && p.source.Available() {
		if err := p.unlockLocked(); err != nil {
			return nil, err
		}
	}
	if p.key == nil {
		return nil, nil
	}
	return []common.Address{p.account}, nil
}

func (p *KeyProvider) unlockLocked() error {
	key, err := p.source.Unlock()
	if err != nil {
		return err
	}
	addr, err := AddressOf(key)
	if err != nil {
		key.Destroy()
		return err
	}
	p.key, p.account = key, addr
	p.log.Debug("unlocked %s from %s source", addr.Hex(), p.source.Name())
	return nil
}

// ChainID implements Provider.
func (p *KeyProvider) ChainID(ctx context.Context) (int64, error) {
	b, err := p.backend(ctx)
	if err != nil {
		return 0, err
	}
	id, err := b.ChainID(ctx)
	if err != nil {
		return 0, chaterr.WithCause(chaterr.ErrNetworkError, err)
	}
	if !id.IsInt64() {
		return 0, chaterr.WithDetails(chaterr.ErrUnsupportedNetwork, map[string]string{"chain_id": id.String()})
	}
	return id.Int64(), nil
}

// SwitchChain implements Provider.
func (p *KeyProvider) SwitchChain(_ context.Context, chainID int64) error {
	target, ok := p.resolver.ByChainID(chainID)
	if !ok {
		return chaterr.WithDetails(chaterr.WithCause(chaterr.ErrNetworkSwitch, chaterr.ErrUnsupportedNetwork), map[string]string{
			"chain_id": strconv.FormatInt(chainID, 10),
		})
	}

	p.mu.Lock()
	changed := p.active.Name != target.Name
	p.active = target
	p.mu.Unlock()

	if changed {
		p.log.Debug("switched to %s (%d)", target.Name, target.ChainID)
		p.feed.Send(chainID)
	}
	return nil
}

// Backend implements Provider.
func (p *KeyProvider) Backend(ctx context.Context) (contract.Backend, error) {
	return p.backend(ctx)
}

// backend dials the active network on first use and caches the connection.
func (p *KeyProvider) backend(ctx context.Context) (*rpcBackend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.backends[p.active.Name]; ok {
		return b, nil
	}

	if err := config.ValidateRPCURL(p.active.RPC); err != nil {
		return nil, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrConfigInvalid, err), map[string]string{
			"network": p.active.Name,
		})
	}
	client, err := p.dial(ctx, p.active.RPC)
	if err != nil {
		return nil, chaterr.WithDetails(chaterr.WithCause(chaterr.ErrNetworkError, err), map[string]string{
			"rpc": p.active.RPC,
		})
	}

	b := &rpcBackend{
		client:   client,
		endpoint: p.active.RPC,
		limiter:  p.limiter,
		retry:    p.retry,
		metrics:  p.metrics,
		log:      p.log,
	}
	p.backends[p.active.Name] = b
	p.log.Debug("connected to %s at %s", p.active.Name, p.active.RPC)
	return b, nil
}

// Transactor implements Provider.
func (p *KeyProvider) Transactor(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == nil {
		return nil, chaterr.ErrWalletLocked
	}
	if p.account != account {
		return nil, chaterr.WithDetails(chaterr.ErrWalletLocked, map[string]string{
			"account": account.Hex(),
		})
	}
	priv, err := ToECDSA(p.key)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(priv, big.NewInt(chainID))
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrInvalidKey, err)
	}
	return opts, nil
}

// SubscribeChainChanged implements Provider.
func (p *KeyProvider) SubscribeChainChanged(ch chan<- int64) event.Subscription {
	return p.feed.Subscribe(ch)
}

// Close implements Provider.
func (p *KeyProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		p.key.Destroy()
		p.key = nil
		p.account = common.Address{}
	}
	for name, b := range p.backends {
		b.Close()
		delete(p.backends, name)
	}
}
