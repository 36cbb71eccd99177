package wallet

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/fileutil"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// Connection is the cached wallet handle.
type Connection struct {
	Provider Provider
	Account  common.Address
}

// cacheEntry is the on-disk record of the last approved account. It lets a
// later process reconnect without prompting.
type cacheEntry struct {
	Account     string    `json:"account"`
	Source      string    `json:"source,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ProviderFactory builds a fresh provider after a reset.
type ProviderFactory func() (Provider, error)

// Session owns the process-wide wallet connection. All mutation happens under
// one mutex; EnsureConnected and Reset are idempotent.
type Session struct {
	factory   ProviderFactory
	cachePath string
	source    string
	log       config.LogWriter
	metrics   *metrics.Metrics

	mu       sync.Mutex
	provider Provider
	conn     *Connection
	chainID  int64
	sub      event.Subscription
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger.
func WithSessionLogger(l config.LogWriter) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithSessionMetrics sets the metrics sink.
func WithSessionMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithSourceName records the key source name in the connection cache.
func WithSourceName(name string) SessionOption {
	return func(s *Session) { s.source = name }
}

// NewSession creates a disconnected session. cachePath may be empty to disable
// the connection cache.
func NewSession(factory ProviderFactory, cachePath string, opts ...SessionOption) *Session {
	s := &Session{
		factory:   factory,
		cachePath: cachePath,
		log:       config.NullLogger(),
		metrics:   metrics.Global,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureConnected returns the cached connection, creating it on first use. When
// the connection cache names an account the provider still exposes, it
// reconnects without prompting; otherwise it requests accounts.
func (s *Session) EnsureConnected(ctx context.Context) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.metrics.RecordConnection(true)
		return s.conn, nil
	}

	if s.provider == nil {
		p, err := s.factory()
		if err != nil {
			return nil, asWalletError(err)
		}
		s.provider = p
		ch := make(chan int64)
		s.sub = p.SubscribeChainChanged(ch)
		go s.follow(s.sub, ch)
	}

	account, reused, err := s.connectLocked(ctx)
	if err != nil {
		return nil, err
	}

	s.conn = &Connection{Provider: s.provider, Account: account}
	s.metrics.RecordConnection(reused)
	s.saveCache(account)
	s.log.Debug("wallet connected: %s (reused=%t)", account.Hex(), reused)
	return s.conn, nil
}

func (s *Session) connectLocked(ctx context.Context) (common.Address, bool, error) {
	if cached, ok := s.loadCache(); ok {
		accounts, err := s.provider.Accounts(ctx)
		if err == nil && slices.Contains(accounts, cached) {
			return cached, true, nil
		}
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, false, asWalletError(err)
	}
	if len(accounts) == 0 {
		return common.Address{}, false, chaterr.ErrWalletUnavailable
	}
	return accounts[0], false, nil
}

// CachedAccount returns the account recorded by the last successful
// connection, without building a provider.
func (s *Session) CachedAccount() (common.Address, bool) {
	return s.loadCache()
}

// Connected reports whether a connection is cached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ChainID returns the wallet's chain id, cached until the chain changes.
func (s *Session) ChainID(ctx context.Context) (int64, error) {
	conn, err := s.EnsureConnected(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	cached := s.chainID
	s.mu.Unlock()
	if cached != 0 {
		return cached, nil
	}

	id, err := conn.Provider.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.chainID = id
	s.mu.Unlock()
	return id, nil
}

// SwitchChain asks the provider to move to chainID.
func (s *Session) SwitchChain(ctx context.Context, chainID int64) error {
	conn, err := s.EnsureConnected(ctx)
	if err != nil {
		return err
	}
	if err := conn.Provider.SwitchChain(ctx, chainID); err != nil {
		return err
	}
	s.mu.Lock()
	s.chainID = 0
	s.mu.Unlock()
	return nil
}

// Watch polls the provider's chain id every interval until ctx is done. On a
// change the cached id is replaced and onChange, if set, is called.
func (s *Session) Watch(ctx context.Context, interval time.Duration, onChange func(chainID int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		p, last := s.provider, s.chainID
		s.mu.Unlock()
		if p == nil {
			continue
		}

		id, err := p.ChainID(ctx)
		if err != nil {
			s.log.Debug("chain poll failed: %v", err)
			continue
		}
		if id == last {
			continue
		}

		s.mu.Lock()
		s.chainID = id
		s.mu.Unlock()
		if last != 0 {
			s.log.Debug("chain changed: %d -> %d", last, id)
			if onChange != nil {
				onChange(id)
			}
		}
	}
}

// follow drops the cached chain id whenever the provider reports a switch.
func (s *Session) follow(sub event.Subscription, ch <-chan int64) {
	for {
		select {
		case id := <-ch:
			s.mu.Lock()
			s.chainID = 0
			s.mu.Unlock()
			s.log.Debug("provider switched to chain %d", id)
		case <-sub.Err():
			return
		}
	}
}

// Close drops the connection and locks the wallet but keeps the cache file,
// so the next process reconnects without prompting.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Reset closes the provider, drops the connection and deletes the cache file.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	if s.cachePath == "" {
		return nil
	}
	return fileutil.RemoveIfExists(s.cachePath)
}

func (s *Session) closeLocked() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	if s.provider != nil {
		s.provider.Close()
		s.provider = nil
	}
	s.conn = nil
	s.chainID = 0
}

func (s *Session) loadCache() (common.Address, bool) {
	if s.cachePath == "" {
		return common.Address{}, false
	}
	var entry cacheEntry
	if err := fileutil.ReadJSON(s.cachePath, &entry); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("ignoring connection cache: %v", err)
		}
		return common.Address{}, false
	}
	if !common.IsHexAddress(entry.Account) {
		return common.Address{}, false
	}
	return common.HexToAddress(entry.Account), true
}

func (s *Session) saveCache(account common.Address) {
	if s.cachePath == "" {
		return
	}
	entry := cacheEntry{Account: account.Hex(), Source: s.source, ConnectedAt: time.Now().UTC()}
	if err := fileutil.WriteJSONAtomic(s.cachePath, entry, 0o600); err != nil {
		s.log.Error("failed to write connection cache: %v", err)
	}
}

// asWalletError keeps structured errors and wraps anything else as
// ErrWalletUnavailable.
func asWalletError(err error) error {
	var ce *chaterr.ChatError
	if errors.As(err, &ce) {
		return err
	}
	return chaterr.WithCause(chaterr.ErrWalletUnavailable, err)
}
