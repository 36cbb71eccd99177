package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/metrics"
	"github.com/mrz1836/chatbuddy/internal/network"
	"github.com/mrz1836/chatbuddy/internal/output"
	"github.com/mrz1836/chatbuddy/internal/session"
	"github.com/mrz1836/chatbuddy/internal/wallet"
)

type cmdContextKey struct{}

// Test seams.
//
//nolint:gochecknoglobals // Replaced in tests
var (
	newKeyring   = func() wallet.Keyring { return wallet.NewOSKeyring() }
	newConnector = func(cc *CommandContext) session.Connector {
		return session.NewChainConnector(cc.Wallet(), cc.Resolver, cc.Logger.Named("contract"), cc.Metrics)
	}
)

// CommandContext holds the dependencies of one command invocation. The
// wallet and chat session are built on first use.
type CommandContext struct {
	Config   *config.Config
	Logger   *config.Logger
	Fmt      *output.Formatter
	Metrics  *metrics.Metrics
	Resolver *network.Resolver
	Keyring  wallet.Keyring

	walletOnce sync.Once
	wallet     *wallet.Session
	chatOnce   sync.Once
	chat       *session.Session
}

// newCommandContext creates a context with the given dependencies.
func newCommandContext(c *config.Config, log *config.Logger, f *output.Formatter) *CommandContext {
	return &CommandContext{
		Config:   c,
		Logger:   log,
		Fmt:      f,
		Metrics:  metrics.Global,
		Resolver: network.NewResolver(c, ""),
		Keyring:  newKeyring(),
	}
}

// Wallet returns the wallet session.
func (c *CommandContext) Wallet() *wallet.Session {
	c.walletOnce.Do(func() {
		c.wallet = wallet.NewSession(c.providerFactory(), c.Config.ConnectionCachePath(),
			wallet.WithSessionLogger(c.Logger.Named("wallet")),
			wallet.WithSessionMetrics(c.Metrics),
			wallet.WithSourceName(c.Config.Wallet.KeySource),
		)
	})
	return c.wallet
}

// Chat returns the chat session.
func (c *CommandContext) Chat() *session.Session {
	c.chatOnce.Do(func() {
		c.chat = session.New(newConnector(c),
			session.WithFinalizeTimeout(c.Config.FinalizeTimeout()),
			session.WithLogger(c.Logger.Named("session")),
			session.WithMetrics(c.Metrics),
		)
	})
	return c.chat
}

// KeySources returns the key sources the configuration allows, prompting on
// the terminal for the key file password.
func (c *CommandContext) KeySources() []wallet.KeySource {
	return wallet.SourcesFor(c.Config, c.Keyring, promptPasswordFn)
}

func (c *CommandContext) providerFactory() wallet.ProviderFactory {
	return func() (wallet.Provider, error) {
		src, err := wallet.SelectSource(c.KeySources())
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("key source: %s", src.Name())

		p, err := wallet.NewKeyProvider(c.Config, c.Resolver, src,
			wallet.WithProviderLogger(c.Logger.Named("provider")),
			wallet.WithProviderMetrics(c.Metrics),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Close locks the wallet. The connection cache is kept.
func (c *CommandContext) Close() {
	if c.wallet != nil {
		c.wallet.Close()
	}
}

func setCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// getCmdContext returns the context stored by the root pre-run hook.
func getCmdContext(cmd *cobra.Command) *CommandContext {
	if cmd.Context() == nil {
		return nil
	}
	cc, _ := cmd.Context().Value(cmdContextKey{}).(*CommandContext)
	return cc
}
