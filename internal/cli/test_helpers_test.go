package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/session"
	"github.com/mrz1836/chatbuddy/internal/session/sessiontest"
	"github.com/mrz1836/chatbuddy/internal/wallet"
)

// Hardhat development accounts.
var (
	aliceAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bobAddr   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	carolAddr = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

// memKeyring is an in-memory wallet.Keyring.
type memKeyring struct {
	mu      sync.Mutex
	secrets map[string]string
}

func newMemKeyring() *memKeyring {
	return &memKeyring{secrets: map[string]string{}}
}

func (m *memKeyring) Set(service, user, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[service+"/"+user] = secret
	return nil
}

func (m *memKeyring) Get(service, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[service+"/"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return s, nil
}

func (m *memKeyring) Delete(service, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := service + "/" + user
	if _, ok := m.secrets[key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m.secrets, key)
	return nil
}

// testEnv runs commands against an in-memory ledger as one account.
type testEnv struct {
	t       *testing.T
	home    string
	ledger  *sessiontest.Ledger
	conn    *sessiontest.Connector
	keyring *memKeyring
}

// newTestEnv swaps every seam that would reach a node, the OS keychain or the
// terminal. NOT parallel-safe: the command tree is package state.
func newTestEnv(t *testing.T, account common.Address) *testEnv {
	t.Helper()

	for _, name := range []string{
		config.EnvHome, config.EnvNetwork, config.EnvKeySource, config.EnvOutputFormat,
		config.EnvVerbose, config.EnvPrivateKey, config.EnvPrivateKeyAlt, config.EnvLogLevel,
	} {
		t.Setenv(name, "")
	}

	env := &testEnv{
		t:       t,
		home:    t.TempDir(),
		ledger:  sessiontest.NewLedger(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)),
		keyring: newMemKeyring(),
	}
	env.conn = env.ledger.Connector(account)

	origConnector, origKeyring, origProbe := newConnector, newKeyring, probeKeyringFn
	origPW, origNewPW, origConfirm, origSecret, origStdin := promptPasswordFn, promptNewPasswordFn, promptConfirmFn, promptSecretFn, stdinReader
	t.Cleanup(func() {
		newConnector, newKeyring, probeKeyringFn = origConnector, origKeyring, origProbe
		promptPasswordFn, promptNewPasswordFn, promptConfirmFn, promptSecretFn, stdinReader = origPW, origNewPW, origConfirm, origSecret, origStdin
		resetFlags()
	})

	newConnector = func(*CommandContext) session.Connector { return env.conn }
	newKeyring = func() wallet.Keyring { return env.keyring }
	probeKeyringFn = func() bool { return true }
	promptPasswordFn = func(string) (string, error) {
		t.Fatal("unexpected password prompt")
		return "", nil
	}
	promptSecretFn = promptPasswordFn
	promptNewPasswordFn = func() (string, error) { return "correct horse battery", nil }
	promptConfirmFn = func(string) bool { return false }
	stdinReader = strings.NewReader("")

	resetFlags()
	return env
}

// run executes the root command with args and returns stdout and stderr.
func (e *testEnv) run(args ...string) (string, string, error) {
	e.t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--home", e.home}, args...))
	rootCmd.SetContext(context.Background())
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	stdout, stderr, err := e.run(args...)
	require.NoError(e.t, err, "stderr: %s", stderr)
	return stdout
}

// resetFlags restores every flag in the tree to its default so one
// invocation cannot leak into the next.
func resetFlags() {
	walkCommands(rootCmd, func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	})
}

// registered seeds the ledger with alice, bob and carol; alice and bob are friends.
func (e *testEnv) registered() {
	e.ledger.Register(aliceAddr, "alice")
	e.ledger.Register(bobAddr, "bob")
	e.ledger.Register(carolAddr, "carol")
	e.ledger.Befriend(aliceAddr, bobAddr)
}
