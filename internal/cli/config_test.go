package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chatbuddy/internal/config"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

func TestGetConfigValue(t *testing.T) {
	testCfg := config.Defaults()
	testCfg.Home = "/test/home"
	testCfg.Network = config.NetworkLocalhost
	testCfg.Output.DefaultFormat = "json"
	testCfg.Output.Verbose = true
	testCfg.Output.Color = "always"
	testCfg.Logging.Level = "debug"
	testCfg.Logging.File = "/var/log/chatbuddy.log"
	testCfg.Networks.Holesky.RPC = "https://holesky.example.org"
	testCfg.Tx.FinalizeTimeoutSeconds = 90
	testCfg.RPC.RatePerSecond = 2.5
	testCfg.RPC.Burst = 4
	testCfg.RPC.MaxAttempts = 6

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "home", path: "home", want: "/test/home"},
		{name: "network", path: "network", want: "localhost"},
		{name: "unknown single key", path: "unknown", wantErr: true},

		{name: "wallet.key_source", path: "wallet.key_source", want: testCfg.Wallet.KeySource},
		{name: "wallet.key_file", path: "wallet.key_file", want: config.DefaultKeyFile},
		{name: "wallet.keyring_user", path: "wallet.keyring_user", want: testCfg.Wallet.KeyringUser},
		{name: "wallet.memory_lock", path: "wallet.memory_lock", want: "true"},
		{name: "wallet.unknown", path: "wallet.unknown", wantErr: true},

		{name: "tx.finalize_timeout_seconds", path: "tx.finalize_timeout_seconds", want: "90"},
		{name: "tx.unknown", path: "tx.gas", wantErr: true},

		{name: "rpc.rate_per_second", path: "rpc.rate_per_second", want: "2.5"},
		{name: "rpc.burst", path: "rpc.burst", want: "4"},
		{name: "rpc.max_attempts", path: "rpc.max_attempts", want: "6"},
		{name: "rpc.unknown", path: "rpc.unknown", wantErr: true},

		{name: "output.default_format", path: "output.default_format", want: "json"},
		{name: "output.verbose", path: "output.verbose", want: "true"},
		{name: "output.color", path: "output.color", want: "always"},
		{name: "output.unknown", path: "output.unknown", wantErr: true},

		{name: "logging.level", path: "logging.level", want: "debug"},
		{name: "logging.file", path: "logging.file", want: "/var/log/chatbuddy.log"},
		{name: "logging.unknown", path: "logging.unknown", wantErr: true},

		{name: "networks.holesky.rpc", path: "networks.holesky.rpc", want: "https://holesky.example.org"},
		{name: "networks.holesky.chain_id", path: "networks.holesky.chain_id", want: "17000"},
		{name: "networks.holesky.contract_address", path: "networks.holesky.contract_address", want: config.DefaultHoleskyContract},
		{name: "networks.localhost.chain_id", path: "networks.localhost.chain_id", want: "31337"},
		{name: "networks.localhost.deployment_file", path: "networks.localhost.deployment_file", want: config.DefaultLocalhostArtifact},
		{name: "networks.localhost.unknown", path: "networks.localhost.unknown", wantErr: true},
		{name: "networks.mainnet.rpc", path: "networks.mainnet.rpc", wantErr: true},

		{name: "unknown.key", path: "unknown.key", wantErr: true},
		{name: "unknown.section.key", path: "unknown.section.key", wantErr: true},
		{name: "too many parts", path: "a.b.c.d", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := getConfigValue(testCfg, tc.path)
			if tc.wantErr {
				require.ErrorIs(t, err, chaterr.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   string
		verify  func(*testing.T, *config.Config)
		wantErr error
	}{
		{
			name: "home", path: "home", value: "/new/home",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "/new/home", c.Home) },
		},
		{
			name: "network localhost", path: "network", value: "localhost",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "localhost", c.Network) },
		},
		{name: "network unsupported", path: "network", value: "mainnet", wantErr: chaterr.ErrInvalidInput},
		{
			name: "wallet.key_source", path: "wallet.key_source", value: "keyring",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "keyring", c.Wallet.KeySource) },
		},
		{name: "wallet.key_source invalid", path: "wallet.key_source", value: "ledger", wantErr: chaterr.ErrInvalidInput},
		{
			name: "wallet.key_file", path: "wallet.key_file", value: "keys/main.age",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "keys/main.age", c.Wallet.KeyFile) },
		},
		{name: "wallet.keyring_user empty", path: "wallet.keyring_user", value: "", wantErr: chaterr.ErrInvalidInput},
		{
			name: "wallet.memory_lock", path: "wallet.memory_lock", value: "false",
			verify: func(t *testing.T, c *config.Config) { assert.False(t, c.Wallet.MemoryLock) },
		},
		{
			name: "tx.finalize_timeout_seconds", path: "tx.finalize_timeout_seconds", value: "30",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, 30, c.Tx.FinalizeTimeoutSeconds) },
		},
		{name: "tx.finalize_timeout_seconds zero", path: "tx.finalize_timeout_seconds", value: "0", wantErr: chaterr.ErrInvalidInput},
		{name: "tx.finalize_timeout_seconds text", path: "tx.finalize_timeout_seconds", value: "soon", wantErr: chaterr.ErrInvalidInput},
		{
			name: "rpc.rate_per_second zero disables", path: "rpc.rate_per_second", value: "0",
			verify: func(t *testing.T, c *config.Config) { assert.InDelta(t, 0.0, c.RPC.RatePerSecond, 0.0001) },
		},
		{name: "rpc.rate_per_second negative", path: "rpc.rate_per_second", value: "-1", wantErr: chaterr.ErrInvalidInput},
		{
			name: "rpc.burst", path: "rpc.burst", value: "8",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, 8, c.RPC.Burst) },
		},
		{
			name: "rpc.max_attempts", path: "rpc.max_attempts", value: "2",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, 2, c.RPC.MaxAttempts) },
		},
		{
			name: "output.default_format", path: "output.default_format", value: "json",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "json", c.Output.DefaultFormat) },
		},
		{name: "output.default_format yaml", path: "output.default_format", value: "yaml", wantErr: chaterr.ErrInvalidInput},
		{
			name: "output.color", path: "output.color", value: "never",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "never", c.Output.Color) },
		},
		{name: "output.color invalid", path: "output.color", value: "rainbow", wantErr: chaterr.ErrInvalidInput},
		{
			name: "logging.level", path: "logging.level", value: "off",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "off", c.Logging.Level) },
		},
		{name: "logging.level invalid", path: "logging.level", value: "trace", wantErr: chaterr.ErrInvalidInput},
		{
			name: "networks.holesky.rpc", path: "networks.holesky.rpc", value: "https://holesky.example.org",
			verify: func(t *testing.T, c *config.Config) {
				assert.Equal(t, "https://holesky.example.org", c.Networks.Holesky.RPC)
			},
		},
		{
			name: "networks.localhost.rpc loopback http", path: "networks.localhost.rpc", value: "http://127.0.0.1:9545",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "http://127.0.0.1:9545", c.Networks.Localhost.RPC) },
		},
		{name: "networks.holesky.rpc plain http", path: "networks.holesky.rpc", value: "http://holesky.example.org", wantErr: chaterr.ErrInvalidInput},
		{name: "networks.holesky.chain_id fixed", path: "networks.holesky.chain_id", value: "1", wantErr: chaterr.ErrInvalidInput},
		{
			name: "networks.localhost.contract_address", path: "networks.localhost.contract_address",
			value: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			verify: func(t *testing.T, c *config.Config) {
				assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", c.Networks.Localhost.ContractAddress)
			},
		},
		{
			name: "networks.localhost.deployment_file", path: "networks.localhost.deployment_file", value: "/srv/ChatApp.json",
			verify: func(t *testing.T, c *config.Config) { assert.Equal(t, "/srv/ChatApp.json", c.Networks.Localhost.DeploymentFile) },
		},
		{name: "unknown key", path: "output.unknown", value: "x", wantErr: chaterr.ErrConfigInvalid},
		{name: "unknown network", path: "networks.mainnet.rpc", value: "https://x.org", wantErr: chaterr.ErrConfigInvalid},
		{name: "too many parts", path: "a.b.c.d", value: "x", wantErr: chaterr.ErrConfigInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Defaults()
			err := setConfigValue(c, tc.path, tc.value)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.verify(t, c)
		})
	}
}

func TestDisplayConfigText(t *testing.T) {
	testCfg := config.Defaults()
	testCfg.Home = "/test/chatbuddy"
	testCfg.Networks.Holesky.RPC = "  https://holesky.example.org\n"
	testCfg.Networks.Localhost.RPC = ""

	buf := new(bytes.Buffer)
	require.NoError(t, displayConfigText(buf, newConfigView(testCfg)))
	out := buf.String()

	assert.Contains(t, out, "Configuration:")
	assert.Contains(t, out, "Home: /test/chatbuddy")
	assert.Contains(t, out, "File: "+config.Path("/test/chatbuddy"))
	assert.Contains(t, out, "holesky (chain 17000):")
	assert.Contains(t, out, "rpc: https://holesky.example.org\n")
	assert.Contains(t, out, "contract_address: "+config.DefaultHoleskyContract)
	assert.Contains(t, out, "localhost (chain 31337):")
	assert.Contains(t, out, "rpc: (not configured)")
	assert.Contains(t, out, "deployment_file: "+config.DefaultLocalhostArtifact)
	assert.Contains(t, out, "finalize_timeout_seconds:")
	assert.Contains(t, out, "key_source:")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, aliceAddr)

	stdout := env.mustRun("config", "path")
	assert.Equal(t, config.Path(env.home)+"\n", stdout)

	stdout = env.mustRun("config", "init")
	assert.Contains(t, stdout, "Configuration initialized at "+config.Path(env.home))
	_, err := os.Stat(config.Path(env.home))
	require.NoError(t, err)

	_, _, err = env.run("config", "init")
	require.ErrorIs(t, err, chaterr.ErrGeneral)
	assert.Contains(t, chaterr.Suggestion(err), "--force")

	env.mustRun("config", "init", "--force")

	stdout = env.mustRun("config", "set", "network", "localhost")
	assert.Equal(t, "Set network = localhost\n", stdout)
	stdout = env.mustRun("config", "get", "network")
	assert.Equal(t, "localhost\n", stdout)

	saved, err := config.Load(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, config.NetworkLocalhost, saved.Network)
}

func TestConfigGet_UnknownPath(t *testing.T) {
	env := newTestEnv(t, aliceAddr)

	_, _, err := env.run("config", "get", "nonexistent")
	require.ErrorIs(t, err, chaterr.ErrConfigInvalid)
	assert.Contains(t, chaterr.Suggestion(err), "'nonexistent' not found")
}

func TestConfigSet_InvalidValueLeavesFileAlone(t *testing.T) {
	env := newTestEnv(t, aliceAddr)
	env.mustRun("config", "init")

	_, _, err := env.run("config", "set", "output.default_format", "yaml")
	require.ErrorIs(t, err, chaterr.ErrInvalidInput)

	saved, err := config.Load(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults().Output.DefaultFormat, saved.Output.DefaultFormat)
}

func TestConfigSet_EnvironmentDoesNotLeak(t *testing.T) {
	env := newTestEnv(t, aliceAddr)
	t.Setenv(config.EnvLocalRPC, "http://127.0.0.1:7545")

	// No config file yet: set falls back to defaults.
	env.mustRun("config", "set", "logging.level", "off")

	saved, err := config.Load(config.Path(env.home))
	require.NoError(t, err)
	assert.Equal(t, "off", saved.Logging.Level)
	assert.Equal(t, config.DefaultLocalhostRPCURL, saved.Networks.Localhost.RPC)
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t, aliceAddr)

	stdout := env.mustRun("config", "show", "-o", "text")
	assert.Contains(t, stdout, "Configuration:")
	assert.Contains(t, stdout, "Home: "+env.home)

	stdout = env.mustRun("config", "show", "-o", "json", "--network", "localhost")
	var view configView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, env.home, view.Home)
	assert.Equal(t, config.NetworkLocalhost, view.Network)
	assert.Equal(t, int64(17000), view.Networks[config.NetworkHolesky].ChainID)
	assert.Equal(t, config.DefaultLocalhostArtifact, view.Networks[config.NetworkLocalhost].DeploymentFile)
}
