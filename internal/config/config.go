// Package config provides configuration management for chatbuddy.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/chatbuddy/internal/fileutil"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Network  string         `yaml:"network"`
	Networks NetworksConfig `yaml:"networks"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Tx       TxConfig       `yaml:"tx"`
	RPC      RPCConfig      `yaml:"rpc"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworksConfig holds the two supported chat networks.
type NetworksConfig struct {
	Holesky   NetworkConfig `yaml:"holesky"`
	Localhost NetworkConfig `yaml:"localhost"`
}

// NetworkConfig describes how to reach one network and where its ChatApp contract lives.
// Exactly one of ContractAddress or DeploymentFile is normally set.
type NetworkConfig struct {
	RPC             string `yaml:"rpc"`
	ChainID         int64  `yaml:"chain_id"`
	ContractAddress string `yaml:"contract_address,omitempty"`
	DeploymentFile  string `yaml:"deployment_file,omitempty"`
}

// WalletConfig defines where the signing key comes from.
type WalletConfig struct {
	KeySource   string `yaml:"key_source"`
	KeyFile     string `yaml:"key_file"`
	KeyringUser string `yaml:"keyring_user"`
	MemoryLock  bool   `yaml:"memory_lock"`
}

// TxConfig defines transaction handling.
type TxConfig struct {
	FinalizeTimeoutSeconds int `yaml:"finalize_timeout_seconds"`
}

// RPCConfig defines client-side RPC throttling and retry.
type RPCConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	MaxAttempts   int     `yaml:"max_attempts"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the chatbuddy home directory with "~/" expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// ActiveNetwork returns the configured default network name.
func (c *Config) ActiveNetwork() string {
	return c.Network
}

// GetNetwork returns the settings for a network by name.
func (c *Config) GetNetwork(name string) (NetworkConfig, bool) {
	switch strings.ToLower(name) {
	case NetworkHolesky:
		return c.Networks.Holesky, true
	case NetworkLocalhost:
		return c.Networks.Localhost, true
	default:
		return NetworkConfig{}, false
	}
}

// FinalizeTimeout returns how long a mutating action waits for its transaction.
func (c *Config) FinalizeTimeout() time.Duration {
	if c.Tx.FinalizeTimeoutSeconds <= 0 {
		return time.Duration(DefaultFinalizeTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Tx.FinalizeTimeoutSeconds) * time.Second
}

// ConnectionCachePath returns the path of the wallet connection cache.
func (c *Config) ConnectionCachePath() string {
	return filepath.Join(c.GetHome(), "connection.json")
}

// KeyFilePath returns the encrypted key file location. Relative paths live
// under the home directory.
func (c *Config) KeyFilePath() string {
	return c.inHome(c.Wallet.KeyFile)
}

// LogFilePath returns the log file location, empty when file logging is off.
// Relative paths live under the home directory.
func (c *Config) LogFilePath() string {
	if c.Logging.File == "" {
		return ""
	}
	return c.inHome(c.Logging.File)
}

func (c *Config) inHome(p string) string {
	p = ExpandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetHome(), p)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default chatbuddy home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatbuddy"
	}
	return filepath.Join(home, ".chatbuddy")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
