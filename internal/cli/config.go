package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/config"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configuration",
	Long:    `View and modify chatbuddy configuration settings.`,
	GroupID: "config",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.chatbuddy/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  chatbuddy config init
  chatbuddy config init --force`,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: the file merged with environment
overrides and global flags.`,
	Example: `  chatbuddy config show
  chatbuddy config show -o json`,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:     "path",
	Short:   "Print the configuration file path",
	Long:    `Print the location of the configuration file for the current home directory.`,
	Example: `  chatbuddy config path`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outln(cmd.OutOrStdout(), config.Path(cfg.Home))
		return nil
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.`,
	Example: `  chatbuddy config get network
  chatbuddy config get networks.localhost.rpc
  chatbuddy config get tx.finalize_timeout_seconds`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.
The configuration file is updated immediately.`,
	Example: `  chatbuddy config set network localhost
  chatbuddy config set networks.holesky.rpc https://holesky.example.org
  chatbuddy config set wallet.key_source keyring`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return chaterr.WithSuggestion(
			chaterr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network: holesky or localhost")
	outln(w, "  - networks.<name>.rpc: RPC endpoint of each network")
	outln(w, "  - networks.localhost.deployment_file: hardhat deployment artifact")
	outln(w, "  - wallet.key_source: auto, env, keyring or file")
	outln(w, "  - logging.level: Log level (off/error/debug)")
	return nil
}

// configView is the JSON shape of config show. The RPC URLs are sanitized.
type configView struct {
	Path     string                `json:"path"`
	Home     string                `json:"home"`
	Network  string                `json:"network"`
	Networks map[string]networkRow `json:"networks"`
	Wallet   config.WalletConfig   `json:"wallet"`
	Tx       config.TxConfig       `json:"tx"`
	RPC      config.RPCConfig      `json:"rpc"`
	Output   config.OutputConfig   `json:"output"`
	Logging  config.LoggingConfig  `json:"logging"`
}

type networkRow struct {
	RPC             string `json:"rpc"`
	ChainID         int64  `json:"chain_id"`
	ContractAddress string `json:"contract_address,omitempty"`
	DeploymentFile  string `json:"deployment_file,omitempty"`
}

func newConfigView(c *config.Config) configView {
	row := func(nc config.NetworkConfig) networkRow {
		return networkRow{
			RPC:             config.SanitizeURL(nc.RPC),
			ChainID:         nc.ChainID,
			ContractAddress: nc.ContractAddress,
			DeploymentFile:  nc.DeploymentFile,
		}
	}
	return configView{
		Path:    config.Path(c.Home),
		Home:    c.Home,
		Network: c.ActiveNetwork(),
		Networks: map[string]networkRow{
			config.NetworkHolesky:   row(c.Networks.Holesky),
			config.NetworkLocalhost: row(c.Networks.Localhost),
		},
		Wallet:  c.Wallet,
		Tx:      c.Tx,
		RPC:     c.RPC,
		Output:  c.Output,
		Logging: c.Logging,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	view := newConfigView(cfg)
	return formatter.Emit(view, func(w io.Writer) error {
		return displayConfigText(w, view)
	})
}

// displayConfigText shows the config in text format.
func displayConfigText(w io.Writer, v configView) error {
	outln(w, "Configuration:")
	outln(w)
	out(w, "  File: %s\n", v.Path)
	out(w, "  Home: %s\n", v.Home)
	out(w, "  Network: %s\n", v.Network)
	outln(w)
	outln(w, "  Networks:")
	for _, name := range []string{config.NetworkHolesky, config.NetworkLocalhost} {
		n := v.Networks[name]
		out(w, "    %s (chain %d):\n", name, n.ChainID)
		out(w, "      rpc: %s\n", orNotConfigured(n.RPC))
		if n.ContractAddress != "" {
			out(w, "      contract_address: %s\n", n.ContractAddress)
		}
		if n.DeploymentFile != "" {
			out(w, "      deployment_file: %s\n", n.DeploymentFile)
		}
	}
	outln(w)
	outln(w, "  Wallet:")
	out(w, "    key_source: %s\n", v.Wallet.KeySource)
	out(w, "    key_file: %s\n", v.Wallet.KeyFile)
	out(w, "    keyring_user: %s\n", v.Wallet.KeyringUser)
	out(w, "    memory_lock: %t\n", v.Wallet.MemoryLock)
	outln(w)
	outln(w, "  Transactions:")
	out(w, "    finalize_timeout_seconds: %d\n", v.Tx.FinalizeTimeoutSeconds)
	outln(w)
	outln(w, "  RPC:")
	out(w, "    rate_per_second: %g\n", v.RPC.RatePerSecond)
	out(w, "    burst: %d\n", v.RPC.Burst)
	out(w, "    max_attempts: %d\n", v.RPC.MaxAttempts)
	outln(w)
	outln(w, "  Output:")
	out(w, "    default_format: %s\n", v.Output.DefaultFormat)
	out(w, "    verbose: %t\n", v.Output.Verbose)
	out(w, "    color: %s\n", v.Output.Color)
	outln(w)
	outln(w, "  Logging:")
	out(w, "    level: %s\n", v.Logging.Level)
	out(w, "    file: %s\n", v.Logging.File)
	return nil
}

func orNotConfigured(s string) string {
	if s == "" {
		return "(not configured)"
	}
	return s
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(cfg, path)
	if err != nil {
		return chaterr.WithSuggestion(err, fmt.Sprintf("configuration path '%s' not found", path))
	}

	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]

	if _, err := getConfigValue(cfg, path); err != nil {
		return chaterr.WithSuggestion(err, fmt.Sprintf("configuration path '%s' not found", path))
	}

	// Environment overrides must not leak into the file.
	configPath := config.Path(cfg.Home)
	currentCfg, err := config.Load(configPath)
	if err != nil {
		currentCfg = config.Defaults()
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return err
	}
	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

func unknownKey(details map[string]string) error {
	return chaterr.WithDetails(chaterr.ErrConfigInvalid, details)
}

func invalidValue(value, valid string) error {
	return chaterr.WithDetails(chaterr.ErrInvalidInput, map[string]string{"value": value, "valid": valid})
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	parts := strings.Split(path, ".")

	switch len(parts) {
	case 1:
		switch parts[0] {
		case "home":
			return c.Home, nil
		case "network":
			return c.ActiveNetwork(), nil
		default:
			return "", unknownKey(map[string]string{"key": parts[0]})
		}
	case 2:
		switch parts[0] {
		case "wallet":
			return getWalletValue(c, parts[1])
		case "tx":
			if parts[1] == "finalize_timeout_seconds" {
				return strconv.Itoa(c.Tx.FinalizeTimeoutSeconds), nil
			}
			return "", unknownKey(map[string]string{"section": "tx", "key": parts[1]})
		case "rpc":
			return getRPCValue(c, parts[1])
		case "output":
			return getOutputValue(c, parts[1])
		case "logging":
			return getLoggingValue(c, parts[1])
		default:
			return "", unknownKey(map[string]string{"section": parts[0]})
		}
	case 3:
		if parts[0] == "networks" {
			return getNetworkValue(c, parts[1], parts[2])
		}
		return "", unknownKey(map[string]string{"section": parts[0]})
	default:
		return "", unknownKey(map[string]string{"path": path})
	}
}

func getWalletValue(c *config.Config, key string) (string, error) {
	switch key {
	case "key_source":
		return c.Wallet.KeySource, nil
	case "key_file":
		return c.Wallet.KeyFile, nil
	case "keyring_user":
		return c.Wallet.KeyringUser, nil
	case "memory_lock":
		return strconv.FormatBool(c.Wallet.MemoryLock), nil
	default:
		return "", unknownKey(map[string]string{"section": "wallet", "key": key})
	}
}

func getRPCValue(c *config.Config, key string) (string, error) {
	switch key {
	case "rate_per_second":
		return strconv.FormatFloat(c.RPC.RatePerSecond, 'g', -1, 64), nil
	case "burst":
		return strconv.Itoa(c.RPC.Burst), nil
	case "max_attempts":
		return strconv.Itoa(c.RPC.MaxAttempts), nil
	default:
		return "", unknownKey(map[string]string{"section": "rpc", "key": key})
	}
}

func getOutputValue(c *config.Config, key string) (string, error) {
	switch key {
	case "default_format":
		return c.Output.DefaultFormat, nil
	case "verbose":
		return strconv.FormatBool(c.Output.Verbose), nil
	case "color":
		return c.Output.Color, nil
	default:
		return "", unknownKey(map[string]string{"section": "output", "key": key})
	}
}

func getLoggingValue(c *config.Config, key string) (string, error) {
	switch key {
	case "level":
		return c.Logging.Level, nil
	case "file":
		return c.Logging.File, nil
	default:
		return "", unknownKey(map[string]string{"section": "logging", "key": key})
	}
}

func networkConfig(c *config.Config, name string) (*config.NetworkConfig, error) {
	switch name {
	case config.NetworkHolesky:
		return &c.Networks.Holesky, nil
	case config.NetworkLocalhost:
		return &c.Networks.Localhost, nil
	default:
		return nil, unknownKey(map[string]string{"network": name})
	}
}

func getNetworkValue(c *config.Config, name, key string) (string, error) {
	nc, err := networkConfig(c, name)
	if err != nil {
		return "", err
	}
	switch key {
	case "rpc":
		return nc.RPC, nil
	case "chain_id":
		return strconv.FormatInt(nc.ChainID, 10), nil
	case "contract_address":
		return nc.ContractAddress, nil
	case "deployment_file":
		return nc.DeploymentFile, nil
	default:
		return "", unknownKey(map[string]string{"section": "networks." + name, "key": key})
	}
}

// setConfigValue sets a value in the config using dot notation.
func setConfigValue(c *config.Config, path, value string) error {
	parts := strings.Split(path, ".")

	switch len(parts) {
	case 1:
		switch parts[0] {
		case "home":
			c.Home = value
			return nil
		case "network":
			if _, ok := c.GetNetwork(value); !ok {
				return invalidValue(value, "holesky or localhost")
			}
			c.Network = value
			return nil
		default:
			return unknownKey(map[string]string{"key": parts[0]})
		}
	case 2:
		switch parts[0] {
		case "wallet":
			return setWalletValue(c, parts[1], value)
		case "tx":
			if parts[1] != "finalize_timeout_seconds" {
				return unknownKey(map[string]string{"section": "tx", "key": parts[1]})
			}
			n, err := positiveInt(value)
			if err != nil {
				return err
			}
			c.Tx.FinalizeTimeoutSeconds = n
			return nil
		case "rpc":
			return setRPCValue(c, parts[1], value)
		case "output":
			return setOutputValue(c, parts[1], value)
		case "logging":
			return setLoggingValue(c, parts[1], value)
		default:
			return unknownKey(map[string]string{"section": parts[0]})
		}
	case 3:
		if parts[0] == "networks" {
			return setNetworkValue(c, parts[1], parts[2], value)
		}
		return unknownKey(map[string]string{"section": parts[0]})
	default:
		return unknownKey(map[string]string{"path": path})
	}
}

func positiveInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, invalidValue(value, "a positive integer")
	}
	return n, nil
}

func setWalletValue(c *config.Config, key, value string) error {
	switch key {
	case "key_source":
		valid := []string{config.KeySourceAuto, config.KeySourceEnv, config.KeySourceKeyring, config.KeySourceFile}
		if !slices.Contains(valid, value) {
			return invalidValue(value, strings.Join(valid, ", "))
		}
		c.Wallet.KeySource = value
	case "key_file":
		c.Wallet.KeyFile = value
	case "keyring_user":
		if value == "" {
			return invalidValue(value, "a non-empty name")
		}
		c.Wallet.KeyringUser = value
	case "memory_lock":
		c.Wallet.MemoryLock = value == "true"
	default:
		return unknownKey(map[string]string{"section": "wallet", "key": key})
	}
	return nil
}

func setRPCValue(c *config.Config, key, value string) error {
	switch key {
	case "rate_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return invalidValue(value, "a non-negative number (0 disables throttling)")
		}
		c.RPC.RatePerSecond = f
	case "burst":
		n, err := positiveInt(value)
		if err != nil {
			return err
		}
		c.RPC.Burst = n
	case "max_attempts":
		n, err := positiveInt(value)
		if err != nil {
			return err
		}
		c.RPC.MaxAttempts = n
	default:
		return unknownKey(map[string]string{"section": "rpc", "key": key})
	}
	return nil
}

func setOutputValue(c *config.Config, key, value string) error {
	switch key {
	case "default_format":
		if value != "text" && value != "json" && value != "auto" {
			return invalidValue(value, "text, json, or auto")
		}
		c.Output.DefaultFormat = value
	case "verbose":
		c.Output.Verbose = value == "true"
	case "color":
		if value != "auto" && value != "always" && value != "never" {
			return invalidValue(value, "auto, always, or never")
		}
		c.Output.Color = value
	default:
		return unknownKey(map[string]string{"section": "output", "key": key})
	}
	return nil
}

func setLoggingValue(c *config.Config, key, value string) error {
	switch key {
	case "level":
		if !slices.Contains([]string{"off", "error", "debug"}, value) {
			return invalidValue(value, "off, error, or debug")
		}
		c.Logging.Level = value
	case "file":
		c.Logging.File = value
	default:
		return unknownKey(map[string]string{"section": "logging", "key": key})
	}
	return nil
}

func setNetworkValue(c *config.Config, name, key, value string) error {
	nc, err := networkConfig(c, name)
	if err != nil {
		return err
	}
	switch key {
	case "rpc":
		if err := config.ValidateRPCURL(value); err != nil {
			return chaterr.WithCause(chaterr.ErrInvalidInput, err)
		}
		nc.RPC = value
	case "chain_id":
		return chaterr.WithDetails(chaterr.ErrInvalidInput, map[string]string{
			"key":    "networks." + name + ".chain_id",
			"reason": "chain ids of supported networks are fixed",
		})
	case "contract_address":
		nc.ContractAddress = value
	case "deployment_file":
		nc.DeploymentFile = value
	default:
		return unknownKey(map[string]string{"section": "networks." + name, "key": key})
	}
	return nil
}
