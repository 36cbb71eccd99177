// Package cli implements the chatbuddy command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/output"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	networkName  string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	activeCtx *CommandContext

	buildInfo BuildInfo
	helpOnce  sync.Once
)

// BuildInfo carries version metadata injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// SetBuildInfo records the binary's version metadata.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

func formatVersion(info BuildInfo) string {
	v, c, d := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if c == "" {
		c = "unknown"
	}
	if d == "" {
		d = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chatbuddy",
	Short: "Wallet-backed chat on the ChatApp contract",
	Long: `chatbuddy is a terminal client for the ChatApp smart contract.

Your wallet address is your identity: create a profile once, add friends by
address and exchange messages that live on chain. Holesky and a local hardhat
node are supported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(cmd.OutOrStdout()); err != nil {
			return err
		}
		activeCtx = newCommandContext(cfg, logger, formatter)
		setCmdContext(cmd, activeCtx)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	helpOnce.Do(func() {
		walkCommands(rootCmd, func(c *cobra.Command) {
			if c != rootCmd {
				enrichParentLong(c)
			}
		})
	})

	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the process exit code for an error.
func ExitCode(err error) int {
	return chaterr.ExitCode(err)
}

// resolveHome picks the data directory: flag, then environment, then default.
func resolveHome() string {
	if homeDir != "" {
		return homeDir
	}
	if h := os.Getenv(config.EnvHome); h != "" {
		return h
	}
	return config.DefaultHome()
}

// initGlobals loads .env files and configuration, then builds the logger and
// a formatter writing to stdout.
func initGlobals(stdout io.Writer) error {
	home := config.ExpandHome(resolveHome())

	if err := config.LoadDotEnv(".env", filepath.Join(home, ".env")); err != nil {
		return chaterr.WithCause(chaterr.ErrConfigInvalid, err)
	}
	// CHATBUDDY_HOME may come from a .env file.
	if homeDir == "" {
		home = config.ExpandHome(resolveHome())
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if networkName != "" {
		if _, ok := cfg.GetNetwork(networkName); !ok {
			return chaterr.WithDetails(chaterr.ErrUnsupportedNetwork, map[string]string{"network": networkName})
		}
		cfg.Network = networkName
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.OpenLogger(cfg)
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), stdout)
	return nil
}

// logMetrics records the invocation's counters at debug level.
func logMetrics(cc *CommandContext) {
	m := cc.Metrics.Snapshot()
	cc.Logger.Debug("metrics: actions=%d errors=%d busy=%d reads=%d read_errors=%d tx_submitted=%d tx_finalized=%d tx_failed=%d rpc_avg_ms=%.1f",
		m.ActionsTotal, m.ActionsErrors, m.ActionsBusy, m.ContractReads, m.ContractReadErrors,
		m.TxSubmitted, m.TxFinalized, m.TxFailed, cc.Metrics.RPCLatencyAvgMs())
}

// finish runs after every command, failed or not: it locks the wallet and
// closes the log.
func finish() {
	if activeCtx != nil {
		activeCtx.Close()
		logMetrics(activeCtx)
		activeCtx = nil
	}
	cleanup()
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "chat", Title: "Chat:"},
		&cobra.Group{ID: "wallet", Title: "Wallet & Network:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)
	cobra.OnFinalize(finish)
	rootCmd.SetHelpCommandGroupID("config")
	rootCmd.SetCompletionCommandGroupID("config")

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "chatbuddy data directory (default: ~/.chatbuddy)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&networkName, "network", "", "network to use: holesky or localhost (default from config)")
	_ = rootCmd.RegisterFlagCompletionFunc("output", completeOutput)
	_ = rootCmd.RegisterFlagCompletionFunc("network", completeNetwork)
}
