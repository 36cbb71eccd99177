package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/mrz1836/chatbuddy/internal/config"
	"github.com/mrz1836/chatbuddy/internal/fileutil"
	"github.com/mrz1836/chatbuddy/internal/output"
	"github.com/mrz1836/chatbuddy/internal/wallet"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// probeKeyringFn reports whether the OS keychain is usable.
//
//nolint:gochecknoglobals // Replaced in tests
var probeKeyringFn = wallet.ProbeKeyring

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the signing key and connection",
	Long: `Import the key that signs your chat transactions, inspect where it is
stored, forget the remembered connection and choose the active network.`,
	GroupID: "wallet",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a private key or recovery phrase",
	Long: `Import the account used for chatting.

The key can be a hex private key or a BIP-39 recovery phrase, from which the
account at m/44'/60'/0'/0/<index> is derived. Without --private-key or
--mnemonic the secret is read from the terminal with hidden input.

The key is stored in the OS keychain when one is available, otherwise in an
age-encrypted file protected by a password (see wallet.key_file).`,
	Example: `  chatbuddy wallet import
  chatbuddy wallet import --mnemonic "test test test test test test test test test test test junk"
  chatbuddy wallet import --mnemonic "..." --index 2 --passphrase
  chatbuddy wallet import --store file`,
	Args: cobra.NoArgs,
	RunE: runWalletImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show key sources and the remembered account",
	Long: `Show which key sources hold a key, which one would be used, the account
remembered from the last connection and the active network. Nothing is
unlocked.`,
	Example: `  chatbuddy wallet status
  chatbuddy wallet status -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the remembered connection",
	Long: `Forget the account remembered from the last connection, so the next command
unlocks the wallet again.

With --forget-key the stored key is deleted from the keychain and the key
file is removed as well. Keys supplied through the environment are untouched.`,
	Example: `  chatbuddy wallet reset
  chatbuddy wallet reset --forget-key --yes`,
	Args: cobra.NoArgs,
	RunE: runWalletReset,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletSwitchCmd = &cobra.Command{
	Use:   "switch <network>",
	Short: "Set the network the wallet starts on",
	Long: `Set the active network and save it in the configuration file.

Supported networks are holesky (chain 17000) and localhost (chain 31337).
Inside 'chatbuddy chat' use /switch instead to move a live session.`,
	Example: `  chatbuddy wallet switch localhost
  chatbuddy wallet switch holesky`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: networkNames,
	RunE:              runWalletSwitch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	importPrivateKey string
	importMnemonic   string
	importIndex      uint32
	importPassphrase bool
	importStore      string
	importForce      bool

	resetForgetKey bool
	resetYes       bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletImportCmd, walletStatusCmd, walletResetCmd, walletSwitchCmd)

	walletImportCmd.Flags().StringVar(&importPrivateKey, "private-key", "", "hex private key (prompted when omitted)")
	walletImportCmd.Flags().StringVar(&importMnemonic, "mnemonic", "", "BIP-39 recovery phrase")
	walletImportCmd.Flags().Uint32Var(&importIndex, "index", 0, "account index to derive from the recovery phrase")
	walletImportCmd.Flags().BoolVar(&importPassphrase, "passphrase", false, "prompt for a BIP-39 passphrase")
	walletImportCmd.Flags().StringVar(&importStore, "store", "", "where to keep the key: keyring or file (default: keyring when available)")
	walletImportCmd.Flags().BoolVar(&importForce, "force", false, "replace a key that is already stored")
	walletImportCmd.MarkFlagsMutuallyExclusive("private-key", "mnemonic")
	_ = walletImportCmd.RegisterFlagCompletionFunc("store", completeStore)

	walletResetCmd.Flags().BoolVar(&resetForgetKey, "forget-key", false, "also delete the stored key")
	walletResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "do not ask for confirmation")
}

// importView reports an imported key.
type importView struct {
	Address        string `json:"address"`
	Store          string `json:"store"`
	Path           string `json:"path,omitempty"`
	DerivationPath string `json:"derivation_path,omitempty"`
}

// readImportKey turns the flags or a prompted secret into a key.
func readImportKey(lock bool) (*wallet.SecureBytes, string, error) {
	secret, isMnemonic := importPrivateKey, false
	if importMnemonic != "" {
		secret, isMnemonic = importMnemonic, true
	}
	if secret == "" {
		var err error
		secret, err = promptSecretFn("Private key or recovery phrase: ")
		if err != nil {
			return nil, "", err
		}
		isMnemonic = len(strings.Fields(secret)) > 1
	}
	if strings.TrimSpace(secret) == "" {
		return nil, "", chaterr.WithSuggestion(chaterr.ErrInvalidInput, "provide a private key or a recovery phrase")
	}

	if !isMnemonic {
		key, err := wallet.ParsePrivateKey(secret, lock)
		return key, "", err
	}

	passphrase := ""
	if importPassphrase {
		var err error
		if passphrase, err = promptPasswordFn("BIP-39 passphrase: "); err != nil {
			return nil, "", err
		}
	}
	key, err := wallet.KeyFromMnemonic(secret, passphrase, importIndex, lock)
	return key, wallet.DerivationPath(importIndex), err
}

func resolveStore(store string) (string, error) {
	switch store {
	case "":
		if probeKeyringFn() {
			return config.KeySourceKeyring, nil
		}
		return config.KeySourceFile, nil
	case config.KeySourceKeyring, config.KeySourceFile:
		return store, nil
	default:
		return "", chaterr.WithDetails(chaterr.ErrInvalidInput, map[string]string{
			"store": store,
			"valid": "keyring or file",
		})
	}
}

func runWalletImport(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)
	c := cc.Config

	store, err := resolveStore(importStore)
	if err != nil {
		return err
	}

	key, path, err := readImportKey(c.Wallet.MemoryLock)
	if err != nil {
		return err
	}
	defer key.Destroy()

	addr, err := wallet.AddressOf(key)
	if err != nil {
		return err
	}

	view := importView{Address: addr.Hex(), Store: store, DerivationPath: path}
	switch store {
	case config.KeySourceKeyring:
		src := &wallet.KeyringKeySource{Keyring: cc.Keyring, User: c.Wallet.KeyringUser}
		if src.Available() && !importForce {
			return chaterr.WithSuggestion(chaterr.ErrWalletExists, "use --force to replace it")
		}
		if err := src.Store(key); err != nil {
			return chaterr.WithCause(chaterr.ErrWalletUnavailable, err)
		}
	case config.KeySourceFile:
		src := &wallet.FileKeySource{Path: c.KeyFilePath()}
		if src.Available() && !importForce {
			return chaterr.WithSuggestion(chaterr.ErrWalletExists, "use --force to replace it")
		}
		password, err := promptNewPasswordFn()
		if err != nil {
			return err
		}
		if err := wallet.WriteKeyFile(src.Path, key, password); err != nil {
			return err
		}
		view.Path = src.Path
	}

	// A new key means a new account: the remembered one no longer applies.
	if err := cc.Wallet().Reset(); err != nil {
		cc.Logger.Error("failed to clear connection cache: %v", err)
	}

	return cc.Fmt.Emit(view, func(w io.Writer) error {
		output.Success(w, "Imported %s into the %s", view.Address, store)
		if view.DerivationPath != "" {
			out(w, "  Derivation path: %s\n", view.DerivationPath)
		}
		if view.Path != "" {
			out(w, "  Key file: %s\n", view.Path)
		}
		outln(w, "Next: chatbuddy connect")
		return nil
	})
}

// walletStatusView reports where keys live without unlocking any.
type walletStatusView struct {
	Network       string       `json:"network"`
	KeySource     string       `json:"key_source"`
	Sources       []sourceView `json:"sources"`
	Selected      string       `json:"selected,omitempty"`
	CachedAccount string       `json:"cached_account,omitempty"`
}

type sourceView struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)

	view := walletStatusView{
		Network:   cc.Config.ActiveNetwork(),
		KeySource: cc.Config.Wallet.KeySource,
	}
	sources := cc.KeySources()
	for _, s := range sources {
		view.Sources = append(view.Sources, sourceView{Name: s.Name(), Available: s.Available()})
	}
	if s, err := wallet.SelectSource(sources); err == nil {
		view.Selected = s.Name()
	}
	if account, ok := cc.Wallet().CachedAccount(); ok {
		view.CachedAccount = account.Hex()
	}

	return cc.Fmt.Emit(view, func(w io.Writer) error {
		out(w, "Network:     %s\n", view.Network)
		out(w, "Key source:  %s\n", view.KeySource)
		t := output.NewTable("SOURCE", "KEY", "")
		for _, s := range view.Sources {
			has, mark := "missing", ""
			if s.Available {
				has = "stored"
			}
			if s.Name == view.Selected {
				mark = "(in use)"
			}
			t.AddRow(s.Name, has, mark)
		}
		outln(w)
		if err := t.Render(w); err != nil {
			return err
		}
		outln(w)
		if view.CachedAccount != "" {
			out(w, "Remembered account: %s\n", view.CachedAccount)
		} else {
			outln(w, "Remembered account: (none)")
		}
		if view.Selected == "" {
			output.Warn(cmd.ErrOrStderr(), "No key found. Import one with 'chatbuddy wallet import'.")
		}
		return nil
	})
}

func runWalletReset(cmd *cobra.Command, _ []string) error {
	cc := getCmdContext(cmd)

	if resetForgetKey && !resetYes && !promptConfirmFn("Delete the stored key? This cannot be undone.") {
		return chaterr.WithSuggestion(chaterr.ErrGeneral, "reset cancelled")
	}

	if err := cc.Wallet().Reset(); err != nil {
		return err
	}

	if resetForgetKey {
		err := cc.Keyring.Delete(wallet.KeyringService, cc.Config.Wallet.KeyringUser)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			cc.Logger.Error("keyring delete failed: %v", err)
		}
		if err := fileutil.RemoveIfExists(cc.Config.KeyFilePath()); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if resetForgetKey {
		output.Success(w, "Connection and stored key forgotten")
		return nil
	}
	output.Success(w, "Connection forgotten; the next command unlocks the wallet again")
	return nil
}

func runWalletSwitch(cmd *cobra.Command, args []string) error {
	cc := getCmdContext(cmd)

	n, ok := cc.Resolver.ByName(args[0])
	if !ok {
		return chaterr.WithSuggestion(
			chaterr.WithDetails(chaterr.ErrUnsupportedNetwork, map[string]string{"network": args[0]}),
			"supported networks: holesky, localhost",
		)
	}

	configPath := config.Path(cc.Config.Home)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		fileCfg = config.Defaults()
		fileCfg.Home = cc.Config.Home
	}
	fileCfg.Network = n.Name
	if err := config.Save(fileCfg, configPath); err != nil {
		return err
	}
	cc.Config.Network = n.Name

	output.Success(cmd.OutOrStdout(), "Active network: %s (chain %d)", n.Name, n.ChainID)
	return nil
}
