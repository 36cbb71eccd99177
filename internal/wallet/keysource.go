package wallet

import (
	"encoding/hex"
	"errors"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/mrz1836/chatbuddy/internal/config"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// PasswordFunc asks the user for the key file password.
type PasswordFunc func(prompt string) (string, error)

// KeySource is where the signing key lives.
type KeySource interface {
	// Name identifies the source: env, keyring or file.
	Name() string
	// Available reports whether the source holds a key. It never prompts.
	Available() bool
	// Interactive reports whether Unlock needs user input.
	Interactive() bool
	// Unlock returns the private key.
	Unlock() (*SecureBytes, error)
}

// EnvKeySource reads a hex key from the environment.
type EnvKeySource struct {
	Lookup func() string
	Lock   bool
}

// Name implements KeySource.
func (s *EnvKeySource) Name() string { return config.KeySourceEnv }

// Available implements KeySource.
func (s *EnvKeySource) Available() bool { return s.Lookup() != "" }

// Interactive implements KeySource.
func (s *EnvKeySource) Interactive() bool { return false }

// Unlock implements KeySource.
func (s *EnvKeySource) Unlock() (*SecureBytes, error) {
	v := s.Lookup()
	if v == "" {
		return nil, chaterr.ErrWalletUnavailable
	}
	return ParsePrivateKey(v, s.Lock)
}

// KeyringKeySource keeps the hex key in the OS keychain.
type KeyringKeySource struct {
	Keyring Keyring
	User    string
	Lock    bool
}

// Name implements KeySource.
func (s *KeyringKeySource) Name() string { return config.KeySourceKeyring }

// Available implements KeySource.
func (s *KeyringKeySource) Available() bool {
	v, err := s.Keyring.Get(KeyringService, s.User)
	return err == nil && v != ""
}

// Interactive implements KeySource.
func (s *KeyringKeySource) Interactive() bool { return false }

// Unlock implements KeySource.
func (s *KeyringKeySource) Unlock() (*SecureBytes, error) {
	v, err := s.Keyring.Get(KeyringService, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, chaterr.ErrWalletUnavailable
	}
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrWalletUnavailable, err)
	}
	return ParsePrivateKey(v, s.Lock)
}

// Store saves key in the keychain.
func (s *KeyringKeySource) Store(key *SecureBytes) error {
	return s.Keyring.Set(KeyringService, s.User, hex.EncodeToString(key.Bytes()))
}

// FileKeySource is an age-encrypted key file unlocked with a password.
type FileKeySource struct {
	Path     string
	Password PasswordFunc
	Lock     bool
}

// Name implements KeySource.
func (s *FileKeySource) Name() string { return config.KeySourceFile }

// Available implements KeySource.
func (s *FileKeySource) Available() bool {
	info, err := os.Stat(s.Path)
	return err == nil && !info.IsDir()
}

// Interactive implements KeySource.
func (s *FileKeySource) Interactive() bool { return true }

// Unlock implements KeySource.
func (s *FileKeySource) Unlock() (*SecureBytes, error) {
	if !s.Available() {
		return nil, chaterr.ErrWalletUnavailable
	}
	if s.Password == nil {
		return nil, chaterr.ErrWalletLocked
	}
	password, err := s.Password("Wallet password: ")
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrWalletLocked, err)
	}
	return ReadKeyFile(s.Path, password, s.Lock)
}

// SourcesFor returns the key sources cfg allows, in lookup order.
func SourcesFor(cfg *config.Config, kr Keyring, password PasswordFunc) []KeySource {
	lock := cfg.Wallet.MemoryLock
	env := &EnvKeySource{Lookup: config.PrivateKeyFromEnv, Lock: lock}
	ring := &KeyringKeySource{Keyring: kr, User: cfg.Wallet.KeyringUser, Lock: lock}
	file := &FileKeySource{Path: cfg.KeyFilePath(), Password: password, Lock: lock}

	switch cfg.Wallet.KeySource {
	case config.KeySourceEnv:
		return []KeySource{env}
	case config.KeySourceKeyring:
		return []KeySource{ring}
	case config.KeySourceFile:
		return []KeySource{file}
	default:
		return []KeySource{env, ring, file}
	}
}

// SelectSource returns the first available source, or ErrWalletUnavailable.
func SelectSource(sources []KeySource) (KeySource, error) {
	for _, s := range sources {
		if s.Available() {
			return s, nil
		}
	}
	return nil, chaterr.ErrWalletUnavailable
}
