package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/chatbuddy/internal/fileutil"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

// privateKeyLen is the length of a secp256k1 private key.
const privateKeyLen = 32

// ParsePrivateKey decodes a hex private key, with or without 0x prefix.
func ParsePrivateKey(s string, lock bool) (*SecureBytes, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != privateKeyLen {
		return nil, chaterr.WithDetails(chaterr.ErrInvalidKey, map[string]string{
			"reason": "expected 32 bytes of hex",
		})
	}
	defer zero(raw)

	if _, err := crypto.ToECDSA(raw); err != nil {
		return nil, chaterr.WithCause(chaterr.ErrInvalidKey, err)
	}
	return NewSecureBytes(raw, lock), nil
}

// ToECDSA converts an unlocked key to a go-ethereum private key.
func ToECDSA(key *SecureBytes) (*ecdsa.PrivateKey, error) {
	b := key.Bytes()
	if b == nil {
		return nil, chaterr.ErrWalletLocked
	}
	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrInvalidKey, err)
	}
	return priv, nil
}

// AddressOf returns the account address controlled by key.
func AddressOf(key *SecureBytes) (common.Address, error) {
	priv, err := ToECDSA(key)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

// Seal encrypts key with an age scrypt recipient derived from password.
func Seal(key *SecureBytes, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(key.Bytes()); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Open decrypts a sealed key. A wrong password yields ErrDecryptionFailed.
func Open(ciphertext []byte, password string, lock bool) (*SecureBytes, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, err
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, chaterr.WithCause(chaterr.ErrDecryptionFailed, err)
	}
	defer zero(plaintext)

	if len(plaintext) != privateKeyLen {
		return nil, chaterr.ErrInvalidKey
	}
	return NewSecureBytes(plaintext, lock), nil
}

// WriteKeyFile seals key and writes it atomically with owner-only permissions.
func WriteKeyFile(path string, key *SecureBytes, password string) error {
	sealed, err := Seal(key, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, sealed, 0o600)
}

// ReadKeyFile reads and opens a sealed key file.
func ReadKeyFile(path, password string, lock bool) (*SecureBytes, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, err
	}
	return Open(data, password, lock)
}
