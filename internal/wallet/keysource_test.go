package wallet

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/mrz1836/chatbuddy/internal/config"
	chaterr "github.com/mrz1836/chatbuddy/pkg/errors"
)

var errNoTTY = errors.New("no tty")

// mapKeyring is an in-memory Keyring.
type mapKeyring map[string]string

func (m mapKeyring) Set(service, user, secret string) error {
	m[service+"/"+user] = secret
	return nil
}

func (m mapKeyring) Get(service, user string) (string, error) {
	v, ok := m[service+"/"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (m mapKeyring) Delete(service, user string) error {
	delete(m, service+"/"+user)
	return nil
}

func staticPassword(pw string) PasswordFunc {
	return func(string) (string, error) { return pw, nil }
}

func TestEnvKeySource(t *testing.T) {
	t.Parallel()
	var value string
	src := &EnvKeySource{Lookup: func() string { return value }}

	assert.False(t, src.Available())
	assert.False(t, src.Interactive())
	_, err := src.Unlock()
	require.ErrorIs(t, err, chaterr.ErrWalletUnavailable)

	value = hardhatKey0
	assert.True(t, src.Available())
	key, err := src.Unlock()
	require.NoError(t, err)
	addr, err := AddressOf(key)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(hardhatAddr0), addr)
}

func TestKeyringKeySource(t *testing.T) {
	t.Parallel()
	kr := mapKeyring{}
	src := &KeyringKeySource{Keyring: kr, User: "default"}

	assert.False(t, src.Available())
	_, err := src.Unlock()
	require.ErrorIs(t, err, chaterr.ErrWalletUnavailable)

	key, err := ParsePrivateKey(hardhatKey0, false)
	require.NoError(t, err)
	require.NoError(t, src.Store(key))
	assert.Equal(t, hardhatKey0[2:], kr["chatbuddy/default"])

	assert.True(t, src.Available())
	unlocked, err := src.Unlock()
	require.NoError(t, err)
	assert.Equal(t, key.Bytes(), unlocked.Bytes())
}

func TestFileKeySource(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wallet.key.age")
	src := &FileKeySource{Path: path, Password: staticPassword("pw")}

	assert.False(t, src.Available())
	assert.True(t, src.Interactive())
	_, err := src.Unlock()
	require.ErrorIs(t, err, chaterr.ErrWalletUnavailable)

	key, err := ParsePrivateKey(hardhatKey0, false)
	require.NoError(t, err)
	require.NoError(t, WriteKeyFile(path, key, "pw"))
	assert.True(t, src.Available())

	unlocked, err := src.Unlock()
	require.NoError(t, err)
	assert.Equal(t, key.Bytes(), unlocked.Bytes())

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		bad := &FileKeySource{Path: path, Password: staticPassword("nope")}
		_, err := bad.Unlock()
		require.ErrorIs(t, err, chaterr.ErrDecryptionFailed)
	})

	t.Run("prompt fails", func(t *testing.T) {
		t.Parallel()
		bad := &FileKeySource{Path: path, Password: func(string) (string, error) { return "", errNoTTY }}
		_, err := bad.Unlock()
		require.ErrorIs(t, err, chaterr.ErrWalletLocked)
		require.ErrorIs(t, err, errNoTTY)
	})

	t.Run("no prompt", func(t *testing.T) {
		t.Parallel()
		bad := &FileKeySource{Path: path}
		_, err := bad.Unlock()
		require.ErrorIs(t, err, chaterr.ErrWalletLocked)
	})
}

func TestSourcesFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		want   []string
	}{
		{config.KeySourceAuto, []string{"env", "keyring", "file"}},
		{config.KeySourceEnv, []string{"env"}},
		{config.KeySourceKeyring, []string{"keyring"}},
		{config.KeySourceFile, []string{"file"}},
	}

	for _, tc := range tests {
		t.Run(tc.source, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			cfg.Wallet.KeySource = tc.source

			var names []string
			for _, s := range SourcesFor(cfg, mapKeyring{}, nil) {
				names = append(names, s.Name())
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestSelectSource(t *testing.T) {
	t.Parallel()
	kr := mapKeyring{}
	env := &EnvKeySource{Lookup: func() string { return "" }}
	ring := &KeyringKeySource{Keyring: kr, User: "default"}
	file := &FileKeySource{Path: filepath.Join(t.TempDir(), "missing")}

	_, err := SelectSource([]KeySource{env, ring, file})
	require.ErrorIs(t, err, chaterr.ErrWalletUnavailable)
	assert.NotEmpty(t, chaterr.Suggestion(err))

	require.NoError(t, kr.Set(KeyringService, "default", hardhatKey0))
	got, err := SelectSource([]KeySource{env, ring, file})
	require.NoError(t, err)
	assert.Equal(t, "keyring", got.Name())
}

func TestOSKeyring(t *testing.T) {
	keyring.MockInit()

	kr := NewOSKeyring()
	require.NoError(t, kr.Set(KeyringService, "alice", "secret"))
	v, err := kr.Get(KeyringService, "alice")
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	require.NoError(t, kr.Delete(KeyringService, "alice"))
	_, err = kr.Get(KeyringService, "alice")
	require.ErrorIs(t, err, keyring.ErrNotFound)

	assert.True(t, ProbeKeyring())
}
