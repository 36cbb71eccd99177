package wallet

import (
	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which keys are stored.
const KeyringService = "chatbuddy"

// Keyring stores secrets by service and user.
type Keyring interface {
	Set(service, user, secret string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// OSKeyring implements Keyring using the OS keychain.
type OSKeyring struct{}

// NewOSKeyring creates a new OS keyring wrapper.
func NewOSKeyring() *OSKeyring {
	return &OSKeyring{}
}

// Set stores a secret in the OS keyring.
func (k *OSKeyring) Set(service, user, secret string) error {
	return keyring.Set(service, user, secret)
}

// Get retrieves a secret from the OS keyring.
func (k *OSKeyring) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}

// Delete removes a secret from the OS keyring.
func (k *OSKeyring) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// ProbeKeyring reports whether the OS keyring can store and return a value.
func ProbeKeyring() bool {
	const (
		probeService = "chatbuddy-probe"
		probeUser    = "probe"
		probeValue   = "test"
	)

	if err := keyring.Set(probeService, probeUser, probeValue); err != nil {
		return false
	}
	val, err := keyring.Get(probeService, probeUser)
	if err != nil || val != probeValue {
		_ = keyring.Delete(probeService, probeUser)
		return false
	}
	return keyring.Delete(probeService, probeUser) == nil
}
