package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "pixivdl"
	keyringPrefix  = "cookie_"
)

// KeyringStore implements SecretStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based secret store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("%w: keyring not available: %w", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return BackendKeyring }

// Store saves a cookie to the system keychain
func (k *KeyringStore) Store(user, cookie string) error {
	if user == "" {
		return ErrInvalidUser
	}
	if err := keyring.Set(keyringService, keyringPrefix+user, cookie); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets a cookie from the system keychain
func (k *KeyringStore) Retrieve(user string) (string, error) {
	if user == "" {
		return "", ErrInvalidUser
	}

	cookie, err := keyring.Get(keyringService, keyringPrefix+user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrCookieNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return cookie, nil
}

// Delete removes a cookie from the system keychain
func (k *KeyringStore) Delete(user string) error {
	if user == "" {
		return ErrInvalidUser
	}

	if err := keyring.Delete(keyringService, keyringPrefix+user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCookieNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
