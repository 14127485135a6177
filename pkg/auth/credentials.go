package auth

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Backend names accepted by NewSecretStore
const (
	BackendFile      = "file"
	BackendKeyring   = "keyring"
	BackendEncrypted = "encrypted"
)

// SecretStore keeps session cookies outside the user database
type SecretStore interface {
	// Name identifies the backend in the database marker
	Name() string

	// Store saves the cookie of a user, replacing any previous value
	Store(user, cookie string) error

	// Retrieve gets the cookie of a user
	Retrieve(user string) (string, error)

	// Delete removes the cookie of a user
	Delete(user string) error
}

// NewSecretStore returns the store for backend. The file backend keeps cookies
// inline in the user database and has no secret store.
func NewSecretStore(backend, configDir string) (SecretStore, error) {
	switch backend {
	case "", BackendFile:
		return nil, nil
	case BackendKeyring:
		return NewKeyringStore()
	case BackendEncrypted:
		return NewEncryptedFileStore(filepath.Join(configDir, "cookies.enc"), configDir)
	default:
		return nil, fmt.Errorf("unknown credential backend %q", backend)
	}
}

// MaskCookie hides all but the first and last 4 characters of a cookie
func MaskCookie(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrUserNotFound     = errors.New("no such user in database")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidUser      = errors.New("user name is required")
	ErrEmptyCookie      = errors.New("cookie is empty")
	ErrCookieNotFound   = errors.New("cookie not found")
	ErrStoreUnavailable = errors.New("credential store unavailable")
	ErrNoUserID         = errors.New("couldn't get user id from cookie")
)
