package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/storage"
)

// DBFileName is the user database file name inside the config directory
const DBFileName = "pixivdl_user_db.json"

// secretMarkerPrefix marks a users entry whose cookie lives in a SecretStore
const secretMarkerPrefix = "@secret:"

// userData is the on-disk layout of the user database
type userData struct {
	DefaultUser *string           `json:"default_user"`
	Users       map[string]string `json:"users"`
}

// UserDB maps user names to pixiv session cookies and tracks a default user.
// When a SecretStore is set the cookie itself is kept there and the database
// only records which backend holds it.
type UserDB struct {
	path    string
	secrets SecretStore
	mu      sync.Mutex
	data    userData
}

// DBPath returns the database path inside configDir
func DBPath(configDir string) string {
	return filepath.Join(configDir, DBFileName)
}

// OpenUserDB loads the database at path. A missing file is an empty database.
func OpenUserDB(path string, secrets SecretStore) (*UserDB, error) {
	db := &UserDB{
		path:    path,
		secrets: secrets,
		data:    userData{Users: make(map[string]string)},
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return db, nil
		}
		return nil, fmt.Errorf("failed to read user database: %w", err)
	}
	if err := json.Unmarshal(content, &db.data); err != nil {
		return nil, fmt.Errorf("failed to parse user database %s: %w", path, err)
	}
	if db.data.Users == nil {
		db.data.Users = make(map[string]string)
	}
	return db, nil
}

// Path returns the database file path
func (db *UserDB) Path() string {
	return db.path
}

// Add stores a new user. The cookie is normalized first.
func (db *UserDB) Add(name, cookie string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidUser
	}
	cookie = pixiv.NormalizeCookie(cookie)
	if cookie == "" {
		return ErrEmptyCookie
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.data.Users[name]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, name)
	}

	entry := cookie
	if db.secrets != nil {
		if err := db.secrets.Store(name, cookie); err != nil {
			return fmt.Errorf("failed to store cookie of %s: %w", name, err)
		}
		entry = secretMarkerPrefix + db.secrets.Name()
	}
	db.data.Users[name] = entry
	return db.save()
}

// Remove deletes a user, clearing the default when it pointed there
func (db *UserDB) Remove(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry, ok := db.data.Users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}

	if strings.HasPrefix(entry, secretMarkerPrefix) && db.secrets != nil {
		if err := db.secrets.Delete(name); err != nil && !errors.Is(err, ErrCookieNotFound) {
			return fmt.Errorf("failed to delete cookie of %s: %w", name, err)
		}
	}

	delete(db.data.Users, name)
	if db.data.DefaultUser != nil && *db.data.DefaultUser == name {
		db.data.DefaultUser = nil
	}
	return db.save()
}

// SetDefault makes an existing user the default
func (db *UserDB) SetDefault(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.data.Users[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	db.data.DefaultUser = &name
	return db.save()
}

// RemoveDefault clears the default user
func (db *UserDB) RemoveDefault() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.data.DefaultUser = nil
	return db.save()
}

// GetDefault returns the default user name
func (db *UserDB) GetDefault() (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.data.DefaultUser == nil {
		return "", false
	}
	return *db.data.DefaultUser, true
}

// List returns the user names in sorted order
func (db *UserDB) List() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, 0, len(db.data.Users))
	for name := range db.data.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cookie returns the cookie of a user
func (db *UserDB) Cookie(name string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cookie(name)
}

func (db *UserDB) cookie(name string) (string, error) {
	entry, ok := db.data.Users[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	if !strings.HasPrefix(entry, secretMarkerPrefix) {
		return entry, nil
	}

	backend := strings.TrimPrefix(entry, secretMarkerPrefix)
	if db.secrets == nil || db.secrets.Name() != backend {
		return "", fmt.Errorf("%w: cookie of %s is kept in the %s backend", ErrStoreUnavailable, name, backend)
	}
	return db.secrets.Retrieve(name)
}

// ResolveCookie returns the cookie of override when set, otherwise the cookie
// of the default user. With neither it returns "" so requests run anonymously.
func (db *UserDB) ResolveCookie(override string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if override != "" {
		return db.cookie(override)
	}
	if db.data.DefaultUser == nil {
		return "", nil
	}
	return db.cookie(*db.data.DefaultUser)
}

func (db *UserDB) save() error {
	if err := os.MkdirAll(filepath.Dir(db.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user database: %w", err)
	}
	return storage.WriteFileAtomic(db.path, content, 0600)
}

// UserIDFromCookie extracts the pixiv user id from the __utmv analytics cookie
func UserIDFromCookie(cookie string) (uint64, error) {
	for _, element := range strings.Split(pixiv.NormalizeCookie(cookie), ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(element), "=")
		if !ok || key != "__utmv" {
			continue
		}
		_, useful, ok := strings.Cut(value, "|")
		if !ok {
			continue
		}
		for _, inner := range strings.Split(useful, "^") {
			sub := strings.Split(inner, "=")
			if len(sub) < 3 || sub[1] != "user_id" {
				continue
			}
			if id, err := strconv.ParseUint(sub[2], 10, 64); err == nil {
				return id, nil
			}
		}
	}
	return 0, ErrNoUserID
}
