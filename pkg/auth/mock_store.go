package auth

import (
	"sync"
)

// MockStore implements SecretStore in memory for tests
type MockStore struct {
	cookies map[string]string
	mu      sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates a new in-memory secret store
func NewMockStore() *MockStore {
	return &MockStore{cookies: make(map[string]string)}
}

func (m *MockStore) Name() string { return "mock" }

func (m *MockStore) Store(user, cookie string) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if user == "" {
		return ErrInvalidUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies[user] = cookie
	return nil
}

func (m *MockStore) Retrieve(user string) (string, error) {
	if m.RetrieveError != nil {
		return "", m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	cookie, ok := m.cookies[user]
	if !ok {
		return "", ErrCookieNotFound
	}
	return cookie, nil
}

func (m *MockStore) Delete(user string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cookies[user]; !ok {
		return ErrCookieNotFound
	}
	delete(m.cookies, user)
	return nil
}

// Count returns the number of stored cookies
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cookies)
}
