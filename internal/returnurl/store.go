// Package returnurl persists the single pending post-login redirect target.
//
// The store is scoped to one browser tab's session storage (or one process,
// for terminal clients): it must not leak across tabs or survive a restart,
// since a stale redirect target is worse than none. Storage failures are
// swallowed throughout; keeping the pending path is a convenience, never a
// correctness requirement.
package returnurl

import (
	"net/url"
	"sync"

	"famletter/internal/safepath"
)

// Key is the fixed storage key holding the pending return path.
const Key = "famletter.return_url"

// QueryParam is the query parameter a route guard attaches when redirecting
// to the login page. It wins over any previously stored value because it
// reflects the most recent user intent.
const QueryParam = "returnUrl"

// Storage abstracts per-tab session-scoped storage. Implementations may
// fail (disabled storage, private browsing); callers treat every failure as
// "no value".
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// Store holds at most one pending redirect target.
type Store struct {
	storage Storage
}

// New creates a Store backed by the given storage. A nil storage yields a
// store that reads Home and drops writes.
func New(storage Storage) *Store {
	return &Store{storage: storage}
}

// Save sanitizes path and persists it. Paths that sanitize to "/" and
// login/auth-callback paths are not persisted; storing a no-op or looping
// target would only shadow a useful earlier value.
func (s *Store) Save(path string) {
	clean := safepath.Sanitize(path)
	if clean == safepath.Home || safepath.IsAuthPath(clean) {
		return
	}
	if s.storage == nil {
		return
	}
	_ = s.storage.Set(Key, clean)
}

// Read returns the stored path sanitized, or "/" when absent or on storage
// failure. Reading does not consume the value.
func (s *Store) Read() string {
	if s.storage == nil {
		return safepath.Home
	}
	value, err := s.storage.Get(Key)
	if err != nil {
		return safepath.Home
	}
	return safepath.Sanitize(value)
}

// Clear removes the pending path, swallowing storage failures.
func (s *Store) Clear() {
	if s.storage == nil {
		return
	}
	_ = s.storage.Remove(Key)
}

// ResolveForLogin determines the return path to attach to a login redirect
// for the page at current. Priority: the returnUrl query parameter, then
// the stored value, then the current page's own path when it is not itself
// a login/auth path, then "/".
func (s *Store) ResolveForLogin(current *url.URL) string {
	if current != nil {
		if candidate := safepath.Sanitize(current.Query().Get(QueryParam)); candidate != safepath.Home {
			return candidate
		}
	}

	if stored := s.Read(); stored != safepath.Home {
		return stored
	}

	if current != nil {
		own := current.Path
		if current.RawQuery != "" {
			own += "?" + current.RawQuery
		}
		own = safepath.Sanitize(own)
		if own != safepath.Home && !safepath.IsAuthPath(own) {
			return own
		}
	}

	return safepath.Home
}

// MemoryStorage is an in-process Storage, the session-storage equivalent
// for terminal clients and tests.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get returns the stored value, or "" when absent.
func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

// Set stores value under key.
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove deletes key.
func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
