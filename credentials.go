package session

import (
	"encoding/json"
	"sync"
	"time"
)

// Well known credential keys
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserDataKey     = "user_data"
)

// Expiry policy per key. Lifetimes are advisory: they are enforced by the
// store, never by reading token claims.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
	UserDataTTL     = 30 * 24 * time.Hour
)

// CredentialKeys lists every key owned by a session.
var CredentialKeys = []string{AccessTokenKey, RefreshTokenKey, UserDataKey}

// SaveTokens persists both tokens with their own expiry.
func SaveTokens(store CredentialStore, tokens AuthTokens) error {
	if err := store.Set(AccessTokenKey, tokens.Access, AccessTokenTTL); err != nil {
		return err
	}
	return store.Set(RefreshTokenKey, tokens.Refresh, RefreshTokenTTL)
}

// SaveProfile stores the profile as JSON.
func SaveProfile(store CredentialStore, user UserProfile) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return store.Set(UserDataKey, string(raw), UserDataTTL)
}

// LoadProfile reads the cached profile. Unparseable content reads as absent.
func LoadProfile(store CredentialStore) UserProfile {
	raw, ok := store.Get(UserDataKey)
	if !ok || raw == "" {
		return nil
	}
	var user UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return user
}

// ClearCredentials removes every session key, continuing past failures and
// returning the first one.
func ClearCredentials(store CredentialStore) error {
	var first error
	for _, key := range CredentialKeys {
		if err := store.Remove(key); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Hydrate builds the cold start state from the store. The token pair is
// kept as read, halves may be empty; the route guard rejects such pairs.
func Hydrate(store CredentialStore) *AuthState {
	access, _ := store.Get(AccessTokenKey)
	refresh, _ := store.Get(RefreshTokenKey)

	state := &AuthState{User: LoadProfile(store)}
	if access != "" || refresh != "" {
		state.AuthTokens = &AuthTokens{Access: access, Refresh: refresh}
	}
	return state
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an expiring in-process CredentialStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ CredentialStore = &MemoryStore{}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryStoreClock injects a custom clock (useful for tests).
func WithMemoryStoreClock(clock func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		if clock != nil {
			m.now = clock
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *MemoryStore) Get(key string) (string, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}

	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		delete(m.entries, key)
		return "", false
	}

	return entry.value, true
}

// Set stores value under key. A ttl <= 0 never expires.
func (m *MemoryStore) Set(key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// ExpiresAt returns the expiry recorded for key.
func (m *MemoryStore) ExpiresAt(key string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry.expiresAt, ok
}
