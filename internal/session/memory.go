package session

import (
	"sync"
	"time"
)

type memEntry struct {
	value   string
	expires time.Time
}

// MemoryStore is an in-process [Store] for a single local user, as in the terminal play mode.
//
// It applies the same lifetimes as the cookie store and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memEntry{}, now: time.Now}
}

func (m *MemoryStore) PutTransient(state, codeVerifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(StateKey, state, TransientTTL)
	m.setLocked(VerifierKey, codeVerifier, TransientTTL)
	return nil
}

func (m *MemoryStore) TakeTransient() (Transient, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, okState := m.getLocked(StateKey)
	verifier, okVerifier := m.getLocked(VerifierKey)
	delete(m.entries, StateKey)
	delete(m.entries, VerifierKey)

	if !okState || !okVerifier {
		return Transient{}, false
	}
	return Transient{State: state, CodeVerifier: verifier}, true
}

func (m *MemoryStore) PutSession(accessToken, refreshToken string, expiresIn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(AccessTokenKey, accessToken, accessTTL(expiresIn))
	if refreshToken != "" {
		m.setLocked(RefreshTokenKey, refreshToken, RefreshTokenTTL)
	}
	return nil
}

func (m *MemoryStore) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(AccessTokenKey)
}

func (m *MemoryStore) RefreshToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(RefreshTokenKey)
}

func (m *MemoryStore) DeleteRefreshToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, RefreshTokenKey)
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

func (m *MemoryStore) setLocked(key, value string, ttl time.Duration) {
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl)}
}

func (m *MemoryStore) getLocked(key string) (string, bool) {
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return "", false
	}
	return e.value, e.value != ""
}
