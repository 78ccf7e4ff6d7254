package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ccguard/internal/guard"
)

// MemoryStore is an in-memory implementation of guard.StateStore.
// Values round-trip through JSON exactly like the SQLite store, so
// tests exercise the same serialization path. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	kv       map[string][]byte
	sessions map[string]guard.SessionState
	enabled  *bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:       make(map[string][]byte),
		sessions: make(map[string]guard.SessionState),
	}
}

func (m *MemoryStore) Get(key string, out any) (bool, error) {
	m.mu.RLock()
	data, ok := m.kv[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding value for key %q: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for key %q: %w", key, err)
	}
	m.mu.Lock()
	m.kv[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.kv, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSession(sessionID string) (*guard.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copy := st
	return &copy, nil
}

func (m *MemoryStore) PutSession(state *guard.SessionState) error {
	m.mu.Lock()
	m.sessions[state.ID] = *state
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Enabled() (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.enabled == nil {
		return true, nil
	}
	return *m.enabled, nil
}

func (m *MemoryStore) SetEnabled(enabled bool) error {
	m.mu.Lock()
	m.enabled = &enabled
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) RecordDecision(sessionID string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.sessions[sessionID]
	st.ID = sessionID
	if approved {
		st.OperationsApproved++
	} else {
		st.OperationsBlocked++
	}
	st.UpdatedAt = time.Now().UTC()
	m.sessions[sessionID] = st
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Compile-time check that MemoryStore implements guard.StateStore.
var _ guard.StateStore = (*MemoryStore)(nil)
