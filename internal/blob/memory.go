package blob

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"ccguard/internal/guard"
)

// MemoryStore is an in-memory content-addressed store for tests.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

// NewMemoryStore creates an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{content: make(map[string][]byte)}
}

// Put stores the bytes read from r under checksum.
func (m *MemoryStore) Put(checksum string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	m.mu.Lock()
	m.content[checksum] = data
	m.mu.Unlock()
	return nil
}

// Get writes the stored bytes for checksum to w.
func (m *MemoryStore) Get(checksum string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.content[checksum]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("content not found: %s", checksum)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing content: %w", err)
	}
	return nil
}

// Has reports whether content with the given checksum is stored.
func (m *MemoryStore) Has(checksum string) (bool, error) {
	m.mu.RLock()
	_, ok := m.content[checksum]
	m.mu.RUnlock()
	return ok, nil
}

// Delete removes stored content. Used by tests to simulate capture loss.
func (m *MemoryStore) Delete(checksum string) {
	m.mu.Lock()
	delete(m.content, checksum)
	m.mu.Unlock()
}

// Compile-time check that MemoryStore implements guard.ContentStore.
var _ guard.ContentStore = (*MemoryStore)(nil)
