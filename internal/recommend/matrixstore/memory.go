package matrixstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps matrices for the lifetime of the process
type MemoryStore struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory matrix store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
	}
}

// Get returns the entry stored under key
func (m *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Put stores an entry. Matrices are immutable, so the pointer is shared.
func (m *MemoryStore) Put(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Matrix == nil {
		return fmt.Errorf("empty entry")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[entry.Key] = entry
	return nil
}

// Delete removes an entry by key
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Clear removes all entries
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*Entry)
	return nil
}

// Count returns the number of stored entries
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
