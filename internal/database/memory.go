package database

import (
	"context"
	"sync"
)

// MemoryStore is a process-local key/value store with the same metadata
// API as Database. It backs PERSISTENCE=memory and isolated tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetMetadata returns the value for key or ErrKeyNotFound.
func (m *MemoryStore) GetMetadata(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// SetMetadataBatch stores all entries atomically.
func (m *MemoryStore) SetMetadataBatch(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.values[k] = v
	}
	return nil
}

// DeleteMetadata removes the given keys.
func (m *MemoryStore) DeleteMetadata(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
