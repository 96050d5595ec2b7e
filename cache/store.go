package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a Store when the key holds no value
var ErrNotFound = errors.New("cache entry not found")

// Store is a session-scoped key/value backend for serialized snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory; they are gone on restart
type MemoryStore struct {
	mutex  sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Load returns a copy of the value stored under key
func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	data, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save replaces the value stored under key
func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.values[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.values, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
