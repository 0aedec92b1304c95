package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	m.blobs[name] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
