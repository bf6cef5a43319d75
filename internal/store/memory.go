package store

import (
	"context"
	"sync"
)

// memoryKV keeps every collection in a process-local map. Used for tests
// and single-node deployments with no persistence requirement.
type memoryKV struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore() *KVStore {
	return newKVStore(&memoryKV{data: make(map[string]map[string][]byte)})
}

func (m *memoryKV) Put(_ context.Context, collection, id string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[collection][id] = stored
	return nil
}

func (m *memoryKV) Get(_ context.Context, collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memoryKV) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)
	return nil
}

func (m *memoryKV) Scan(_ context.Context, collection string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := make([][]byte, 0, len(m.data[collection]))
	for _, value := range m.data[collection] {
		out := make([]byte, len(value))
		copy(out, value)
		values = append(values, out)
	}
	return values, nil
}

func (m *memoryKV) Ping(context.Context) error { return nil }
func (m *memoryKV) Close() error               { return nil }
