package storage

import (
	"context"
	"sync"
)

type memoryBackend struct {
	data map[string]map[string][]byte
	mu   sync.RWMutex
}

// NewMemoryBackend returns an in-memory Backend. It is not durable and
// is intended for single-process deployments and tests.
func NewMemoryBackend() Backend {
	return &memoryBackend{
		data: make(map[string]map[string][]byte),
	}
}

func (m *memoryBackend) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]map[string][]byte)
	return nil
}

func (m *memoryBackend) Put(ctx context.Context, prefix string, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[prefix] == nil {
		m.data[prefix] = make(map[string][]byte)
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	m.data[prefix][key] = buf

	return nil
}

func (m *memoryBackend) Get(ctx context.Context, prefix string, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data[prefix] == nil {
		return nil, nil
	}

	value, exists := m.data[prefix][key]
	if !exists {
		return nil, nil
	}

	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, nil
}

func (m *memoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.data[prefix] {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *memoryBackend) Delete(ctx context.Context, prefix string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[prefix] != nil {
		delete(m.data[prefix], key)
	}

	return nil
}
