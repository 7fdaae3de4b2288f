package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. A positive quota caps the total bytes of keys and
// values, mirroring the per-origin limit of browser storage.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int
}

func NewMemory(quotaBytes int) *Memory {
	return &Memory{data: make(map[string]string), quota: quotaBytes}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := m.usedLocked() - m.entrySize(key)
		if used+len(key)+len(value) > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) usedLocked() int {
	total := 0
	for k, v := range m.data {
		total += len(k) + len(v)
	}
	return total
}

func (m *Memory) entrySize(key string) int {
	value, ok := m.data[key]
	if !ok {
		return 0
	}
	return len(key) + len(value)
}
