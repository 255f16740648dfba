package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryMedium keeps values in a map. An optional byte quota over all stored
// values makes oversized writes fail like an exhausted browser storage would.
type MemoryMedium struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int
}

// MemoryOption configures a MemoryMedium.
type MemoryOption func(*MemoryMedium)

// WithQuota bounds the total stored bytes (0 = unbounded).
func WithQuota(bytes int) MemoryOption {
	return func(m *MemoryMedium) {
		if bytes >= 0 {
			m.quota = bytes
		}
	}
}

// NewMemoryMedium creates an empty in-memory medium.
func NewMemoryMedium(opts ...MemoryOption) *MemoryMedium {
	m := &MemoryMedium{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Medium.
func (m *MemoryMedium) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements Medium.
func (m *MemoryMedium) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		used := len(value)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, used, m.quota)
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Medium.
func (m *MemoryMedium) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
