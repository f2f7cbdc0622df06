// Package storage provides scoped key-value stores backing the
// snapshot caches: an in-memory store for tests and a diskv-backed
// session store, plus a watcher for cache writes made by other
// processes.
package storage

import (
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Compile-time interface check.
var _ types.Storage = (*Memory)(nil)

// Memory is an in-memory Storage, scoped to the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored
	return nil
}

// Remove deletes the value under key.
func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
