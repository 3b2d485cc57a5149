package cache

import (
	"sync"

	"github.com/huetone-ai/huetone/pkg/models"
)

// memoryStore is the process-lifetime fallback used whenever the durable
// store is unavailable. Same TTL semantics, no persistence.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]models.CacheEntry)}
}

func (m *memoryStore) get(key string) (models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	return entry, ok
}

func (m *memoryStore) put(entry models.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = entry
}

func (m *memoryStore) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *memoryStore) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

func (m *memoryStore) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
