// In-process cache tier.
//
// memoryStore is a bounded map keyed by fingerprint. Eviction is
// insertion-order (oldest key first), intentionally approximate rather than
// strict LRU: a hit does not refresh an entry's position. Entries also age
// out on a short local TTL independent of the persistent row's expiry, so a
// restarted peer or an upsert elsewhere is picked up within that window.
//
// The store is shared across concurrently-handled requests and guarded by a
// single mutex; every operation is cheap, bounded by the configured size.
package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	response string
	category string
	storedAt time.Time
}

// memoryStore is the first cache tier. Zero value is not usable; construct
// via newMemoryStore.
type memoryStore struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]memoryEntry
	order   []string // insertion order, oldest first
}

func newMemoryStore(maxSize int, ttl time.Duration) *memoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &memoryStore{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]memoryEntry, maxSize),
	}
}

// get returns the entry for key if present and within the local TTL.
// Expired entries are removed on access.
func (m *memoryStore) get(key string, now time.Time) (memoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if now.Sub(e.storedAt) > m.ttl {
		delete(m.entries, key)
		m.dropOrder(key)
		return memoryEntry{}, false
	}
	return e, true
}

// dropOrder removes key from the insertion-order slice so expiry deletes do
// not leave ghost keys behind. Linear, but bounded by maxSize. Callers hold
// the mutex.
func (m *memoryStore) dropOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// put stores the entry, evicting the oldest inserted key when full.
// Re-inserting an existing key refreshes its payload but not its position.
func (m *memoryStore) put(key string, e memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.entries[key] = e
		return
	}
	for len(m.entries) >= m.maxSize && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = e
	m.order = append(m.order, key)
}

// clear drops every entry. Used by city invalidation, which is documented as
// all-or-nothing on this tier.
func (m *memoryStore) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry, m.maxSize)
	m.order = nil
}

// len reports the current number of entries (expired ones included until
// touched). Used by tests and the stats endpoint.
func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
