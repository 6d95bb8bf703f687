package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryService is an in-process CacheService used when no memcache server
// is configured. Entries honour their own expiration; maxTTL caps how long
// the LRU keeps anything.
type MemoryService struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryService creates an in-process cache holding at most size keys
func NewMemoryService(size int, maxTTL time.Duration) *MemoryService {
	return &MemoryService{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

// Get retrieves a value that has not yet expired
func (m *MemoryService) Get(key string) ([]byte, error) {
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.lru.Remove(key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value. A zero expiration keeps it until the LRU evicts it.
func (m *MemoryService) Set(key string, value []byte, expiration time.Duration) error {
	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = m.now().Add(expiration)
	}
	m.lru.Add(key, entry)
	return nil
}

// Delete removes a value
func (m *MemoryService) Delete(key string) error {
	m.lru.Remove(key)
	return nil
}
