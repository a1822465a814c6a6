package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() &&
		now.After(e.expiresAt)
}

// Memory is an in-process Cache. Expired entries are
// dropped lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

// NewMemoryWithClock is NewMemory with an injectable
// clock, for tests.
func NewMemoryWithClock(
	now func() time.Time,
) *Memory {
	mem := NewMemory()
	mem.now = now

	return mem
}

func (m *Memory) Get(
	_ context.Context,
	key string,
) ([]byte, bool, error) {
	m.mu.RLock()
	item, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if item.expired(m.now()) {
		m.mu.Lock()
		// Re-check under the write lock: another
		// goroutine may have refreshed the entry.
		if cur, ok := m.entries[key]; ok &&
			cur.expired(m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()

		return nil, false, nil
	}

	return item.value, true, nil
}

func (m *Memory) Set(
	_ context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) error {
	item := memoryEntry{value: value}
	if ttl != NoTTL {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = item
	m.mu.Unlock()

	return nil
}

func (m *Memory) Invalidate(
	_ context.Context,
	key string,
) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	return nil
}

func (m *Memory) InvalidatePrefix(
	_ context.Context,
	prefix string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}

	return nil
}

// Len returns the number of stored entries, expired
// ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
