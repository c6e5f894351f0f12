package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend keeps entries in a process-local map. Invalidate swaps the
// map, so readers holding the lock never see a partial clear.
type MemoryBackend struct {
	mu         sync.RWMutex
	generation uint64
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryBackend creates a memory backend. A zero ttl keeps entries until
// the next invalidation, a zero maxEntries means unbounded.
func NewMemoryBackend(ttl time.Duration, maxEntries int) *MemoryBackend {
	return &MemoryBackend{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (b *MemoryBackend) Generation(ctx context.Context) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation, nil
}

func (b *MemoryBackend) Get(ctx context.Context, gen uint64, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if gen != b.generation {
		return nil, false, nil
	}

	entry, ok := b.entries[key]
	if !ok || b.expired(entry) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (b *MemoryBackend) Set(ctx context.Context, gen uint64, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return ErrStaleGeneration
	}

	if _, exists := b.entries[key]; !exists && b.maxEntries > 0 && len(b.entries) >= b.maxEntries {
		b.evictLocked()
	}

	entry := memoryEntry{value: value}
	if b.ttl > 0 {
		entry.expiresAt = b.now().Add(b.ttl)
	}
	b.entries[key] = entry
	return nil
}

func (b *MemoryBackend) Invalidate(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	b.entries = make(map[string]memoryEntry)
	return b.generation, nil
}

// Len returns the number of stored entries, expired ones included
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *MemoryBackend) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && b.now().After(entry.expiresAt)
}

// evictLocked drops expired entries, or one arbitrary entry when none expired
func (b *MemoryBackend) evictLocked() {
	removed := false
	for key, entry := range b.entries {
		if b.expired(entry) {
			delete(b.entries, key)
			removed = true
		}
	}
	if removed {
		return
	}
	for key := range b.entries {
		delete(b.entries, key)
		return
	}
}
