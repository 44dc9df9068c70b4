package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zaptv/zaptv/internal/models"
)

// MemoryBackend is an in-process Backend. Used by tests and as a fallback
// when no database is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]models.CacheEntry)}
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[key]
	if !ok {
		return nil, nil
	}
	out := entry
	return &out, nil
}

// Put implements Backend.
func (b *MemoryBackend) Put(_ context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	b.entries[entry.Key] = *entry
	b.mu.Unlock()
	return nil
}

// DeleteByPrefix implements Backend.
func (b *MemoryBackend) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for key := range b.entries {
		if strings.HasPrefix(key, prefix) {
			delete(b.entries, key)
			n++
		}
	}
	return n, nil
}

// DeleteExpired implements Backend.
func (b *MemoryBackend) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for key, entry := range b.entries {
		if entry.Expired(now) {
			delete(b.entries, key)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
