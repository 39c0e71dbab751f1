package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter implements the CacheProvider interface in process memory.
// It backs sessions when Redis is disabled.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryAdapter creates an empty in-memory cache
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]memoryEntry), now: time.Now}
}

// NewMemoryAdapterWithClock creates an in-memory cache that reads expiry
// against now
func NewMemoryAdapterWithClock(now func() time.Time) *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]memoryEntry), now: now}
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.live(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value. A non-positive ttl never expires.
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: a.deadline(ttl)}
	return nil
}

// Touch restarts the expiry of a live key
func (a *MemoryAdapter) Touch(ctx context.Context, key string, ttl time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.live(key)
	if !ok {
		return fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	entry.expiresAt = a.deadline(ttl)
	a.entries[key] = entry
	return nil
}

func (a *MemoryAdapter) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return a.now().Add(ttl)
}

// Delete removes a key
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, key)
	return nil
}

// live returns the entry if present and unexpired, evicting it otherwise
func (a *MemoryAdapter) live(key string) (memoryEntry, bool) {
	entry, ok := a.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt) {
		delete(a.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}
