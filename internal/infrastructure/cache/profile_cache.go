package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"petadopt/internal/domain/entity"
)

// ProfileCache holds resolved display profiles for a bounded time.
// Get reports a miss with (nil, false, nil).
type ProfileCache interface {
	Get(ctx context.Context, uid string) (*entity.Profile, bool, error)
	Set(ctx context.Context, profile *entity.Profile) error
	Delete(ctx context.Context, uid string) error
}

type memoryEntry struct {
	profile   entity.Profile
	expiresAt time.Time
}

// MemoryProfileCache is the in-process cache used when no Redis is configured.
type MemoryProfileCache struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemoryProfileCache(clock clockwork.Clock, ttl time.Duration) *MemoryProfileCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryProfileCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryProfileCache) Get(ctx context.Context, uid string) (*entity.Profile, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[uid]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, uid)
		c.mu.Unlock()
		return nil, false, nil
	}
	profile := entry.profile
	return &profile, true, nil
}

func (c *MemoryProfileCache) Set(ctx context.Context, profile *entity.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[profile.ID] = memoryEntry{
		profile:   *profile,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryProfileCache) Delete(ctx context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, uid)
	return nil
}
