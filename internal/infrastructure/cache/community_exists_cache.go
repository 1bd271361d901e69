package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
)

// CommunityExistsCache is an in-memory TTL cache for pod existence checks.
// join and activity requests hit it instead of postgres.
type CommunityExistsCache struct {
	entries map[domain.CommunityID]communityEntry
	mu      sync.RWMutex
	ttl     time.Duration
	repo    domain.CommunityRepository
	now     func() time.Time
}

type communityEntry struct {
	exists    bool
	isActive  bool
	expiresAt time.Time
}

// NewCommunityExistsCache creates a new community existence cache.
func NewCommunityExistsCache(repo domain.CommunityRepository, ttl time.Duration) *CommunityExistsCache {
	return &CommunityExistsCache{
		entries: make(map[domain.CommunityID]communityEntry),
		ttl:     ttl,
		repo:    repo,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *CommunityExistsCache) WithClock(now func() time.Time) *CommunityExistsCache {
	c.now = now
	return c
}

// CheckActive reports whether a pod exists and is active.
// negative results are cached too.
func (c *CommunityExistsCache) CheckActive(ctx context.Context, id domain.CommunityID) (exists, isActive bool, err error) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.exists, entry.isActive, nil
	}

	community, err := c.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.store(id, communityEntry{})
		return false, false, nil
	case err != nil:
		return false, false, err
	}

	c.store(id, communityEntry{exists: true, isActive: community.IsActive()})
	return true, community.IsActive(), nil
}

func (c *CommunityExistsCache) store(id domain.CommunityID, entry communityEntry) {
	entry.expiresAt = c.now().Add(c.ttl)
	c.mu.Lock()
	c.entries[id] = entry
	c.mu.Unlock()
}

// Invalidate removes a pod from the cache.
// call this when a pod is created or its status changes.
func (c *CommunityExistsCache) Invalidate(id domain.CommunityID) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Size returns the current number of cached entries.
func (c *CommunityExistsCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries.
func (c *CommunityExistsCache) Cleanup() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}
