package friends

import (
	"context"
	"sync"
	"time"

	"github.com/reelmates/backend/internal/models"
)

// Snapshot is the client-visible projection of a principal's relationships:
// accepted friends plus the pending halves of the request funnel. It is
// re-derivable at any time; discarding it loses nothing.
type Snapshot struct {
	Friends     []models.UserProfile
	Sent        []RequestView
	Received    []RequestView
	RefreshedAt time.Time
}

// Cache materializes one principal's Snapshot. State is only replaced after
// a fully successful store round-trip, so a failed refresh leaves the last
// good (possibly stale) view intact.
type Cache struct {
	svc    *Service
	userID string

	mu       sync.RWMutex
	snapshot Snapshot
	primed   bool
	lastUsed time.Time
}

// NewCache constructs an empty cache for the given principal.
func NewCache(svc *Service, userID string) *Cache {
	return &Cache{svc: svc, userID: userID}
}

// Refresh re-derives the snapshot from the store. On any error the cached
// state is left untouched and the error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	friends, err := c.svc.ListFriends(ctx, c.userID)
	if err != nil {
		return err
	}
	sent, received, err := c.svc.ListRequests(ctx, c.userID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = Snapshot{
		Friends:     friends,
		Sent:        sent,
		Received:    received,
		RefreshedAt: time.Now().UTC(),
	}
	c.primed = true
	c.mu.Unlock()
	return nil
}

// Snapshot returns the cached view. The second result reports whether the
// cache has ever been successfully refreshed.
func (c *Cache) Snapshot() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.primed
}

func (c *Cache) touch(now time.Time) {
	c.mu.Lock()
	c.lastUsed = now
	c.mu.Unlock()
}

func (c *Cache) idleSince(now time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return now.Sub(c.lastUsed)
}
