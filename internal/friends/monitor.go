package friends

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultIdleTTL = 5 * time.Minute

// Monitor keeps one Cache per recently active principal and refreshes them on
// a fixed interval, a backstop against updates from other sessions or
// devices that on-demand refreshes would miss. The interval trades staleness
// for simplicity; correctness never depends on it.
type Monitor struct {
	svc      *Service
	interval time.Duration
	idleTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	caches map[string]*Cache
}

// NewMonitor constructs a Monitor polling at the given interval.
func NewMonitor(svc *Service, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		svc:      svc,
		interval: interval,
		idleTTL:  defaultIdleTTL,
		logger:   logger,
		now:      time.Now,
		caches:   make(map[string]*Cache),
	}
}

// Snapshot returns the relationship view for a principal, creating and
// priming its cache on first use. A refresh failure on an already primed
// cache degrades to the last good snapshot rather than an error.
func (m *Monitor) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	cache := m.cacheFor(userID)

	snapshot, primed := cache.Snapshot()
	if primed {
		return snapshot, nil
	}
	if err := cache.Refresh(ctx); err != nil {
		return Snapshot{}, err
	}
	snapshot, _ = cache.Snapshot()
	return snapshot, nil
}

// Invalidate refreshes a principal's cache immediately. Callers invoke it
// after every mutating friend operation; a failed refresh is logged and the
// stale snapshot remains serveable.
func (m *Monitor) Invalidate(ctx context.Context, userID string) {
	cache := m.cacheFor(userID)
	if err := cache.Refresh(ctx); err != nil {
		m.logger.Warn("friend cache refresh failed", "userId", userID, "error", err)
	}
}

// Run refreshes all tracked caches on the configured interval until the
// context is cancelled, evicting caches idle longer than the TTL.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshAll(ctx)
		}
	}
}

func (m *Monitor) refreshAll(ctx context.Context) {
	now := m.now()

	m.mu.Lock()
	tracked := make(map[string]*Cache, len(m.caches))
	for id, cache := range m.caches {
		if cache.idleSince(now) > m.idleTTL {
			delete(m.caches, id)
			continue
		}
		tracked[id] = cache
	}
	m.mu.Unlock()

	for id, cache := range tracked {
		if err := cache.Refresh(ctx); err != nil {
			m.logger.Warn("friend cache refresh failed", "userId", id, "error", err)
		}
	}
}

func (m *Monitor) cacheFor(userID string) *Cache {
	now := m.now()

	m.mu.Lock()
	cache, ok := m.caches[userID]
	if !ok {
		cache = NewCache(m.svc, userID)
		m.caches[userID] = cache
	}
	m.mu.Unlock()

	cache.touch(now)
	return cache
}
