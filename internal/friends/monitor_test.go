package friends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelmates/backend/internal/store"
)

// breakableStore passes reads through until broken, then fails every Get and
// Query so a refresh cannot complete.
type breakableStore struct {
	store.DocumentStore
	broken bool
}

func (b *breakableStore) Get(ctx context.Context, collection, id string) (store.Document, error) {
	if b.broken {
		return store.Document{}, errors.New("store unavailable")
	}
	return b.DocumentStore.Get(ctx, collection, id)
}

func (b *breakableStore) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	if b.broken {
		return nil, errors.New("store unavailable")
	}
	return b.DocumentStore.Query(ctx, collection, q)
}

func TestMonitorSnapshotPrimesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	svc := NewService(docs)
	monitor := NewMonitor(svc, time.Minute, nil)

	seedUser(t, docs, "alice", "+31611111111")
	seedUser(t, docs, "bob", "+31622222222")

	requestID, err := svc.SendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.AcceptRequest(ctx, "bob", requestID, "alice"); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	snapshot, err := monitor.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Friends) != 1 || snapshot.Friends[0].ID != "bob" {
		t.Fatalf("snapshot friends = %v, want [bob]", snapshot.Friends)
	}
	if snapshot.RefreshedAt.IsZero() {
		t.Fatal("expected a refresh timestamp")
	}
}

func TestMonitorSnapshotStaysStaleUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	docs := store.NewMemoryStore()
	svc := NewService(docs)
	monitor := NewMonitor(svc, time.Minute, nil)

	seedUser(t, docs, "alice", "+31611111111")
	seedUser(t, docs, "bob", "+31622222222")

	if _, err := monitor.Snapshot(ctx, "alice"); err != nil {
		t.Fatalf("prime snapshot: %v", err)
	}

	requestID, err := svc.SendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.AcceptRequest(ctx, "bob", requestID, "alice"); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	snapshot, err := monitor.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Friends) != 0 {
		t.Fatalf("expected stale snapshot before invalidation, got %v", snapshot.Friends)
	}

	monitor.Invalidate(ctx, "alice")

	snapshot, err = monitor.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("snapshot after invalidate: %v", err)
	}
	if len(snapshot.Friends) != 1 || snapshot.Friends[0].ID != "bob" {
		t.Fatalf("snapshot friends = %v, want [bob]", snapshot.Friends)
	}
}

func TestMonitorServesLastGoodSnapshotOnRefreshFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	breakable := &breakableStore{DocumentStore: mem}
	svc := NewService(breakable)
	monitor := NewMonitor(svc, time.Minute, nil)

	seedUser(t, mem, "alice", "+31611111111")
	seedUser(t, mem, "bob", "+31622222222")

	requestID, err := svc.SendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.AcceptRequest(ctx, "bob", requestID, "alice"); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	snapshot, err := monitor.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("prime snapshot: %v", err)
	}
	if len(snapshot.Friends) != 1 {
		t.Fatalf("expected primed snapshot, got %v", snapshot.Friends)
	}

	breakable.broken = true
	monitor.Invalidate(ctx, "alice")

	snapshot, err = monitor.Snapshot(ctx, "alice")
	if err != nil {
		t.Fatalf("snapshot during outage: %v", err)
	}
	if len(snapshot.Friends) != 1 || snapshot.Friends[0].ID != "bob" {
		t.Fatalf("expected last good snapshot during outage, got %v", snapshot.Friends)
	}
}

func TestMonitorSnapshotFailsWhenNeverPrimed(t *testing.T) {
	mem := store.NewMemoryStore()
	breakable := &breakableStore{DocumentStore: mem, broken: true}
	svc := NewService(breakable)
	monitor := NewMonitor(svc, time.Minute, nil)

	if _, err := monitor.Snapshot(context.Background(), "alice"); err == nil {
		t.Fatal("expected error when the first refresh fails")
	}
}

func TestCacheRefreshKeepsStateOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	breakable := &breakableStore{DocumentStore: mem}
	svc := NewService(breakable)

	seedUser(t, mem, "alice", "+31611111111")

	cache := NewCache(svc, "alice")
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	first, primed := cache.Snapshot()
	if !primed {
		t.Fatal("expected primed cache")
	}

	breakable.broken = true
	if err := cache.Refresh(ctx); err == nil {
		t.Fatal("expected refresh failure")
	}

	second, primed := cache.Snapshot()
	if !primed {
		t.Fatal("failed refresh must not unprime the cache")
	}
	if !second.RefreshedAt.Equal(first.RefreshedAt) {
		t.Fatal("failed refresh must not replace the snapshot")
	}
}
