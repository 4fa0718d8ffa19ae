package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "users", "u1", map[string]any{"name": "ana", "friends": []string{}}, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.String("name") != "ana" {
		t.Fatalf("expected name ana got %q", doc.String("name"))
	}

	if err := s.Delete(ctx, "users", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "users", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if err := s.Delete(ctx, "users", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete got %v", err)
	}
}

func TestMemoryStoreSetMergePreservesOtherFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "users", "u1", map[string]any{"name": "ana", "phone": "+31612345678"}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "users", "u1", map[string]any{"name": "ana maria"}, true); err != nil {
		t.Fatalf("merge set: %v", err)
	}

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.String("name") != "ana maria" {
		t.Fatalf("expected merged name got %q", doc.String("name"))
	}
	if doc.String("phone") != "+31612345678" {
		t.Fatal("merge dropped an untouched field")
	}
}

func TestMemoryStoreArrayUnionIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "users", "u1", map[string]any{"friends": []string{}}, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Update(ctx, "users", "u1", map[string]any{"friends": ArrayUnion("u2")}); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	friends := doc.StringSlice("friends")
	if len(friends) != 1 || friends[0] != "u2" {
		t.Fatalf("expected exactly one u2 entry got %v", friends)
	}

	if err := s.Update(ctx, "users", "u1", map[string]any{"friends": ArrayRemove("u2")}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Update(ctx, "users", "u1", map[string]any{"friends": ArrayRemove("u2")}); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}

	doc, _ = s.Get(ctx, "users", "u1")
	if len(doc.StringSlice("friends")) != 0 {
		t.Fatalf("expected empty friends got %v", doc.StringSlice("friends"))
	}
}

func TestMemoryStoreUpdateMissingDocument(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "users", "ghost", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestMemoryStoreQueryEqualAndIn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	seed := []struct {
		id    string
		owner string
	}{
		{"v1", "ana"}, {"v2", "bob"}, {"v3", "cas"}, {"v4", "ana"},
	}
	for _, row := range seed {
		if err := s.Set(ctx, "videos", row.id, map[string]any{"userId": row.owner}, false); err != nil {
			t.Fatalf("set %s: %v", row.id, err)
		}
	}

	docs, err := s.Query(ctx, "videos", Query{
		Filters: []Filter{{Field: "userId", Op: OpEqual, Value: "ana"}},
	})
	if err != nil {
		t.Fatalf("equal query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs got %d", len(docs))
	}

	docs, err = s.Query(ctx, "videos", Query{
		Filters: []Filter{{Field: "userId", Op: OpIn, Value: []string{"bob", "cas"}}},
	})
	if err != nil {
		t.Fatalf("in query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs got %d", len(docs))
	}
}

func TestMemoryStoreQueryInLimit(t *testing.T) {
	values := make([]string, MaxInValues+1)
	for i := range values {
		values[i] = "u"
	}

	s := NewMemoryStore()
	_, err := s.Query(context.Background(), "videos", Query{
		Filters: []Filter{{Field: "userId", Op: OpIn, Value: values}},
	})
	if !errors.Is(err, ErrTooManyValues) {
		t.Fatalf("expected ErrTooManyValues got %v", err)
	}
}

func TestMemoryStoreQueryRejectsBadFieldNames(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Query(context.Background(), "videos", Query{
		Filters: []Filter{{Field: "user id; drop", Op: OpEqual, Value: "x"}},
	})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField got %v", err)
	}

	_, err = s.Query(context.Background(), "videos", Query{OrderBy: "created-at"})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField for order field got %v", err)
	}
}

func TestMemoryStoreOrderByTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order, including sub-second spacing, to exercise the
	// fixed-width timestamp encoding.
	rows := map[string]time.Time{
		"v1": base.Add(2 * time.Second),
		"v2": base.Add(500 * time.Millisecond),
		"v3": base.Add(10 * time.Second),
		"v4": base,
	}
	for id, ts := range rows {
		if err := s.Set(ctx, "videos", id, map[string]any{"createdAt": ts}, false); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}

	docs, err := s.Query(ctx, "videos", Query{OrderBy: "createdAt", Descending: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	for i := 1; i < len(docs); i++ {
		if docs[i].Time("createdAt").After(docs[i-1].Time("createdAt")) {
			t.Fatalf("results not descending at index %d", i)
		}
	}
	if docs[0].ID != "v3" || docs[len(docs)-1].ID != "v4" {
		t.Fatalf("unexpected order: %v", ids(docs))
	}
}

func TestMemoryStoreAddAssignsDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id1, err := s.Add(ctx, "comments", map[string]any{"text": "first"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id2, err := s.Add(ctx, "comments", map[string]any{"text": "second"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Fatalf("expected distinct ids got %q and %q", id1, id2)
	}
	if s.Len("comments") != 2 {
		t.Fatalf("expected 2 documents got %d", s.Len("comments"))
	}
}

func TestDocumentAccessors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Date(2026, 5, 1, 8, 30, 0, 123456789, time.UTC)
	err := s.Set(ctx, "videos", "v1", map[string]any{
		"createdAt": now,
		"likes":     3,
		"duration":  12.5,
		"likedBy":   []string{"a", "b"},
		"reactions": map[string][]string{"fire": {"a"}},
		"flag":      true,
	}, false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, "videos", "v1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !doc.Time("createdAt").Equal(now) {
		t.Fatalf("timestamp round-trip lost precision: %v vs %v", doc.Time("createdAt"), now)
	}
	if doc.Int("likes") != 3 || doc.Float("duration") != 12.5 {
		t.Fatalf("numeric accessors wrong: %d %f", doc.Int("likes"), doc.Float("duration"))
	}
	if got := doc.StringSlice("likedBy"); len(got) != 2 {
		t.Fatalf("expected 2 likedBy entries got %v", got)
	}
	if sets := doc.StringSets("reactions"); len(sets["fire"]) != 1 || sets["fire"][0] != "a" {
		t.Fatalf("reactions accessor wrong: %v", sets)
	}
	if !doc.Bool("flag") {
		t.Fatal("bool accessor wrong")
	}
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
