package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresStoreSetGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	s := NewPostgresStore(testPool)

	if err := s.Set(ctx, "users", "u1", map[string]any{
		"phoneNumber": "+31612345678",
		"friends":     []string{},
	}, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.String("phoneNumber") != "+31612345678" {
		t.Fatalf("unexpected document: %+v", doc.Data)
	}

	if err := s.Set(ctx, "users", "u1", map[string]any{"fullName": "Ana"}, true); err != nil {
		t.Fatalf("merge set: %v", err)
	}
	doc, err = s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get after merge: %v", err)
	}
	if doc.String("fullName") != "Ana" || doc.String("phoneNumber") != "+31612345678" {
		t.Fatalf("merge lost fields: %+v", doc.Data)
	}

	for i := 0; i < 2; i++ {
		if err := s.Update(ctx, "users", "u1", map[string]any{"friends": ArrayUnion("u2")}); err != nil {
			t.Fatalf("union %d: %v", i, err)
		}
	}
	doc, _ = s.Get(ctx, "users", "u1")
	if friends := doc.StringSlice("friends"); len(friends) != 1 || friends[0] != "u2" {
		t.Fatalf("array union not idempotent: %v", friends)
	}

	if err := s.Update(ctx, "users", "u1", map[string]any{"friends": ArrayRemove("u2")}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	doc, _ = s.Get(ctx, "users", "u1")
	if friends := doc.StringSlice("friends"); len(friends) != 0 {
		t.Fatalf("array remove failed: %v", friends)
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

func TestPostgresStoreUpdateMissingDocument(t *testing.T) {
	resetDatabase(t)

	s := NewPostgresStore(testPool)
	err := s.Update(context.Background(), "users", "ghost", map[string]any{"fullName": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestPostgresStoreQueryFiltersOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	s := NewPostgresStore(testPool)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []struct {
		id    string
		owner string
		at    time.Time
	}{
		{"v1", "ana", base.Add(3 * time.Second)},
		{"v2", "bob", base.Add(1 * time.Second)},
		{"v3", "ana", base.Add(500 * time.Millisecond)},
		{"v4", "cas", base.Add(2 * time.Second)},
	}
	for _, row := range rows {
		if err := s.Set(ctx, "videos", row.id, map[string]any{
			"userId":    row.owner,
			"createdAt": row.at,
		}, false); err != nil {
			t.Fatalf("set %s: %v", row.id, err)
		}
	}

	docs, err := s.Query(ctx, "videos", Query{
		Filters:    []Filter{{Field: "userId", Op: OpIn, Value: []string{"ana", "bob"}}},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      2,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs got %d", len(docs))
	}
	if docs[0].ID != "v1" || docs[1].ID != "v2" {
		t.Fatalf("unexpected order: %s, %s", docs[0].ID, docs[1].ID)
	}

	docs, err = s.Query(ctx, "videos", Query{
		Filters: []Filter{{Field: "userId", Op: OpEqual, Value: "cas"}},
	})
	if err != nil {
		t.Fatalf("equal query: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "v4" {
		t.Fatalf("unexpected equal result: %v", docs)
	}

	wide := make([]string, MaxInValues+1)
	for i := range wide {
		wide[i] = fmt.Sprintf("u%d", i)
	}
	if _, err := s.Query(ctx, "videos", Query{
		Filters: []Filter{{Field: "userId", Op: OpIn, Value: wide}},
	}); !errors.Is(err, ErrTooManyValues) {
		t.Fatalf("expected ErrTooManyValues got %v", err)
	}
}

func TestPostgresStoreAdd(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	s := NewPostgresStore(testPool)

	id, err := s.Add(ctx, "comments", map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	doc, err := s.Get(ctx, "comments", id)
	if err != nil {
		t.Fatalf("get added document: %v", err)
	}
	if doc.String("text") != "hello" {
		t.Fatalf("unexpected document: %+v", doc.Data)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "DELETE FROM documents"); err != nil {
		t.Fatalf("clear documents: %v", err)
	}
}
