package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"songbird/storage"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseKV(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	if err := db.Set(ctx, "search:adele", `{"ts":1}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := db.Set(ctx, "search:adele", `{"ts":2}`); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, err := db.Get(ctx, "search:adele")
	if err != nil || got != `{"ts":2}` {
		t.Fatalf("Get() = %q, %v; want overwritten value", got, err)
	}

	if err := db.Delete(ctx, "search:adele"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := db.Get(ctx, "search:adele"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestDatabaseMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPruneOlderThan(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Set(ctx, "fresh", "x"); err != nil {
		t.Fatal(err)
	}
	old := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339Nano)
	if _, err := db.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES ('stale', 'y', ?)`, old); err != nil {
		t.Fatal(err)
	}

	n, err := db.PruneOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if _, err := db.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh key should survive: %v", err)
	}
}

func TestPruneOlderThanKeepsListedKeys(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-8 * 24 * time.Hour).Format(time.RFC3339Nano)
	for _, key := range []string{"listening_history", "search_history", "search:adele"} {
		if _, err := db.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, '[]', ?)`, key, old); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.PruneOlderThan(ctx, 7*24*time.Hour, "listening_history", "search_history")
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	for _, key := range []string{"listening_history", "search_history"} {
		if _, err := db.Get(ctx, key); err != nil {
			t.Errorf("%s should survive: %v", key, err)
		}
	}
	if _, err := db.Get(ctx, "search:adele"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("stale cache row should be pruned, err = %v", err)
	}
}
