package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/conference-scheduler/internal/persistence/sqlite"
)

func TestStoreMigrateIsRepeatable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate returned error: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
}

func TestStoreMigrateReportsClosedConnection(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := store.Migrate(context.Background()); err == nil {
		t.Fatal("expected an error migrating over a closed connection")
	}
}
