package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Faculties persistence.FacultyRepository
	Rooms     persistence.RoomRepository
	Sessions  persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a temporary database file that
// is migrated automatically. A cleanup callback is registered with the
// provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "scheduler.db")

	store, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Faculties: store.Faculties(),
		Rooms:     store.Rooms(),
		Sessions:  store.Sessions(),
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedSession inserts the fixture's faculty, room, and session records.
func (h *SQLiteHarness) SeedSession(tb testing.TB, fixture SessionFixture) {
	tb.Helper()
	ctx := context.Background()

	faculty := NewFacultyFixture(WithFacultyID(fixture.FacultyID), WithFacultyEmail(fixture.FacultyEmail))
	if err := h.Faculties.CreateFaculty(ctx, faculty.Persistence()); err != nil {
		tb.Fatalf("failed to seed faculty: %v", err)
	}
	room := NewRoomFixture(WithRoomID(fixture.RoomID))
	if err := h.Rooms.CreateRoom(ctx, room.Persistence()); err != nil {
		tb.Fatalf("failed to seed room: %v", err)
	}
	if err := h.Sessions.CreateSession(ctx, fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed session: %v", err)
	}
}
