package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Store bundles the SQLite-backed repositories behind a single open/migrate
// lifecycle.
type Store struct {
	pool      *ConnectionPool
	sessions  *SessionRepository
	faculties *FacultyRepository
	rooms     *RoomRepository
}

// Open connects to the SQLite database identified by dsn.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}

	return &Store{
		pool:      pool,
		sessions:  NewSessionRepository(pool),
		faculties: NewFacultyRepository(pool),
		rooms:     NewRoomRepository(pool),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionRepository {
	return s.sessions
}

// Faculties returns the faculty repository.
func (s *Store) Faculties() *FacultyRepository {
	return s.faculties
}

// Rooms returns the room repository.
func (s *Store) Rooms() *RoomRepository {
	return s.rooms
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS faculties (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		description      TEXT,
		faculty_id       TEXT NOT NULL REFERENCES faculties(id),
		faculty_email    TEXT NOT NULL,
		place            TEXT NOT NULL,
		room_id          TEXT NOT NULL REFERENCES rooms(id),
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'draft',
		invite_status    TEXT NOT NULL DEFAULT 'pending',
		invite_token     TEXT NOT NULL,
		rejection_reason TEXT,
		suggested_topic  TEXT,
		suggested_start  TEXT,
		suggested_end    TEXT,
		optional_query   TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		CHECK (end_time > start_time)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_invite_token ON sessions (invite_token)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_faculty ON sessions (faculty_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_room ON sessions (room_id)`,
}

// Migrate verifies the connection and applies the schema in one transaction,
// so a failed startup never leaves a partial schema behind. Statements are
// idempotent, so Migrate is safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
