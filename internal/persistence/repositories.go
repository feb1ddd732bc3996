package persistence

import "context"

// FacultyRepository exposes operations over faculty reference data. The
// scheduling core only reads faculties; Create exists so seeding tools and
// tests can populate the directory.
type FacultyRepository interface {
	CreateFaculty(ctx context.Context, faculty Faculty) error
	GetFaculty(ctx context.Context, id string) (Faculty, error)
	ListFaculties(ctx context.Context) ([]Faculty, error)
}

// RoomRepository exposes operations over the room catalog, with the same
// read-mostly contract as FacultyRepository.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// SessionFilter narrows session queries.
type SessionFilter struct {
	FacultyID string
	RoomID    string
	Status    string
}

// SessionRepository stores speaking sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}
