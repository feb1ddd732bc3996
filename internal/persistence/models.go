package persistence

import "time"

// Faculty represents a speaker record referenced by sessions. Faculty records
// are reference data maintained by collaborating systems.
type Faculty struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room represents a venue room catalog entry.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session represents a speaking session stored in persistence. Rejection
// detail columns are populated only while the invite is declined.
type Session struct {
	ID              string
	Title           string
	Description     *string
	FacultyID       string
	FacultyEmail    string
	Place           string
	RoomID          string
	Start           time.Time
	End             time.Time
	Status          string
	InviteStatus    string
	InviteToken     string
	RejectionReason *string
	SuggestedTopic  *string
	SuggestedStart  *time.Time
	SuggestedEnd    *time.Time
	OptionalQuery   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
