// Package testfixtures provides deterministic builders shared by the
// service, persistence, and handler test suites.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/scheduler"
)

var (
	facultyCounter uint64
	roomCounter    uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.May, 12, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Faculty fixtures ---------------------------

// FacultyFixture represents a deterministic faculty record.
type FacultyFixture struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FacultyOption configures the generated faculty fixture.
type FacultyOption func(*FacultyFixture)

// NewFacultyFixture returns a deterministic faculty fixture with optional overrides.
func NewFacultyFixture(opts ...FacultyOption) FacultyFixture {
	idx := atomic.AddUint64(&facultyCounter, 1)
	id := fmt.Sprintf("faculty-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := FacultyFixture{
		ID:        id,
		Name:      fmt.Sprintf("Faculty %03d", idx),
		Email:     fmt.Sprintf("%s@conf.example", id),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithFacultyID overrides the generated faculty ID.
func WithFacultyID(id string) FacultyOption {
	return func(f *FacultyFixture) {
		f.ID = id
	}
}

// WithFacultyName overrides the generated name.
func WithFacultyName(name string) FacultyOption {
	return func(f *FacultyFixture) {
		f.Name = name
	}
}

// WithFacultyEmail overrides the generated email address.
func WithFacultyEmail(email string) FacultyOption {
	return func(f *FacultyFixture) {
		f.Email = email
	}
}

// Application returns the fixture as an application.Faculty value.
func (f FacultyFixture) Application() application.Faculty {
	return application.Faculty{ID: f.ID, Name: f.Name, Email: f.Email}
}

// Persistence returns the fixture as a persistence.Faculty value.
func (f FacultyFixture) Persistence() persistence.Faculty {
	return persistence.Faculty{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ------------------------------ Room fixtures ----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{ID: f.ID, Name: f.Name}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic speaking session record.
type SessionFixture struct {
	ID           string
	Title        string
	Description  string
	FacultyID    string
	FacultyEmail string
	Place        string
	RoomID       string
	Start        time.Time
	End          time.Time
	Status       application.SessionStatus
	InviteStatus application.InviteStatus
	InviteToken  string
	Decline      *application.DeclineDetail
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * 2 * time.Hour)
	fixture := SessionFixture{
		ID:           id,
		Title:        fmt.Sprintf("Session %03d", idx),
		FacultyID:    fmt.Sprintf("faculty-%03d", idx),
		FacultyEmail: fmt.Sprintf("faculty-%03d@conf.example", idx),
		Place:        "Convention Center",
		RoomID:       fmt.Sprintf("room-%03d", idx),
		Start:        start,
		End:          start.Add(time.Hour),
		Status:       application.StatusDraft,
		InviteStatus: application.InvitePending,
		InviteToken:  fmt.Sprintf("token-%03d", idx),
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionFaculty sets the faculty reference and email.
func WithSessionFaculty(facultyID, email string) SessionOption {
	return func(f *SessionFixture) {
		f.FacultyID = facultyID
		f.FacultyEmail = email
	}
}

// WithSessionRoom sets the room reference.
func WithSessionRoom(roomID string) SessionOption {
	return func(f *SessionFixture) {
		f.RoomID = roomID
	}
}

// WithSessionWindow sets the start and end times.
func WithSessionWindow(start, end time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.Start = start
		f.End = end
	}
}

// WithSessionToken overrides the invite token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.InviteToken = token
	}
}

// WithSessionInviteStatus sets the invitation state.
func WithSessionInviteStatus(status application.InviteStatus) SessionOption {
	return func(f *SessionFixture) {
		f.InviteStatus = status
	}
}

// WithSessionDecline sets the rejection detail and marks the invite declined.
func WithSessionDecline(detail application.DeclineDetail) SessionOption {
	return func(f *SessionFixture) {
		f.InviteStatus = application.InviteDeclined
		copied := detail
		f.Decline = &copied
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	var decline *application.DeclineDetail
	if f.Decline != nil {
		copied := *f.Decline
		decline = &copied
	}
	return application.Session{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		FacultyID:    f.FacultyID,
		FacultyEmail: f.FacultyEmail,
		Place:        f.Place,
		RoomID:       f.RoomID,
		Start:        f.Start,
		End:          f.End,
		Status:       f.Status,
		InviteStatus: f.InviteStatus,
		InviteToken:  f.InviteToken,
		Decline:      decline,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	session := persistence.Session{
		ID:           f.ID,
		Title:        f.Title,
		FacultyID:    f.FacultyID,
		FacultyEmail: f.FacultyEmail,
		Place:        f.Place,
		RoomID:       f.RoomID,
		Start:        f.Start,
		End:          f.End,
		Status:       string(f.Status),
		InviteStatus: string(f.InviteStatus),
		InviteToken:  f.InviteToken,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
	if f.Description != "" {
		desc := f.Description
		session.Description = &desc
	}
	if f.Decline != nil {
		reason := string(f.Decline.Reason)
		session.RejectionReason = &reason
		if f.Decline.SuggestedTopic != "" {
			topic := f.Decline.SuggestedTopic
			session.SuggestedTopic = &topic
		}
		if f.Decline.SuggestedStart != nil {
			start := *f.Decline.SuggestedStart
			session.SuggestedStart = &start
		}
		if f.Decline.SuggestedEnd != nil {
			end := *f.Decline.SuggestedEnd
			session.SuggestedEnd = &end
		}
		if f.Decline.Comment != "" {
			comment := f.Decline.Comment
			session.OptionalQuery = &comment
		}
	}
	return session
}

// Scheduler returns the fixture as a scheduler.Session value.
func (f SessionFixture) Scheduler() scheduler.Session {
	return scheduler.Session{
		ID:        f.ID,
		FacultyID: f.FacultyID,
		RoomID:    f.RoomID,
		Start:     f.Start,
		End:       f.End,
	}
}
