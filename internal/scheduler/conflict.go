package scheduler

import (
	"fmt"
	"time"
)

// Session is the scheduling view of a speaking session: the resources it
// occupies and the window it occupies them for.
type Session struct {
	ID        string
	FacultyID string
	RoomID    string
	Start     time.Time
	End       time.Time
}

// Candidate describes a booking to check against existing sessions.
// ExcludeSessionID removes a single session from consideration so that an
// update can be checked against everything except itself.
type Candidate struct {
	FacultyID        string
	RoomID           string
	Start            time.Time
	End              time.Time
	ExcludeSessionID string
}

// Kind describes the resource a conflict is about.
type Kind string

const (
	// KindFaculty indicates the faculty member is double-booked.
	KindFaculty Kind = "faculty"
	// KindRoom indicates the room is double-booked.
	KindRoom Kind = "room"
)

// Conflict details an overlapping booking that callers can present to users.
type Conflict struct {
	Kind      Kind
	SessionID string
	Message   string
}

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// DetectConflicts scans existing sessions and reports every faculty and room
// collision with the candidate window. A single existing session can
// contribute both a faculty conflict and a room conflict, as two separate
// descriptors. The result preserves the scan order of existing; callers decide
// any further ordering policy. The function has no side effects and is safe to
// use as a dry run.
func DetectConflicts(existing []Session, candidate Candidate) []Conflict {
	var conflicts []Conflict

	for _, session := range existing {
		if candidate.ExcludeSessionID != "" && session.ID == candidate.ExcludeSessionID {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, session.Start, session.End) {
			continue
		}

		if candidate.FacultyID != "" && session.FacultyID == candidate.FacultyID {
			conflicts = append(conflicts, Conflict{
				Kind:      KindFaculty,
				SessionID: session.ID,
				Message: fmt.Sprintf("faculty %s is already booked by session %s (%s - %s)",
					session.FacultyID, session.ID, formatInstant(session.Start), formatInstant(session.End)),
			})
		}
		if candidate.RoomID != "" && session.RoomID == candidate.RoomID {
			conflicts = append(conflicts, Conflict{
				Kind:      KindRoom,
				SessionID: session.ID,
				Message: fmt.Sprintf("room %s is already booked by session %s (%s - %s)",
					session.RoomID, session.ID, formatInstant(session.Start), formatInstant(session.End)),
			})
		}
	}

	return conflicts
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
