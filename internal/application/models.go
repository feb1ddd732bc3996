package application

import "time"

// SessionStatus is the organizer-facing publication state of a session. It is
// independent of the faculty member's invitation response.
type SessionStatus string

const (
	// StatusDraft marks a session that organizers are still preparing.
	StatusDraft SessionStatus = "draft"
	// StatusConfirmed marks a session published by organizers.
	StatusConfirmed SessionStatus = "confirmed"
)

// Valid reports whether the status is a recognized publication state.
func (s SessionStatus) Valid() bool {
	return s == StatusDraft || s == StatusConfirmed
}

// InviteStatus is the faculty member's response state for a session.
type InviteStatus string

const (
	// InvitePending means the faculty member has not responded, or a calendar
	// edit invalidated a previous response.
	InvitePending InviteStatus = "pending"
	// InviteAccepted means the faculty member confirmed the session.
	InviteAccepted InviteStatus = "accepted"
	// InviteDeclined means the faculty member declined the session.
	InviteDeclined InviteStatus = "declined"
)

// RejectionReason identifies why a faculty member declined.
type RejectionReason string

const (
	// ReasonNotInterested carries no extra detail.
	ReasonNotInterested RejectionReason = "not_interested"
	// ReasonSuggestedTopic carries an alternative topic suggestion.
	ReasonSuggestedTopic RejectionReason = "suggested_topic"
	// ReasonTimeConflict carries an alternative time window.
	ReasonTimeConflict RejectionReason = "time_conflict"
)

// DeclineDetail is the tagged payload attached to a declined invitation. Only
// the fields matching Reason carry data; Validate enforces the combinations.
type DeclineDetail struct {
	Reason         RejectionReason
	SuggestedTopic string
	SuggestedStart *time.Time
	SuggestedEnd   *time.Time
	Comment        string
}

// Validate checks that the detail carries exactly the fields its reason allows.
func (d *DeclineDetail) Validate() error {
	vErr := &ValidationError{}

	switch d.Reason {
	case ReasonNotInterested:
		if d.SuggestedTopic != "" || d.SuggestedStart != nil || d.SuggestedEnd != nil || d.Comment != "" {
			vErr.add("reason", "not_interested carries no detail")
		}
	case ReasonSuggestedTopic:
		if d.SuggestedTopic == "" {
			vErr.add("suggested_topic", "suggested topic is required")
		}
		if d.SuggestedStart != nil || d.SuggestedEnd != nil || d.Comment != "" {
			vErr.add("reason", "suggested_topic carries only a topic")
		}
	case ReasonTimeConflict:
		if d.SuggestedStart == nil {
			vErr.add("suggested_start", "suggested start is required")
		}
		if d.SuggestedEnd == nil {
			vErr.add("suggested_end", "suggested end is required")
		}
		if d.SuggestedStart != nil && d.SuggestedEnd != nil && !d.SuggestedStart.Before(*d.SuggestedEnd) {
			vErr.add("suggested_time", "suggested start must be before suggested end")
		}
		if d.SuggestedTopic != "" {
			vErr.add("reason", "time_conflict carries no topic")
		}
	default:
		vErr.add("reason", "reason is invalid")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (d *DeclineDetail) clone() *DeclineDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.SuggestedStart = cloneTime(d.SuggestedStart)
	out.SuggestedEnd = cloneTime(d.SuggestedEnd)
	return &out
}

// Session represents a speaking session as seen by the application services.
type Session struct {
	ID           string
	Title        string
	Description  string
	FacultyID    string
	FacultyEmail string
	Place        string
	RoomID       string
	Start        time.Time
	End          time.Time
	Status       SessionStatus
	InviteStatus InviteStatus
	InviteToken  string
	Decline      *DeclineDetail
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionView is a session enriched with the display names its references
// resolve to. Handlers and email templates consume views, never raw sessions.
type SessionView struct {
	Session
	FacultyName string
	RoomName    string
}

// Faculty represents a speaker as reference data.
type Faculty struct {
	ID    string
	Name  string
	Email string
}

// Room represents a venue room as reference data.
type Room struct {
	ID   string
	Name string
}

// ConflictType mirrors the detector's conflict kinds at the service boundary.
type ConflictType string

const (
	// ConflictFaculty reports a double-booked faculty member.
	ConflictFaculty ConflictType = "faculty"
	// ConflictRoom reports a double-booked room.
	ConflictRoom ConflictType = "room"
)

// Conflict describes a double-booking detected against an existing session.
type Conflict struct {
	Type                 ConflictType
	ConflictingSessionID string
	Message              string
}

// EmailStatus reports the outcome of handing a notification to the outbox.
// Delivery is asynchronous; sent means accepted for delivery.
type EmailStatus string

const (
	// EmailStatusSent means the notification was accepted by the outbox.
	EmailStatusSent EmailStatus = "sent"
	// EmailStatusFailed means the outbox rejected the notification.
	EmailStatusFailed EmailStatus = "failed"
	// EmailStatusError means no dispatcher is configured.
	EmailStatusError EmailStatus = "error"
)

// SessionInput captures caller provided session fields for creation.
type SessionInput struct {
	Title        string
	Description  string
	FacultyID    string
	FacultyEmail string
	Place        string
	RoomID       string
	Start        time.Time
	End          time.Time
	Status       SessionStatus
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Input SessionInput
	// ConflictOnly requests a dry run: report conflicts without mutating.
	ConflictOnly bool
	// OverwriteConflicts commits the session despite detected conflicts.
	OverwriteConflicts bool
}

// CreateSessionResult reports the outcome of a create operation. Session is
// zero when ConflictOnly was requested.
type CreateSessionResult struct {
	Session     SessionView
	Conflicts   []Conflict
	EmailStatus EmailStatus
}

// SessionPatch carries the fields an update may change. Nil fields are left
// untouched.
type SessionPatch struct {
	Title        *string
	Description  *string
	FacultyID    *string
	FacultyEmail *string
	Place        *string
	RoomID       *string
	Start        *time.Time
	End          *time.Time
	Status       *SessionStatus
}

// UpdateSessionParams wraps the data required to update a session.
type UpdateSessionParams struct {
	SessionID          string
	Patch              SessionPatch
	ConflictOnly       bool
	OverwriteConflicts bool
}

// UpdateSessionResult reports the outcome of an update operation.
type UpdateSessionResult struct {
	Session SessionView
	// Conflicts carries detected-but-overridden conflicts as warnings.
	Conflicts []Conflict
	// NotificationSent reports whether a re-confirmation email was enqueued.
	NotificationSent bool
	EmailStatus      EmailStatus
}

// ListSessionsParams narrows session listings.
type ListSessionsParams struct {
	FacultyID string
	RoomID    string
	Status    SessionStatus
}

// RespondAction identifies the faculty member's choice on the response link.
type RespondAction string

const (
	// ActionAccept confirms the session.
	ActionAccept RespondAction = "accept"
	// ActionDecline declines the session, optionally with a reason.
	ActionDecline RespondAction = "decline"
)

// RespondParams wraps a token-authenticated invitation response.
type RespondParams struct {
	SessionID string
	Token     string
	Action    RespondAction
	// Decline carries the reason payload; required when Action is decline.
	Decline *DeclineDetail
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
