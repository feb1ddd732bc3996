package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/scheduler"
)

const (
	// minSessionDuration is the floor every committed time window must satisfy.
	minSessionDuration = 15 * time.Minute
	// defaultSessionDuration is applied when a create request omits the end time.
	defaultSessionDuration = time.Hour
)

// SessionRepository captures the persistence interactions needed by the
// lifecycle service.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, filter SessionRepositoryFilter) ([]Session, error)
}

// SessionRepositoryFilter narrows queries issued to the session repository.
type SessionRepositoryFilter struct {
	FacultyID string
	RoomID    string
	Status    SessionStatus
}

// FacultyDirectory exposes faculty reference-data lookups.
type FacultyDirectory interface {
	GetFaculty(ctx context.Context, id string) (Faculty, error)
}

// RoomCatalog exposes room reference-data lookups.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// Notifier hands invitation and re-confirmation emails to the dispatcher.
// Implementations must be best-effort: the returned status is reported to the
// caller but never rolls back a committed write.
type Notifier interface {
	SendInvite(ctx context.Context, session SessionView) EmailStatus
	SendUpdate(ctx context.Context, session SessionView) EmailStatus
}

// SessionService orchestrates session creation, update, and deletion with
// conflict enforcement and the invitation reset rule.
type SessionService struct {
	sessions       SessionRepository
	faculties      FacultyDirectory
	rooms          RoomCatalog
	notifier       Notifier
	locks          *KeyedLock
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewSessionService wires dependencies for session lifecycle operations.
// idGenerator and tokenGenerator default to UUIDs and 32-byte random hex;
// locks may be shared with the response service so both serialise on the same
// keys.
func NewSessionService(sessions SessionRepository, faculties FacultyDirectory, rooms RoomCatalog, notifier Notifier, locks *KeyedLock, idGenerator, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if locks == nil {
		locks = NewKeyedLock()
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return randomHex(32) }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		sessions:       sessions,
		faculties:      faculties,
		rooms:          rooms,
		notifier:       notifier,
		locks:          locks,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         logger,
	}
}

// CreateSession validates the request, checks for double-bookings, and
// commits the session with a fresh invite token. The invitation email is
// enqueued after the commit; its failure never undoes the write.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (CreateSessionResult, error) {
	if s == nil || s.sessions == nil {
		return CreateSessionResult{}, fmt.Errorf("session repository not configured")
	}

	input := normalizeInput(params.Input)
	if input.Status == "" {
		input.Status = StatusDraft
	}
	if input.End.IsZero() && !input.Start.IsZero() {
		input.End = input.Start.Add(defaultSessionDuration)
	}

	vErr := &ValidationError{}
	validateSessionCore(input, vErr)
	if vErr.HasErrors() {
		return CreateSessionResult{}, vErr
	}

	faculty, err := s.lookupFaculty(ctx, input.FacultyID)
	if err != nil {
		return CreateSessionResult{}, err
	}
	room, err := s.lookupRoom(ctx, input.RoomID)
	if err != nil {
		return CreateSessionResult{}, err
	}

	release := s.locks.Acquire(facultyKey(input.FacultyID), roomKey(input.RoomID))
	defer release()

	conflicts, err := s.detectConflicts(ctx, scheduler.Candidate{
		FacultyID: input.FacultyID,
		RoomID:    input.RoomID,
		Start:     input.Start,
		End:       input.End,
	})
	if err != nil {
		return CreateSessionResult{}, err
	}

	if params.ConflictOnly {
		return CreateSessionResult{Conflicts: conflicts}, nil
	}
	if len(conflicts) > 0 && !params.OverwriteConflicts {
		return CreateSessionResult{}, &SchedulingConflictError{Conflicts: conflicts}
	}

	now := s.now()
	session := Session{
		ID:           s.idGenerator(),
		Title:        input.Title,
		Description:  input.Description,
		FacultyID:    input.FacultyID,
		FacultyEmail: input.FacultyEmail,
		Place:        input.Place,
		RoomID:       input.RoomID,
		Start:        input.Start,
		End:          input.End,
		Status:       input.Status,
		InviteStatus: InvitePending,
		InviteToken:  s.tokenGenerator(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	persisted, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		return CreateSessionResult{}, mapSessionRepoError(err)
	}

	view := SessionView{Session: persisted, FacultyName: faculty.Name, RoomName: room.Name}

	emailStatus := EmailStatusError
	if s.notifier != nil {
		emailStatus = s.notifier.SendInvite(ctx, view)
	}
	if emailStatus != EmailStatusSent {
		s.logger.WarnContext(ctx, "invitation email not sent",
			"session_id", persisted.ID, "email_status", string(emailStatus))
	}

	return CreateSessionResult{Session: view, Conflicts: conflicts, EmailStatus: emailStatus}, nil
}

// UpdateSession applies a partial patch under the same conflict policy as
// create. A change to any calendar field (start, end, place, room) forces the
// invitation back to pending, clears all rejection detail in the same commit,
// and triggers a re-confirmation email.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (UpdateSessionResult, error) {
	if s == nil || s.sessions == nil {
		return UpdateSessionResult{}, fmt.Errorf("session repository not configured")
	}

	release, existing, err := s.lockForUpdate(ctx, params)
	if err != nil {
		return UpdateSessionResult{}, err
	}
	defer release()

	updated := applyPatch(existing, params.Patch)

	vErr := &ValidationError{}
	validateSessionCore(SessionInput{
		Title:        updated.Title,
		Description:  updated.Description,
		FacultyID:    updated.FacultyID,
		FacultyEmail: updated.FacultyEmail,
		Place:        updated.Place,
		RoomID:       updated.RoomID,
		Start:        updated.Start,
		End:          updated.End,
		Status:       updated.Status,
	}, vErr)
	if vErr.HasErrors() {
		return UpdateSessionResult{}, vErr
	}

	faculty, err := s.lookupFaculty(ctx, updated.FacultyID)
	if err != nil {
		return UpdateSessionResult{}, err
	}
	room, err := s.lookupRoom(ctx, updated.RoomID)
	if err != nil {
		return UpdateSessionResult{}, err
	}

	conflicts, err := s.detectConflicts(ctx, scheduler.Candidate{
		FacultyID:        updated.FacultyID,
		RoomID:           updated.RoomID,
		Start:            updated.Start,
		End:              updated.End,
		ExcludeSessionID: existing.ID,
	})
	if err != nil {
		return UpdateSessionResult{}, err
	}

	if params.ConflictOnly {
		return UpdateSessionResult{Conflicts: conflicts}, nil
	}
	if len(conflicts) > 0 && !params.OverwriteConflicts {
		return UpdateSessionResult{}, &SchedulingConflictError{Conflicts: conflicts}
	}

	calendarChanged := !updated.Start.Equal(existing.Start) ||
		!updated.End.Equal(existing.End) ||
		updated.Place != existing.Place ||
		updated.RoomID != existing.RoomID

	if calendarChanged {
		// A calendar edit invalidates any previous response, whatever it was.
		updated.InviteStatus = InvitePending
		updated.Decline = nil
	}
	updated.UpdatedAt = s.now()

	persisted, err := s.sessions.UpdateSession(ctx, updated)
	if err != nil {
		return UpdateSessionResult{}, mapSessionRepoError(err)
	}

	view := SessionView{Session: persisted, FacultyName: faculty.Name, RoomName: room.Name}

	result := UpdateSessionResult{Session: view, Conflicts: conflicts}
	if calendarChanged {
		result.EmailStatus = EmailStatusError
		if s.notifier != nil {
			result.EmailStatus = s.notifier.SendUpdate(ctx, view)
		}
		result.NotificationSent = result.EmailStatus == EmailStatusSent
		if !result.NotificationSent {
			s.logger.WarnContext(ctx, "re-confirmation email not sent",
				"session_id", persisted.ID, "email_status", string(result.EmailStatus))
		}
	}

	return result, nil
}

// lockForUpdate acquires the write locks covering the patched session and
// returns the record as read under those locks. The lock keys come from an
// unlocked read, and a competing update can move the session to another
// faculty or room before acquisition completes; holding the stale keys would
// leave the real faculty and room open to a concurrent double-booking, so
// acquisition retries with fresh keys until the locked re-read matches.
func (s *SessionService) lockForUpdate(ctx context.Context, params UpdateSessionParams) (func(), Session, error) {
	current, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return nil, Session{}, mapSessionRepoError(err)
	}

	for {
		keys := []string{
			sessionKey(params.SessionID),
			facultyKey(current.FacultyID),
			roomKey(current.RoomID),
		}
		if params.Patch.FacultyID != nil {
			keys = append(keys, facultyKey(*params.Patch.FacultyID))
		}
		if params.Patch.RoomID != nil {
			keys = append(keys, roomKey(*params.Patch.RoomID))
		}
		release := s.locks.Acquire(keys...)

		locked, err := s.sessions.GetSession(ctx, params.SessionID)
		if err != nil {
			release()
			return nil, Session{}, mapSessionRepoError(err)
		}
		if locked.FacultyID == current.FacultyID && locked.RoomID == current.RoomID {
			return release, locked, nil
		}
		release()
		current = locked
	}
}

// DeleteSession removes the session. No cancellation email is sent; the
// deletion is logged so organizers can follow up out of band.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	existing, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return mapSessionRepoError(err)
	}

	release := s.locks.Acquire(sessionKey(sessionID), facultyKey(existing.FacultyID), roomKey(existing.RoomID))
	defer release()

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return mapSessionRepoError(err)
	}

	s.logger.InfoContext(ctx, "session deleted",
		"session_id", sessionID, "faculty_id", existing.FacultyID)
	return nil
}

// GetSession returns a single session enriched with faculty and room names.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	if s == nil || s.sessions == nil {
		return SessionView{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, mapSessionRepoError(err)
	}
	return s.enrich(ctx, session)
}

// ListSessions enumerates sessions ordered by start time then ID.
func (s *SessionService) ListSessions(ctx context.Context, params ListSessionsParams) ([]SessionView, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	sessions, err := s.sessions.ListSessions(ctx, SessionRepositoryFilter{
		FacultyID: params.FacultyID,
		RoomID:    params.RoomID,
		Status:    params.Status,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	facultyNames := make(map[string]string)
	roomNames := make(map[string]string)

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		view := SessionView{Session: session}
		view.FacultyName = s.cachedFacultyName(ctx, facultyNames, session.FacultyID)
		view.RoomName = s.cachedRoomName(ctx, roomNames, session.RoomID)
		views = append(views, view)
	}
	return views, nil
}

func (s *SessionService) enrich(ctx context.Context, session Session) (SessionView, error) {
	view := SessionView{Session: session}
	if s.faculties != nil {
		if faculty, err := s.faculties.GetFaculty(ctx, session.FacultyID); err == nil {
			view.FacultyName = faculty.Name
		}
	}
	if s.rooms != nil {
		if room, err := s.rooms.GetRoom(ctx, session.RoomID); err == nil {
			view.RoomName = room.Name
		}
	}
	return view, nil
}

func (s *SessionService) cachedFacultyName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if s.faculties != nil {
		if faculty, err := s.faculties.GetFaculty(ctx, id); err == nil {
			name = faculty.Name
		}
	}
	cache[id] = name
	return name
}

func (s *SessionService) cachedRoomName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if s.rooms != nil {
		if room, err := s.rooms.GetRoom(ctx, id); err == nil {
			name = room.Name
		}
	}
	cache[id] = name
	return name
}

func (s *SessionService) lookupFaculty(ctx context.Context, id string) (Faculty, error) {
	if s.faculties == nil {
		return Faculty{}, nil
	}
	faculty, err := s.faculties.GetFaculty(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("faculty_id", "faculty does not exist")
			return Faculty{}, vErr
		}
		return Faculty{}, err
	}
	return faculty, nil
}

func (s *SessionService) lookupRoom(ctx context.Context, id string) (Room, error) {
	if s.rooms == nil {
		return Room{}, nil
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return Room{}, vErr
		}
		return Room{}, err
	}
	return room, nil
}

func (s *SessionService) detectConflicts(ctx context.Context, candidate scheduler.Candidate) ([]Conflict, error) {
	sessions, err := s.sessions.ListSessions(ctx, SessionRepositoryFilter{})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	existing := make([]scheduler.Session, 0, len(sessions))
	for _, session := range sessions {
		existing = append(existing, scheduler.Session{
			ID:        session.ID,
			FacultyID: session.FacultyID,
			RoomID:    session.RoomID,
			Start:     session.Start,
			End:       session.End,
		})
	}

	return toConflicts(scheduler.DetectConflicts(existing, candidate)), nil
}

func toConflicts(detected []scheduler.Conflict) []Conflict {
	if len(detected) == 0 {
		return nil
	}
	conflicts := make([]Conflict, 0, len(detected))
	for _, c := range detected {
		conflicts = append(conflicts, Conflict{
			Type:                 ConflictType(c.Kind),
			ConflictingSessionID: c.SessionID,
			Message:              c.Message,
		})
	}
	return conflicts
}

func normalizeInput(input SessionInput) SessionInput {
	input.Title = strings.TrimSpace(input.Title)
	input.FacultyID = strings.TrimSpace(input.FacultyID)
	input.FacultyEmail = strings.TrimSpace(input.FacultyEmail)
	input.Place = strings.TrimSpace(input.Place)
	input.RoomID = strings.TrimSpace(input.RoomID)
	return input
}

func validateSessionCore(input SessionInput, vErr *ValidationError) {
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.FacultyID == "" {
		vErr.add("faculty_id", "faculty_id is required")
	}
	if input.FacultyEmail == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.FacultyEmail); err != nil {
		vErr.add("email", "email is invalid")
	}
	if input.Place == "" {
		vErr.add("place", "place is required")
	}
	if input.RoomID == "" {
		vErr.add("room_id", "room_id is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() {
		if !input.Start.Before(input.End) {
			vErr.add("time", "end must be after start")
		} else if input.End.Sub(input.Start) < minSessionDuration {
			vErr.add("time", "duration must be at least 15 minutes")
		}
	}
	if input.Status != "" && !input.Status.Valid() {
		vErr.add("status", "status is invalid")
	}
}

func applyPatch(session Session, patch SessionPatch) Session {
	if patch.Title != nil {
		session.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		session.Description = *patch.Description
	}
	if patch.FacultyID != nil {
		session.FacultyID = strings.TrimSpace(*patch.FacultyID)
	}
	if patch.FacultyEmail != nil {
		session.FacultyEmail = strings.TrimSpace(*patch.FacultyEmail)
	}
	if patch.Place != nil {
		session.Place = strings.TrimSpace(*patch.Place)
	}
	if patch.RoomID != nil {
		session.RoomID = strings.TrimSpace(*patch.RoomID)
	}
	if patch.Start != nil {
		session.Start = *patch.Start
	}
	if patch.End != nil {
		session.End = *patch.End
	}
	if patch.Status != nil {
		session.Status = *patch.Status
	}
	return session
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("time", "end must be after start")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("references", "related records are missing")
		return vErr
	}
	return err
}

func facultyKey(id string) string { return "faculty:" + id }
func roomKey(id string) string    { return "room:" + id }
func sessionKey(id string) string { return "session:" + id }

func randomHex(bytes int) string {
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
