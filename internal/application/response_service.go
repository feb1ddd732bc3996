package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ResponseService records faculty replies to invitation emails. Responses are
// authenticated by the per-session invite token rather than a login.
type ResponseService struct {
	sessions SessionRepository
	locks    *KeyedLock
	now      func() time.Time
	logger   *slog.Logger
}

// NewResponseService wires the invitation response flow. The keyed lock must
// be the same instance the session service uses so responses and calendar
// edits to one session serialise against each other.
func NewResponseService(sessions SessionRepository, locks *KeyedLock, now func() time.Time, logger *slog.Logger) *ResponseService {
	if locks == nil {
		locks = NewKeyedLock()
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseService{sessions: sessions, locks: locks, now: now, logger: logger}
}

// Respond applies an accept or decline to the identified session. Checks run
// in a fixed order: request shape first, then session existence, then token
// match. Repeating an already-applied response is a no-op that still succeeds
// so a re-clicked email link renders the confirmation page again.
func (s *ResponseService) Respond(ctx context.Context, params RespondParams) (SessionView, error) {
	if s == nil || s.sessions == nil {
		return SessionView{}, fmt.Errorf("session repository not configured")
	}

	if params.SessionID == "" || params.Token == "" {
		return SessionView{}, ErrInvalidRequest
	}
	switch params.Action {
	case ActionAccept, ActionDecline:
	default:
		return SessionView{}, ErrInvalidRequest
	}
	if params.Action == ActionDecline {
		if params.Decline == nil {
			return SessionView{}, ErrInvalidRequest
		}
		if err := params.Decline.Validate(); err != nil {
			return SessionView{}, err
		}
	}

	release := s.locks.Acquire(sessionKey(params.SessionID))
	defer release()

	session, err := s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return SessionView{}, mapSessionRepoError(err)
	}

	if subtle.ConstantTimeCompare([]byte(session.InviteToken), []byte(params.Token)) != 1 {
		return SessionView{}, ErrInvalidToken
	}

	switch params.Action {
	case ActionAccept:
		session.InviteStatus = InviteAccepted
		session.Decline = nil
	case ActionDecline:
		session.InviteStatus = InviteDeclined
		session.Decline = params.Decline.clone()
	}
	session.UpdatedAt = s.now()

	persisted, err := s.sessions.UpdateSession(ctx, session)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SessionView{}, ErrNotFound
		}
		return SessionView{}, mapSessionRepoError(err)
	}

	s.logger.InfoContext(ctx, "invitation response recorded",
		"session_id", persisted.ID, "invite_status", string(persisted.InviteStatus))

	return SessionView{Session: persisted}, nil
}
