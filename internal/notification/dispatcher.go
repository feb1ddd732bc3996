package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/observability"
)

// Enqueuer accepts rendered emails for asynchronous delivery.
type Enqueuer interface {
	Enqueue(email Email) error
}

// SessionReader re-reads session state before bulk sends. Sessions deleted
// between selection and dispatch must not receive stale invitations.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (application.SessionView, error)
}

// Dispatcher renders notification emails and hands them to the outbox. It
// reports enqueue outcomes only; delivery happens in the background and a
// failed email never rolls back the scheduling write it belongs to.
type Dispatcher struct {
	outbox   Enqueuer
	sessions SessionReader
	links    *LinkBuilder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher wires the dispatcher. sessions may be nil when bulk sends
// are not needed.
func NewDispatcher(outbox Enqueuer, sessions SessionReader, links *LinkBuilder, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{outbox: outbox, sessions: sessions, links: links, logger: logger, metrics: metrics}
}

// SendInvite enqueues the initial invitation email for a session.
func (d *Dispatcher) SendInvite(ctx context.Context, view application.SessionView) application.EmailStatus {
	return d.dispatch(ctx, view, "invite", renderInvite)
}

// SendUpdate enqueues the re-confirmation email after a calendar change.
func (d *Dispatcher) SendUpdate(ctx context.Context, view application.SessionView) application.EmailStatus {
	return d.dispatch(ctx, view, "update", renderUpdate)
}

// BulkInviteResult reports the outcome of a bulk invitation send. Skipped
// lists the session ids excluded from the email.
type BulkInviteResult struct {
	EmailStatus application.EmailStatus
	Skipped     []string
}

// SendBulkInvite re-reads the faculty member's sessions from the store and
// collapses them into a single digest email. Caller-supplied session copies
// are never trusted; ids that no longer resolve, or that belong to a
// different faculty member by now, are skipped and reported.
func (d *Dispatcher) SendBulkInvite(ctx context.Context, facultyID, email string, sessionIDs []string) BulkInviteResult {
	result := BulkInviteResult{EmailStatus: application.EmailStatusError}
	if d == nil || d.sessions == nil || d.outbox == nil {
		return result
	}

	views := make([]application.SessionView, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		view, err := d.sessions.GetSession(ctx, id)
		switch {
		case errors.Is(err, application.ErrNotFound):
			d.logger.WarnContext(ctx, "bulk invite skipped", "session_id", id, "error", "session not found")
			result.Skipped = append(result.Skipped, id)
		case err != nil:
			d.logger.WarnContext(ctx, "bulk invite skipped", "session_id", id, "error", err)
			result.Skipped = append(result.Skipped, id)
		case view.FacultyID != facultyID:
			d.logger.WarnContext(ctx, "bulk invite skipped",
				"session_id", id, "error", "session reassigned to another faculty member")
			result.Skipped = append(result.Skipped, id)
		default:
			views = append(views, view)
		}
	}
	if len(views) == 0 {
		return result
	}

	subject, body, err := renderBulkInvite(views, d.links)
	if err != nil {
		d.logger.ErrorContext(ctx, "email rendering failed", "kind", "bulk_invite", "error", err)
		return result
	}
	if err := d.outbox.Enqueue(Email{To: email, Subject: subject, Body: body}); err != nil {
		d.logger.ErrorContext(ctx, "email enqueue failed", "kind", "bulk_invite", "error", err)
		result.EmailStatus = application.EmailStatusFailed
		return result
	}

	d.metrics.EmailEnqueued("bulk_invite")
	d.logger.InfoContext(ctx, "email enqueued",
		"kind", "bulk_invite", "to", email, "sessions", len(views))
	result.EmailStatus = application.EmailStatusSent
	return result
}

type renderFunc func(application.SessionView, *LinkBuilder) (string, string, error)

func (d *Dispatcher) dispatch(ctx context.Context, view application.SessionView, kind string, render renderFunc) application.EmailStatus {
	if d == nil || d.outbox == nil {
		return application.EmailStatusError
	}

	subject, body, err := render(view, d.links)
	if err != nil {
		d.logger.ErrorContext(ctx, "email rendering failed",
			"session_id", view.ID, "kind", kind, "error", err)
		return application.EmailStatusError
	}

	email := Email{To: view.FacultyEmail, Subject: subject, Body: body}
	if err := d.outbox.Enqueue(email); err != nil {
		d.logger.ErrorContext(ctx, "email enqueue failed",
			"session_id", view.ID, "kind", kind, "error", err)
		return application.EmailStatusFailed
	}

	d.metrics.EmailEnqueued(kind)
	d.logger.InfoContext(ctx, "email enqueued",
		"session_id", view.ID, "kind", kind, "to", view.FacultyEmail)
	return application.EmailStatusSent
}
