package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/application"
)

var referenceTime = time.Date(2026, time.May, 12, 9, 0, 0, 0, time.UTC)

type stubEnqueuer struct {
	mu     sync.Mutex
	emails []Email
	err    error
}

func (e *stubEnqueuer) Enqueue(email Email) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.emails = append(e.emails, email)
	return nil
}

type stubSessionReader struct {
	views map[string]application.SessionView
}

func (r *stubSessionReader) GetSession(_ context.Context, id string) (application.SessionView, error) {
	view, ok := r.views[id]
	if !ok {
		return application.SessionView{}, application.ErrNotFound
	}
	return view, nil
}

func sampleView(id string) application.SessionView {
	return application.SessionView{
		Session: application.Session{
			ID:           id,
			Title:        "Distributed Tracing in Practice",
			FacultyID:    "fac-1",
			FacultyEmail: "ada@conf.example",
			Place:        "Convention Center",
			RoomID:       "room-1",
			Start:        referenceTime,
			End:          referenceTime.Add(time.Hour),
			InviteToken:  "token-secret",
		},
		FacultyName: "Prof. Ada",
		RoomName:    "Main Hall",
	}
}

func TestSendInviteEnqueuesRenderedEmail(t *testing.T) {
	t.Parallel()

	outbox := &stubEnqueuer{}
	dispatcher := NewDispatcher(outbox, nil, NewLinkBuilder("https://conf.example"), nil, nil)

	status := dispatcher.SendInvite(context.Background(), sampleView("sess-1"))
	if status != application.EmailStatusSent {
		t.Fatalf("status = %q, want %q", status, application.EmailStatusSent)
	}
	if len(outbox.emails) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(outbox.emails))
	}

	email := outbox.emails[0]
	if email.To != "ada@conf.example" {
		t.Fatalf("to = %q", email.To)
	}
	if !strings.Contains(email.Subject, "Distributed Tracing in Practice") {
		t.Fatalf("subject = %q", email.Subject)
	}
	for _, want := range []string{
		"https://conf.example/respond?",
		"action=accept",
		"action=decline",
		"session=sess-1",
		"token=token-secret",
		"Prof. Ada",
		"Main Hall",
	} {
		if !strings.Contains(email.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, email.Body)
		}
	}
}

func TestSendInviteReportsQueueFailure(t *testing.T) {
	t.Parallel()

	outbox := &stubEnqueuer{err: ErrOutboxFull}
	dispatcher := NewDispatcher(outbox, nil, NewLinkBuilder("https://conf.example"), nil, nil)

	status := dispatcher.SendInvite(context.Background(), sampleView("sess-1"))
	if status != application.EmailStatusFailed {
		t.Fatalf("status = %q, want %q", status, application.EmailStatusFailed)
	}
}

func TestSendUpdateMentionsReconfirmation(t *testing.T) {
	t.Parallel()

	outbox := &stubEnqueuer{}
	dispatcher := NewDispatcher(outbox, nil, NewLinkBuilder("https://conf.example/"), nil, nil)

	status := dispatcher.SendUpdate(context.Background(), sampleView("sess-1"))
	if status != application.EmailStatusSent {
		t.Fatalf("status = %q, want %q", status, application.EmailStatusSent)
	}
	body := outbox.emails[0].Body
	if !strings.Contains(body, "no longer applies") {
		t.Fatalf("update body should invalidate the previous response:\n%s", body)
	}
	if strings.Contains(body, "https://conf.example//respond") {
		t.Fatal("trailing slash in base URL must not double up")
	}
}

func TestSendBulkInviteCollapsesIntoOneEmail(t *testing.T) {
	t.Parallel()

	reassigned := sampleView("sess-4")
	reassigned.FacultyID = "fac-2"

	outbox := &stubEnqueuer{}
	reader := &stubSessionReader{views: map[string]application.SessionView{
		"sess-1": sampleView("sess-1"),
		"sess-3": sampleView("sess-3"),
		"sess-4": reassigned,
	}}
	dispatcher := NewDispatcher(outbox, reader, NewLinkBuilder("https://conf.example"), nil, nil)

	result := dispatcher.SendBulkInvite(context.Background(), "fac-1", "ada@conf.example",
		[]string{"sess-1", "sess-2", "sess-3", "sess-4"})
	if result.EmailStatus != application.EmailStatusSent {
		t.Fatalf("status = %q, want %q", result.EmailStatus, application.EmailStatusSent)
	}
	if len(result.Skipped) != 2 || result.Skipped[0] != "sess-2" || result.Skipped[1] != "sess-4" {
		t.Fatalf("skipped = %v, want [sess-2 sess-4]", result.Skipped)
	}
	if len(outbox.emails) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(outbox.emails))
	}

	email := outbox.emails[0]
	if email.To != "ada@conf.example" {
		t.Fatalf("to = %q", email.To)
	}
	for _, want := range []string{"session=sess-1", "session=sess-3"} {
		if !strings.Contains(email.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, email.Body)
		}
	}
	if strings.Contains(email.Body, "session=sess-4") {
		t.Fatal("reassigned session must not appear in the digest")
	}
}

func TestSendBulkInviteNothingResolvable(t *testing.T) {
	t.Parallel()

	outbox := &stubEnqueuer{}
	reader := &stubSessionReader{views: map[string]application.SessionView{}}
	dispatcher := NewDispatcher(outbox, reader, NewLinkBuilder("https://conf.example"), nil, nil)

	result := dispatcher.SendBulkInvite(context.Background(), "fac-1", "ada@conf.example", []string{"sess-1"})
	if result.EmailStatus != application.EmailStatusError {
		t.Fatalf("status = %q, want %q", result.EmailStatus, application.EmailStatusError)
	}
	if len(outbox.emails) != 0 {
		t.Fatalf("enqueued = %d, want 0", len(outbox.emails))
	}
}

type countingMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *countingMailer) Send(_ context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

func TestOutboxDeliversAndDrainsOnStop(t *testing.T) {
	t.Parallel()

	mailer := &countingMailer{}
	outbox := NewOutbox(mailer, 8, nil, nil)
	outbox.Start()

	for i := 0; i < 5; i++ {
		if err := outbox.Enqueue(Email{To: "ada@conf.example", Subject: "x"}); err != nil {
			t.Fatalf("Enqueue returned error: %v", err)
		}
	}
	outbox.Stop()

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 5 {
		t.Fatalf("delivered = %d, want 5", len(mailer.sent))
	}

	if err := outbox.Enqueue(Email{To: "ada@conf.example"}); err != ErrOutboxStopped {
		t.Fatalf("expected ErrOutboxStopped, got %v", err)
	}
}

func TestOutboxEnqueueRacingStopDoesNotPanic(t *testing.T) {
	t.Parallel()

	outbox := NewOutbox(&countingMailer{}, 4, nil, nil)
	outbox.Start()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				if err := outbox.Enqueue(Email{To: "ada@conf.example"}); errors.Is(err, ErrOutboxStopped) {
					return
				}
			}
		}()
	}

	close(start)
	outbox.Stop()
	wg.Wait()

	if err := outbox.Enqueue(Email{}); !errors.Is(err, ErrOutboxStopped) {
		t.Fatalf("expected ErrOutboxStopped after Stop, got %v", err)
	}
}

func TestOutboxRejectsWhenFull(t *testing.T) {
	t.Parallel()

	// Worker never started, so the queue cannot drain.
	outbox := NewOutbox(&countingMailer{}, 2, nil, nil)

	if err := outbox.Enqueue(Email{}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if err := outbox.Enqueue(Email{}); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if err := outbox.Enqueue(Email{}); err != ErrOutboxFull {
		t.Fatalf("expected ErrOutboxFull, got %v", err)
	}
}
