package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

var referenceTime = time.Date(2026, time.May, 12, 9, 0, 0, 0, time.UTC)

type stubSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]Session
	createErr error
	updateErr error
}

func newStubSessionRepo(seed ...Session) *stubSessionRepo {
	repo := &stubSessionRepo{sessions: make(map[string]Session)}
	for _, s := range seed {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (r *stubSessionRepo) CreateSession(_ context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Session{}, r.createErr
	}
	r.sessions[session.ID] = session
	return session, nil
}

func (r *stubSessionRepo) GetSession(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (r *stubSessionRepo) UpdateSession(_ context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return Session{}, r.updateErr
	}
	if _, ok := r.sessions[session.ID]; !ok {
		return Session{}, ErrNotFound
	}
	r.sessions[session.ID] = session
	return session, nil
}

func (r *stubSessionRepo) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *stubSessionRepo) ListSessions(_ context.Context, filter SessionRepositoryFilter) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, session := range r.sessions {
		if filter.FacultyID != "" && session.FacultyID != filter.FacultyID {
			continue
		}
		if filter.RoomID != "" && session.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type stubFacultyDirectory struct {
	faculties map[string]Faculty
}

func (d *stubFacultyDirectory) GetFaculty(_ context.Context, id string) (Faculty, error) {
	faculty, ok := d.faculties[id]
	if !ok {
		return Faculty{}, ErrNotFound
	}
	return faculty, nil
}

type stubRoomCatalog struct {
	rooms map[string]Room
}

func (c *stubRoomCatalog) GetRoom(_ context.Context, id string) (Room, error) {
	room, ok := c.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	invites []SessionView
	updates []SessionView
	status  EmailStatus
}

func (n *recordingNotifier) SendInvite(_ context.Context, view SessionView) EmailStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, view)
	return n.status
}

func (n *recordingNotifier) SendUpdate(_ context.Context, view SessionView) EmailStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, view)
	return n.status
}

func newTestSessionService(repo SessionRepository, notifier *recordingNotifier) *SessionService {
	ids := 0
	return NewSessionService(
		repo,
		&stubFacultyDirectory{faculties: map[string]Faculty{
			"fac-1": {ID: "fac-1", Name: "Prof. Ada", Email: "ada@conf.example"},
			"fac-2": {ID: "fac-2", Name: "Prof. Grace", Email: "grace@conf.example"},
		}},
		&stubRoomCatalog{rooms: map[string]Room{
			"room-1": {ID: "room-1", Name: "Main Hall"},
			"room-2": {ID: "room-2", Name: "Track B"},
		}},
		notifier,
		NewKeyedLock(),
		func() string { ids++; return string(rune('a'+ids-1)) + "-session" },
		func() string { return "token-fixed" },
		func() time.Time { return referenceTime },
		nil,
	)
}

func validInput() SessionInput {
	return SessionInput{
		Title:        "Distributed Tracing in Practice",
		FacultyID:    "fac-1",
		FacultyEmail: "ada@conf.example",
		Place:        "Convention Center",
		RoomID:       "room-1",
		Start:        referenceTime,
		End:          referenceTime.Add(time.Hour),
	}
}

func TestCreateSessionCommitsWithPendingInvite(t *testing.T) {
	t.Parallel()

	repo := newStubSessionRepo()
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	result, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: validInput()})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if result.Session.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if result.Session.InviteStatus != InvitePending {
		t.Fatalf("invite status = %q, want %q", result.Session.InviteStatus, InvitePending)
	}
	if result.Session.InviteToken != "token-fixed" {
		t.Fatalf("invite token = %q, want %q", result.Session.InviteToken, "token-fixed")
	}
	if result.Session.FacultyName != "Prof. Ada" || result.Session.RoomName != "Main Hall" {
		t.Fatalf("unexpected enrichment: %q / %q", result.Session.FacultyName, result.Session.RoomName)
	}
	if result.EmailStatus != EmailStatusSent {
		t.Fatalf("email status = %q, want %q", result.EmailStatus, EmailStatusSent)
	}
	if len(notifier.invites) != 1 {
		t.Fatalf("invite emails = %d, want 1", len(notifier.invites))
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("stored sessions = %d, want 1", len(repo.sessions))
	}
}

func TestCreateSessionDefaultsEndToOneHour(t *testing.T) {
	t.Parallel()

	svc := newTestSessionService(newStubSessionRepo(), &recordingNotifier{status: EmailStatusSent})

	input := validInput()
	input.End = time.Time{}
	result, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: input})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	want := input.Start.Add(time.Hour)
	if !result.Session.End.Equal(want) {
		t.Fatalf("end = %v, want %v", result.Session.End, want)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*SessionInput)
		field  string
	}{
		{"missing title", func(i *SessionInput) { i.Title = "  " }, "title"},
		{"invalid email", func(i *SessionInput) { i.FacultyEmail = "not-an-address" }, "email"},
		{"end before start", func(i *SessionInput) { i.End = i.Start.Add(-time.Hour) }, "time"},
		{"too short", func(i *SessionInput) { i.End = i.Start.Add(10 * time.Minute) }, "time"},
		{"bad status", func(i *SessionInput) { i.Status = "tentative" }, "status"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestSessionService(newStubSessionRepo(), &recordingNotifier{status: EmailStatusSent})

			input := validInput()
			tc.mutate(&input)
			_, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: input})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected field %q in %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestCreateSessionRejectsUnknownReferences(t *testing.T) {
	t.Parallel()

	svc := newTestSessionService(newStubSessionRepo(), &recordingNotifier{status: EmailStatusSent})

	input := validInput()
	input.FacultyID = "fac-missing"
	_, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: input})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := vErr.FieldErrors["faculty_id"]; got != "faculty does not exist" {
		t.Fatalf("faculty_id error = %q", got)
	}
}

func TestCreateSessionReportsFacultyAndRoomConflicts(t *testing.T) {
	t.Parallel()

	existing := Session{
		ID:        "existing",
		Title:     "Opening Keynote",
		FacultyID: "fac-1",
		RoomID:    "room-1",
		Start:     referenceTime,
		End:       referenceTime.Add(time.Hour),
		Status:    StatusConfirmed,
	}
	repo := newStubSessionRepo(existing)
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	input := validInput()
	input.Start = referenceTime.Add(30 * time.Minute)
	input.End = referenceTime.Add(90 * time.Minute)
	_, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: input})

	var conflictErr *SchedulingConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected SchedulingConflictError, got %v", err)
	}
	if len(conflictErr.Conflicts) != 2 {
		t.Fatalf("conflicts = %d, want 2", len(conflictErr.Conflicts))
	}
	if conflictErr.Conflicts[0].Type != ConflictFaculty || conflictErr.Conflicts[1].Type != ConflictRoom {
		t.Fatalf("unexpected conflict types: %+v", conflictErr.Conflicts)
	}
	if len(repo.sessions) != 1 {
		t.Fatal("conflicting session must not be persisted")
	}
	if len(notifier.invites) != 0 {
		t.Fatal("no invite may be sent on a rejected create")
	}
}

func TestCreateSessionConflictOnlyIsDryRun(t *testing.T) {
	t.Parallel()

	existing := Session{
		ID: "existing", FacultyID: "fac-1", RoomID: "room-2",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
	}
	repo := newStubSessionRepo(existing)
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	result, err := svc.CreateSession(context.Background(), CreateSessionParams{
		Input:        validInput(),
		ConflictOnly: true,
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(result.Conflicts))
	}
	if result.Session.ID != "" {
		t.Fatal("dry run must not return a committed session")
	}
	if len(repo.sessions) != 1 {
		t.Fatal("dry run must not persist")
	}
	if len(notifier.invites) != 0 {
		t.Fatal("dry run must not send email")
	}
}

func TestCreateSessionOverwriteConflictsCommits(t *testing.T) {
	t.Parallel()

	existing := Session{
		ID: "existing", FacultyID: "fac-1", RoomID: "room-2",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
	}
	repo := newStubSessionRepo(existing)
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusSent})

	result, err := svc.CreateSession(context.Background(), CreateSessionParams{
		Input:              validInput(),
		OverwriteConflicts: true,
	})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if result.Session.ID == "" {
		t.Fatal("expected committed session")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1 alongside the commit", len(result.Conflicts))
	}
	if len(repo.sessions) != 2 {
		t.Fatalf("stored sessions = %d, want 2", len(repo.sessions))
	}
}

func TestCreateSessionEmailFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	repo := newStubSessionRepo()
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusFailed})

	result, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: validInput()})
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if result.EmailStatus != EmailStatusFailed {
		t.Fatalf("email status = %q, want %q", result.EmailStatus, EmailStatusFailed)
	}
	if len(repo.sessions) != 1 {
		t.Fatal("session must remain committed after email failure")
	}
}

func TestUpdateSessionCalendarChangeResetsInvite(t *testing.T) {
	t.Parallel()

	seed := Session{
		ID: "sess-1", Title: "Distributed Tracing in Practice",
		FacultyID: "fac-1", FacultyEmail: "ada@conf.example",
		Place: "Convention Center", RoomID: "room-1",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
		Status: StatusConfirmed, InviteStatus: InviteAccepted,
		InviteToken: "token-original",
	}
	repo := newStubSessionRepo(seed)
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	newStart := referenceTime.Add(2 * time.Hour)
	newEnd := referenceTime.Add(3 * time.Hour)
	result, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
		SessionID: "sess-1",
		Patch:     SessionPatch{Start: &newStart, End: &newEnd},
	})
	if err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}
	if result.Session.InviteStatus != InvitePending {
		t.Fatalf("invite status = %q, want reset to %q", result.Session.InviteStatus, InvitePending)
	}
	if result.Session.Decline != nil {
		t.Fatal("decline detail must be cleared on calendar change")
	}
	if result.Session.InviteToken != "token-original" {
		t.Fatal("invite token must survive updates unchanged")
	}
	if !result.NotificationSent || len(notifier.updates) != 1 {
		t.Fatalf("expected one re-confirmation email, got %d (sent=%v)", len(notifier.updates), result.NotificationSent)
	}
}

func TestUpdateSessionDeclineClearedOnCalendarChange(t *testing.T) {
	t.Parallel()

	topic := "GraphQL Federation"
	seed := Session{
		ID: "sess-1", Title: "Distributed Tracing in Practice",
		FacultyID: "fac-1", FacultyEmail: "ada@conf.example",
		Place: "Convention Center", RoomID: "room-1",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
		Status: StatusDraft, InviteStatus: InviteDeclined,
		InviteToken: "token-original",
		Decline:     &DeclineDetail{Reason: ReasonSuggestedTopic, SuggestedTopic: topic},
	}
	repo := newStubSessionRepo(seed)
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusSent})

	newPlace := "Annex Building"
	result, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
		SessionID: "sess-1",
		Patch:     SessionPatch{Place: &newPlace},
	})
	if err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}
	if result.Session.InviteStatus != InvitePending || result.Session.Decline != nil {
		t.Fatalf("expected pending with no decline detail, got %q / %+v",
			result.Session.InviteStatus, result.Session.Decline)
	}
}

func TestUpdateSessionNonCalendarChangeKeepsInvite(t *testing.T) {
	t.Parallel()

	seed := Session{
		ID: "sess-1", Title: "Distributed Tracing in Practice",
		FacultyID: "fac-1", FacultyEmail: "ada@conf.example",
		Place: "Convention Center", RoomID: "room-1",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
		Status: StatusDraft, InviteStatus: InviteAccepted,
		InviteToken: "token-original",
	}
	repo := newStubSessionRepo(seed)
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	newTitle := "Distributed Tracing, Revisited"
	result, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
		SessionID: "sess-1",
		Patch:     SessionPatch{Title: &newTitle},
	})
	if err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}
	if result.Session.InviteStatus != InviteAccepted {
		t.Fatalf("invite status = %q, want untouched %q", result.Session.InviteStatus, InviteAccepted)
	}
	if result.NotificationSent || len(notifier.updates) != 0 {
		t.Fatal("metadata-only edits must not email the faculty")
	}
}

func TestUpdateSessionConflictExcludesSelf(t *testing.T) {
	t.Parallel()

	seed := Session{
		ID: "sess-1", Title: "Distributed Tracing in Practice",
		FacultyID: "fac-1", FacultyEmail: "ada@conf.example",
		Place: "Convention Center", RoomID: "room-1",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
		Status: StatusDraft, InviteStatus: InvitePending,
		InviteToken: "token-original",
	}
	repo := newStubSessionRepo(seed)
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusSent})

	newTitle := "Distributed Tracing in Practice"
	result, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
		SessionID: "sess-1",
		Patch:     SessionPatch{Title: &newTitle},
	})
	if err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("session must not conflict with itself: %+v", result.Conflicts)
	}
}

// raceSessionRepo serves a configurable number of stale reads before the
// backing store answers, and holds the first commit open so a competing call
// can be interleaved at a precise point.
type raceSessionRepo struct {
	*stubSessionRepo
	mu            sync.Mutex
	staleReads    int
	stale         Session
	commitEntered chan struct{}
	commitRelease chan struct{}
	enterOnce     sync.Once
}

func (r *raceSessionRepo) GetSession(ctx context.Context, id string) (Session, error) {
	r.mu.Lock()
	if r.staleReads > 0 {
		r.staleReads--
		stale := r.stale
		r.mu.Unlock()
		return stale, nil
	}
	r.mu.Unlock()
	return r.stubSessionRepo.GetSession(ctx, id)
}

func (r *raceSessionRepo) UpdateSession(ctx context.Context, session Session) (Session, error) {
	r.enterOnce.Do(func() { close(r.commitEntered) })
	<-r.commitRelease
	return r.stubSessionRepo.UpdateSession(ctx, session)
}

func TestUpdateSessionReacquiresLocksWhenSessionMoved(t *testing.T) {
	t.Parallel()

	// The stored record already belongs to fac-2, but the unlocked read that
	// resolves the lock keys still sees fac-1, as if a competing update won
	// the race between that read and lock acquisition.
	seed := Session{
		ID: "sess-1", Title: "Distributed Tracing in Practice",
		FacultyID: "fac-2", FacultyEmail: "grace@conf.example",
		Place: "Convention Center", RoomID: "room-1",
		Start: referenceTime.Add(2 * time.Hour), End: referenceTime.Add(3 * time.Hour),
		Status: StatusDraft, InviteStatus: InviteAccepted,
		InviteToken: "token-original",
	}
	stale := seed
	stale.FacultyID = "fac-1"

	repo := &raceSessionRepo{
		stubSessionRepo: newStubSessionRepo(seed),
		staleReads:      1,
		stale:           stale,
		commitEntered:   make(chan struct{}),
		commitRelease:   make(chan struct{}),
	}
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusSent})

	movedStart := referenceTime.Add(4 * time.Hour)
	movedEnd := referenceTime.Add(5 * time.Hour)
	updateDone := make(chan error, 1)
	go func() {
		_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			SessionID: "sess-1",
			Patch:     SessionPatch{Start: &movedStart, End: &movedEnd},
		})
		updateDone <- err
	}()
	<-repo.commitEntered

	// At its commit point the update must hold the faculty key for fac-2, so
	// a create for fac-2 in the moved window has to wait behind it and then
	// see the conflict.
	createDone := make(chan error, 1)
	go func() {
		input := validInput()
		input.FacultyID = "fac-2"
		input.FacultyEmail = "grace@conf.example"
		input.RoomID = "room-2"
		input.Start = movedStart
		input.End = movedEnd
		_, err := svc.CreateSession(context.Background(), CreateSessionParams{Input: input})
		createDone <- err
	}()

	select {
	case err := <-createDone:
		t.Fatalf("create committed while the update held the faculty lock (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(repo.commitRelease)
	if err := <-updateDone; err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}

	var conflictErr *SchedulingConflictError
	if err := <-createDone; !errors.As(err, &conflictErr) {
		t.Fatalf("expected a scheduling conflict after the session moved, got %v", err)
	}
}

func TestUpdateSessionMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestSessionService(newStubSessionRepo(), &recordingNotifier{status: EmailStatusSent})

	_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{SessionID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	seed := Session{
		ID: "sess-1", FacultyID: "fac-1", RoomID: "room-1",
		Start: referenceTime, End: referenceTime.Add(time.Hour),
	}
	repo := newStubSessionRepo(seed)
	notifier := &recordingNotifier{status: EmailStatusSent}
	svc := newTestSessionService(repo, notifier)

	if err := svc.DeleteSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatal("session must be removed")
	}
	if len(notifier.invites)+len(notifier.updates) != 0 {
		t.Fatal("deletion must not send email")
	}

	if err := svc.DeleteSession(context.Background(), "sess-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListSessionsEnrichesNames(t *testing.T) {
	t.Parallel()

	repo := newStubSessionRepo(
		Session{ID: "b", FacultyID: "fac-2", RoomID: "room-2", Start: referenceTime.Add(time.Hour), End: referenceTime.Add(2 * time.Hour)},
		Session{ID: "a", FacultyID: "fac-1", RoomID: "room-1", Start: referenceTime, End: referenceTime.Add(time.Hour)},
	)
	svc := newTestSessionService(repo, &recordingNotifier{status: EmailStatusSent})

	views, err := svc.ListSessions(context.Background(), ListSessionsParams{})
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("sessions = %d, want 2", len(views))
	}
	if views[0].ID != "a" || views[1].ID != "b" {
		t.Fatalf("unexpected order: %q, %q", views[0].ID, views[1].ID)
	}
	if views[0].FacultyName != "Prof. Ada" || views[1].RoomName != "Track B" {
		t.Fatalf("unexpected enrichment: %+v", views)
	}
}
