package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/config"
	httptransport "github.com/example/conference-scheduler/internal/http"
	"github.com/example/conference-scheduler/internal/notification"
	"github.com/example/conference-scheduler/internal/observability"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	var mailer notification.Mailer
	if cfg.MailEnabled() {
		smtpMailer, err := notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Error("failed to configure smtp relay", "error", err)
			os.Exit(1)
		}
		mailer = smtpMailer
	} else {
		logger.Warn("no SMTP relay configured, emails will be logged and dropped")
	}

	outbox := notification.NewOutbox(mailer, cfg.OutboxQueueSize, logger, metrics)
	outbox.Start()
	defer outbox.Stop()

	sessionRepo := newSessionRepositoryAdapter(store.Sessions())
	facultyDirectory := newFacultyAdapter(store.Faculties())
	roomCatalog := newRoomAdapter(store.Rooms())

	links := notification.NewLinkBuilder(cfg.PublicBaseURL)
	locks := application.NewKeyedLock()

	// Bulk sends re-read sessions through the service, and the service sends
	// invites through a dispatcher, so wiring happens in two steps.
	inviteDispatcher := notification.NewDispatcher(outbox, nil, links, logger, metrics)
	sessionService := application.NewSessionService(sessionRepo, facultyDirectory, roomCatalog, inviteDispatcher, locks, nil, nil, nil, logger)
	bulkDispatcher := notification.NewDispatcher(outbox, sessionService, links, logger, metrics)

	responseService := application.NewResponseService(sessionRepo, locks, nil, logger)
	referenceService := application.NewReferenceService(facultyDirectory, roomCatalog)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:    httptransport.NewSessionHandler(sessionService, logger, metrics),
		Respond:     httptransport.NewRespondHandler(responseService, logger, metrics),
		Reference:   httptransport.NewReferenceHandler(referenceService, logger),
		BulkInvites: httptransport.NewBulkInviteHandler(bulkDispatcher, logger),
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Instrument(metrics),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("conference scheduler listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func logLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.CreateSession(ctx, toPersistenceSession(session)); err != nil {
		return application.Session{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.UpdateSession(ctx, toPersistenceSession(session)); err != nil {
		return application.Session{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteSession(ctx context.Context, id string) error {
	return a.repo.DeleteSession(ctx, id)
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context, filter application.SessionRepositoryFilter) ([]application.Session, error) {
	models, err := a.repo.ListSessions(ctx, persistence.SessionFilter{
		FacultyID: filter.FacultyID,
		RoomID:    filter.RoomID,
		Status:    string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.Session, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationSession(model))
	}
	return sessions, nil
}

func toPersistenceSession(session application.Session) persistence.Session {
	model := persistence.Session{
		ID:           session.ID,
		Title:        session.Title,
		FacultyID:    session.FacultyID,
		FacultyEmail: session.FacultyEmail,
		Place:        session.Place,
		RoomID:       session.RoomID,
		Start:        session.Start,
		End:          session.End,
		Status:       string(session.Status),
		InviteStatus: string(session.InviteStatus),
		InviteToken:  session.InviteToken,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	if session.Description != "" {
		desc := session.Description
		model.Description = &desc
	}
	if session.Decline != nil {
		reason := string(session.Decline.Reason)
		model.RejectionReason = &reason
		if session.Decline.SuggestedTopic != "" {
			topic := session.Decline.SuggestedTopic
			model.SuggestedTopic = &topic
		}
		if session.Decline.SuggestedStart != nil {
			start := *session.Decline.SuggestedStart
			model.SuggestedStart = &start
		}
		if session.Decline.SuggestedEnd != nil {
			end := *session.Decline.SuggestedEnd
			model.SuggestedEnd = &end
		}
		if session.Decline.Comment != "" {
			comment := session.Decline.Comment
			model.OptionalQuery = &comment
		}
	}
	return model
}

func toApplicationSession(model persistence.Session) application.Session {
	session := application.Session{
		ID:           model.ID,
		Title:        model.Title,
		FacultyID:    model.FacultyID,
		FacultyEmail: model.FacultyEmail,
		Place:        model.Place,
		RoomID:       model.RoomID,
		Start:        model.Start,
		End:          model.End,
		Status:       application.SessionStatus(model.Status),
		InviteStatus: application.InviteStatus(model.InviteStatus),
		InviteToken:  model.InviteToken,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if model.Description != nil {
		session.Description = *model.Description
	}
	if model.RejectionReason != nil {
		decline := &application.DeclineDetail{Reason: application.RejectionReason(*model.RejectionReason)}
		if model.SuggestedTopic != nil {
			decline.SuggestedTopic = *model.SuggestedTopic
		}
		if model.SuggestedStart != nil {
			start := *model.SuggestedStart
			decline.SuggestedStart = &start
		}
		if model.SuggestedEnd != nil {
			end := *model.SuggestedEnd
			decline.SuggestedEnd = &end
		}
		if model.OptionalQuery != nil {
			decline.Comment = *model.OptionalQuery
		}
		session.Decline = decline
	}
	return session
}

type facultyAdapter struct {
	repo persistence.FacultyRepository
}

func newFacultyAdapter(repo persistence.FacultyRepository) *facultyAdapter {
	return &facultyAdapter{repo: repo}
}

func (a *facultyAdapter) GetFaculty(ctx context.Context, id string) (application.Faculty, error) {
	stored, err := a.repo.GetFaculty(ctx, id)
	if err != nil {
		return application.Faculty{}, err
	}
	return application.Faculty{ID: stored.ID, Name: stored.Name, Email: stored.Email}, nil
}

func (a *facultyAdapter) ListFaculties(ctx context.Context) ([]application.Faculty, error) {
	models, err := a.repo.ListFaculties(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	faculties := make([]application.Faculty, 0, len(models))
	for _, model := range models {
		faculties = append(faculties, application.Faculty{ID: model.ID, Name: model.Name, Email: model.Email})
	}
	return faculties, nil
}

type roomAdapter struct {
	repo persistence.RoomRepository
}

func newRoomAdapter(repo persistence.RoomRepository) *roomAdapter {
	return &roomAdapter{repo: repo}
}

func (a *roomAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return application.Room{ID: stored.ID, Name: stored.Name}, nil
}

func (a *roomAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, application.Room{ID: model.ID, Name: model.Name})
	}
	return rooms, nil
}
