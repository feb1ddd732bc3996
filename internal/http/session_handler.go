package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/observability"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.CreateSessionResult, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.UpdateSessionResult, error)
	DeleteSession(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (application.SessionView, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.SessionView, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
	metrics   *observability.Metrics
}

func NewSessionHandler(service sessionService, logger *slog.Logger, metrics *observability.Metrics) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger), metrics: metrics}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Input:              input,
		ConflictOnly:       req.ConflictOnly,
		OverwriteConflicts: req.OverwriteConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.metrics.ConflictsDetected(len(result.Conflicts))

	if req.ConflictOnly {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
			Conflicts: toConflictDTOs(result.Conflicts),
		})
		return
	}

	h.metrics.SessionCreated()
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{
		Session:     toSessionDTO(result.Session),
		Conflicts:   toConflictDTOs(result.Conflicts),
		EmailStatus: string(result.EmailStatus),
	})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	result, err := h.service.UpdateSession(r.Context(), application.UpdateSessionParams{
		SessionID:          sessionID,
		Patch:              patch,
		ConflictOnly:       req.ConflictOnly,
		OverwriteConflicts: req.OverwriteConflicts,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.metrics.ConflictsDetected(len(result.Conflicts))

	if req.ConflictOnly {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
			Conflicts: toConflictDTOs(result.Conflicts),
		})
		return
	}

	h.metrics.SessionUpdated()
	response := sessionResponse{
		Session:   toSessionDTO(result.Session),
		Conflicts: toConflictDTOs(result.Conflicts),
	}
	if result.EmailStatus != "" {
		response.EmailStatus = string(result.EmailStatus)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	if err := h.service.DeleteSession(r.Context(), sessionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.metrics.SessionDeleted()
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	view, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(view)})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	views, err := h.service.ListSessions(r.Context(), buildListParams(r.URL.Query()))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(views)})
}

func buildListParams(values url.Values) application.ListSessionsParams {
	return application.ListSessionsParams{
		FacultyID: strings.TrimSpace(values.Get("facultyId")),
		RoomID:    strings.TrimSpace(values.Get("roomId")),
		Status:    application.SessionStatus(strings.TrimSpace(values.Get("status"))),
	}
}

type createSessionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FacultyID   string `json:"facultyId"`
	Email       string `json:"email"`
	Place       string `json:"place"`
	RoomID      string `json:"roomId"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Status      string `json:"status"`
	// InviteStatus is accepted for compatibility but ignored: new sessions
	// always start pending.
	InviteStatus       string `json:"inviteStatus"`
	ConflictOnly       bool   `json:"conflictOnly"`
	OverwriteConflicts bool   `json:"overwriteConflicts"`
}

func (r createSessionRequest) toInput() (application.SessionInput, error) {
	fieldErrors := map[string]string{}
	start, err := parseTimeValue(r.StartTime)
	if err != nil {
		fieldErrors["startTime"] = "timestamp is invalid"
	}
	end, err := parseTimeValue(r.EndTime)
	if err != nil {
		fieldErrors["endTime"] = "timestamp is invalid"
	}
	if len(fieldErrors) > 0 {
		return application.SessionInput{}, &application.ValidationError{FieldErrors: fieldErrors}
	}

	return application.SessionInput{
		Title:        strings.TrimSpace(r.Title),
		Description:  r.Description,
		FacultyID:    strings.TrimSpace(r.FacultyID),
		FacultyEmail: strings.TrimSpace(r.Email),
		Place:        strings.TrimSpace(r.Place),
		RoomID:       strings.TrimSpace(r.RoomID),
		Start:        start,
		End:          end,
		Status:       application.SessionStatus(strings.TrimSpace(r.Status)),
	}, nil
}

type updateSessionRequest struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	FacultyID          *string `json:"facultyId"`
	Email              *string `json:"email"`
	Place              *string `json:"place"`
	RoomID             *string `json:"roomId"`
	StartTime          *string `json:"startTime"`
	EndTime            *string `json:"endTime"`
	Status             *string `json:"status"`
	ConflictOnly       bool    `json:"conflictOnly"`
	OverwriteConflicts bool    `json:"overwriteConflicts"`
}

func (r updateSessionRequest) toPatch() (application.SessionPatch, error) {
	patch := application.SessionPatch{
		Title:       r.Title,
		Description: r.Description,
		FacultyID:   r.FacultyID,
		Place:       r.Place,
		RoomID:      r.RoomID,
	}
	if r.Email != nil {
		patch.FacultyEmail = r.Email
	}
	fieldErrors := map[string]string{}
	if r.StartTime != nil {
		ts, err := parseTimeValue(*r.StartTime)
		if err != nil {
			fieldErrors["startTime"] = "timestamp is invalid"
		}
		patch.Start = &ts
	}
	if r.EndTime != nil {
		ts, err := parseTimeValue(*r.EndTime)
		if err != nil {
			fieldErrors["endTime"] = "timestamp is invalid"
		}
		patch.End = &ts
	}
	if len(fieldErrors) > 0 {
		return application.SessionPatch{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	if r.Status != nil {
		status := application.SessionStatus(strings.TrimSpace(*r.Status))
		patch.Status = &status
	}
	return patch, nil
}

// parseTimeValue treats an empty value as omitted; anything else must be a
// valid RFC 3339 timestamp.
func parseTimeValue(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

type sessionResponse struct {
	Session     sessionDTO    `json:"session"`
	Conflicts   []conflictDTO `json:"conflicts,omitempty"`
	EmailStatus string        `json:"emailStatus,omitempty"`
}

type conflictCheckResponse struct {
	Conflicts []conflictDTO `json:"conflicts"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

// sessionDTO is the organizer facing view. The invite token never appears
// here; it travels only inside invitation emails.
type sessionDTO struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	FacultyID          string `json:"facultyId"`
	FacultyName        string `json:"facultyName,omitempty"`
	Email              string `json:"email"`
	Place              string `json:"place"`
	RoomID             string `json:"roomId"`
	RoomName           string `json:"roomName,omitempty"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	Status             string `json:"status"`
	InviteStatus       string `json:"inviteStatus"`
	RejectionReason    string `json:"rejectionReason,omitempty"`
	SuggestedTopic     string `json:"suggestedTopic,omitempty"`
	SuggestedTimeStart string `json:"suggestedTimeStart,omitempty"`
	SuggestedTimeEnd   string `json:"suggestedTimeEnd,omitempty"`
	OptionalQuery      string `json:"optionalQuery,omitempty"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

func toSessionDTO(view application.SessionView) sessionDTO {
	dto := sessionDTO{
		ID:           view.ID,
		Title:        view.Title,
		Description:  view.Description,
		FacultyID:    view.FacultyID,
		FacultyName:  view.FacultyName,
		Email:        view.FacultyEmail,
		Place:        view.Place,
		RoomID:       view.RoomID,
		RoomName:     view.RoomName,
		StartTime:    view.Start.UTC().Format(time.RFC3339Nano),
		EndTime:      view.End.UTC().Format(time.RFC3339Nano),
		Status:       string(view.Status),
		InviteStatus: string(view.InviteStatus),
		CreatedAt:    view.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    view.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if view.Decline != nil {
		dto.RejectionReason = string(view.Decline.Reason)
		dto.SuggestedTopic = view.Decline.SuggestedTopic
		dto.OptionalQuery = view.Decline.Comment
		if view.Decline.SuggestedStart != nil {
			dto.SuggestedTimeStart = view.Decline.SuggestedStart.UTC().Format(time.RFC3339Nano)
		}
		if view.Decline.SuggestedEnd != nil {
			dto.SuggestedTimeEnd = view.Decline.SuggestedEnd.UTC().Format(time.RFC3339Nano)
		}
	}
	return dto
}

func toSessionDTOs(views []application.SessionView) []sessionDTO {
	if len(views) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toSessionDTO(view))
	}
	return out
}
