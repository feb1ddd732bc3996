package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/example/conference-scheduler/internal/notification"
)

type bulkInviteService interface {
	SendBulkInvite(ctx context.Context, facultyID, email string, sessionIDs []string) notification.BulkInviteResult
}

// BulkInviteHandler sends one digest invitation covering a faculty member's
// selected sessions.
type BulkInviteHandler struct {
	service   bulkInviteService
	responder responder
}

func NewBulkInviteHandler(service bulkInviteService, logger *slog.Logger) *BulkInviteHandler {
	return &BulkInviteHandler{service: service, responder: newResponder(logger)}
}

func (h *BulkInviteHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bulkInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if req.FacultyID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("facultyId is required"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("email is invalid"))
		return
	}
	if len(req.Sessions) == 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("sessions must not be empty"))
		return
	}

	ids := make([]string, 0, len(req.Sessions))
	for _, session := range req.Sessions {
		if session.ID != "" {
			ids = append(ids, session.ID)
		}
	}

	result := h.service.SendBulkInvite(r.Context(), req.FacultyID, req.Email, ids)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bulkInviteResponse{
		EmailStatus: string(result.EmailStatus),
		Skipped:     result.Skipped,
	})
}

type bulkInviteRequest struct {
	FacultyID string                     `json:"facultyId"`
	Email     string                     `json:"email"`
	Sessions  []bulkInviteRequestSession `json:"sessions"`
}

type bulkInviteRequestSession struct {
	ID string `json:"id"`
}

type bulkInviteResponse struct {
	EmailStatus string   `json:"emailStatus"`
	Skipped     []string `json:"skipped,omitempty"`
}
