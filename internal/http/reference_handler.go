package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/conference-scheduler/internal/application"
)

type referenceService interface {
	ListFaculties(ctx context.Context) ([]application.Faculty, error)
	ListRooms(ctx context.Context) ([]application.Room, error)
}

// ReferenceHandler serves the read-only faculty and room catalogs.
type ReferenceHandler struct {
	service   referenceService
	responder responder
}

func NewReferenceHandler(service referenceService, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{service: service, responder: newResponder(logger)}
}

func (h *ReferenceHandler) ListFaculties(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	faculties, err := h.service.ListFaculties(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]facultyDTO, 0, len(faculties))
	for _, faculty := range faculties {
		out = append(out, facultyDTO{ID: faculty.ID, Name: faculty.Name, Email: faculty.Email})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listFacultiesResponse{Faculties: out})
}

func (h *ReferenceHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomDTO{ID: room.ID, Name: room.Name})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: out})
}

type facultyDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type roomDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listFacultiesResponse struct {
	Faculties []facultyDTO `json:"faculties"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}
