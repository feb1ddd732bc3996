package application

import (
	"context"
	"fmt"
)

// FacultyLister enumerates the faculty catalog.
type FacultyLister interface {
	ListFaculties(ctx context.Context) ([]Faculty, error)
}

// RoomLister enumerates the room catalog.
type RoomLister interface {
	ListRooms(ctx context.Context) ([]Room, error)
}

// ReferenceService exposes the read-only reference data organizers pick
// sessions against.
type ReferenceService struct {
	faculties FacultyLister
	rooms     RoomLister
}

func NewReferenceService(faculties FacultyLister, rooms RoomLister) *ReferenceService {
	return &ReferenceService{faculties: faculties, rooms: rooms}
}

func (s *ReferenceService) ListFaculties(ctx context.Context) ([]Faculty, error) {
	if s == nil || s.faculties == nil {
		return nil, fmt.Errorf("faculty catalog not configured")
	}
	return s.faculties.ListFaculties(ctx)
}

func (s *ReferenceService) ListRooms(ctx context.Context) ([]Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room catalog not configured")
	}
	return s.rooms.ListRooms(ctx)
}
