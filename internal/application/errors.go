package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested session does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidToken is returned when a response token does not match the
	// session's invite token. The session is never mutated.
	ErrInvalidToken = errors.New("application: invalid token")
	// ErrInvalidRequest is returned when a response request is malformed
	// (unrecognized action or missing token).
	ErrInvalidRequest = errors.New("application: invalid request")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// SchedulingConflictError rejects a write that would double-book a faculty
// member or room. It carries the full conflict list so the caller can retry
// with OverwriteConflicts.
type SchedulingConflictError struct {
	Conflicts []Conflict
}

// Error implements the error interface.
func (e *SchedulingConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scheduling conflict: %d conflicting session(s)", len(e.Conflicts))
}
