package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

const sessionColumns = `id, title, description, faculty_id, faculty_email, place, room_id,
	start_time, end_time, status, invite_status, invite_token,
	rejection_reason, suggested_topic, suggested_start, suggested_end, optional_query,
	created_at, updated_at`

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.DB().ExecContext(ctx, query,
		session.ID,
		session.Title,
		nullString(session.Description),
		session.FacultyID,
		session.FacultyEmail,
		session.Place,
		session.RoomID,
		formatTime(session.Start),
		formatTime(session.End),
		session.Status,
		session.InviteStatus,
		session.InviteToken,
		nullString(session.RejectionReason),
		nullString(session.SuggestedTopic),
		nullTime(session.SuggestedStart),
		nullTime(session.SuggestedEnd),
		nullString(session.OptionalQuery),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	return mapError(err)
}

// UpdateSession rewrites an existing session. The invite token is immutable
// and is deliberately excluded from the update statement.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET title = ?, description = ?, faculty_id = ?, faculty_email = ?, place = ?, room_id = ?,
			start_time = ?, end_time = ?, status = ?, invite_status = ?,
			rejection_reason = ?, suggested_topic = ?, suggested_start = ?, suggested_end = ?, optional_query = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.pool.DB().ExecContext(ctx, query,
		session.Title,
		nullString(session.Description),
		session.FacultyID,
		session.FacultyEmail,
		session.Place,
		session.RoomID,
		formatTime(session.Start),
		formatTime(session.End),
		session.Status,
		session.InviteStatus,
		nullString(session.RejectionReason),
		nullString(session.SuggestedTopic),
		nullTime(session.SuggestedStart),
		nullTime(session.SuggestedEnd),
		nullString(session.OptionalQuery),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// DeleteSession removes a session by ID.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListSessions returns sessions matching the filter, ordered by start time
// then ID so the scan order is deterministic.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`

	var conditions []string
	var args []any
	if filter.FacultyID != "" {
		conditions = append(conditions, "faculty_id = ?")
		args = append(args, filter.FacultyID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var description, rejectionReason, suggestedTopic, optionalQuery sql.NullString
	var suggestedStart, suggestedEnd sql.NullString
	var start, end, createdAt, updatedAt string

	err := row.Scan(
		&session.ID,
		&session.Title,
		&description,
		&session.FacultyID,
		&session.FacultyEmail,
		&session.Place,
		&session.RoomID,
		&start,
		&end,
		&session.Status,
		&session.InviteStatus,
		&session.InviteToken,
		&rejectionReason,
		&suggestedTopic,
		&suggestedStart,
		&suggestedEnd,
		&optionalQuery,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	session.Description = fromNullString(description)
	session.RejectionReason = fromNullString(rejectionReason)
	session.SuggestedTopic = fromNullString(suggestedTopic)
	session.OptionalQuery = fromNullString(optionalQuery)

	if session.Start, err = parseTime(start); err != nil {
		return persistence.Session{}, fmt.Errorf("parse start_time: %w", err)
	}
	if session.End, err = parseTime(end); err != nil {
		return persistence.Session{}, fmt.Errorf("parse end_time: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if session.SuggestedStart, err = parseNullTime(suggestedStart); err != nil {
		return persistence.Session{}, fmt.Errorf("parse suggested_start: %w", err)
	}
	if session.SuggestedEnd, err = parseNullTime(suggestedEnd); err != nil {
		return persistence.Session{}, fmt.Errorf("parse suggested_end: %w", err)
	}

	return session, nil
}

// timeLayout is fixed width so the textual ordering SQLite applies in the
// CHECK constraint and ORDER BY clauses matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
