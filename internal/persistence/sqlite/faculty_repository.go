package sqlite

import (
	"context"
	"fmt"

	"github.com/example/conference-scheduler/internal/persistence"
)

// FacultyRepository implements persistence.FacultyRepository using SQLite.
type FacultyRepository struct {
	pool *ConnectionPool
}

// NewFacultyRepository creates a new SQLite faculty repository.
func NewFacultyRepository(pool *ConnectionPool) *FacultyRepository {
	return &FacultyRepository{pool: pool}
}

// CreateFaculty inserts a faculty record.
func (r *FacultyRepository) CreateFaculty(ctx context.Context, faculty persistence.Faculty) error {
	if faculty.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO faculties (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		faculty.ID,
		faculty.Name,
		faculty.Email,
		formatTime(faculty.CreatedAt),
		formatTime(faculty.UpdatedAt),
	)
	return mapError(err)
}

// GetFaculty retrieves a faculty record by ID.
func (r *FacultyRepository) GetFaculty(ctx context.Context, id string) (persistence.Faculty, error) {
	if id == "" {
		return persistence.Faculty{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT id, name, email, created_at, updated_at FROM faculties WHERE id = ?`, id)

	var faculty persistence.Faculty
	var createdAt, updatedAt string
	if err := row.Scan(&faculty.ID, &faculty.Name, &faculty.Email, &createdAt, &updatedAt); err != nil {
		return persistence.Faculty{}, mapError(err)
	}

	var err error
	if faculty.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Faculty{}, fmt.Errorf("parse created_at: %w", err)
	}
	if faculty.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Faculty{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return faculty, nil
}

// ListFaculties returns all faculty records ordered by name then ID.
func (r *FacultyRepository) ListFaculties(ctx context.Context) ([]persistence.Faculty, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT id, name, email, created_at, updated_at FROM faculties ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var faculties []persistence.Faculty
	for rows.Next() {
		var faculty persistence.Faculty
		var createdAt, updatedAt string
		if err := rows.Scan(&faculty.ID, &faculty.Name, &faculty.Email, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if faculty.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if faculty.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		faculties = append(faculties, faculty)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return faculties, nil
}
