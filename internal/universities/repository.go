package universities

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/dberrors"
)

const selectUniversity = `SELECT id, name, location, description, num_students, created_at FROM university`

// Repository handles university persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a university repository on a pool or a transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateParams holds the fields of a new university.
type CreateParams struct {
	Name        string
	Location    string
	Description string
	NumStudents int
}

func scanUniversity(row pgx.Row) (*models.University, error) {
	var u models.University
	if err := row.Scan(&u.ID, &u.Name, &u.Location, &u.Description, &u.NumStudents, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a university by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.University, error) {
	u, err := scanUniversity(r.db.QueryRow(ctx, selectUniversity+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("university not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get university %d: %w", id, err)
	}
	return u, nil
}

// GetByName returns a university by its exact name.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.University, error) {
	u, err := scanUniversity(r.db.QueryRow(ctx, selectUniversity+` WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("university not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get university by name: %w", err)
	}
	return u, nil
}

// List returns all universities ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.University, error) {
	rows, err := r.db.Query(ctx, selectUniversity+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list universities: %w", err)
	}
	defer rows.Close()
	list := []models.University{}
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan university: %w", err)
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// Create inserts a university. A taken name is a Conflict.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.University, error) {
	const q = `INSERT INTO university (name, location, description, num_students)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, location, description, num_students, created_at`
	u, err := scanUniversity(r.db.QueryRow(ctx, q, p.Name, p.Location, p.Description, p.NumStudents))
	if dberrors.IsUniqueViolation(err, "university_name_key") {
		return nil, apperrors.Conflict("university already exists")
	}
	if dberrors.IsCheckViolation(err) {
		return nil, apperrors.Validation("number of students must not be negative")
	}
	if err != nil {
		return nil, fmt.Errorf("create university: %w", err)
	}
	return u, nil
}
