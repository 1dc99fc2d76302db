package rsos

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/dberrors"
)

var rsoColumns = []string{
	"r.id", "r.name", "r.description", "r.category", "r.university_id",
	"(SELECT COUNT(*) FROM rso_members m WHERE m.rso_id = r.id)",
	"r.created_by", "r.created_at",
}

// Repository handles RSO and membership persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an RSO repository on a pool or a transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateParams holds the fields of a new RSO.
type CreateParams struct {
	Name         string
	Description  string
	Category     string
	UniversityID int64
	CreatedBy    *int64
}

// UpdateParams holds the fields to change. Nil fields are left as they are.
type UpdateParams struct {
	Name        *string
	Description *string
	Category    *string
}

// ListFilter narrows List. Zero values do not filter.
type ListFilter struct {
	UniversityID *int64
	IDs          []int64
}

func selectRSOs() sq.SelectBuilder {
	return sq.Select(rsoColumns...).From("rso r").PlaceholderFormat(sq.Dollar)
}

func scanRSO(row pgx.Row) (*models.RSO, error) {
	var r models.RSO
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Category, &r.UniversityID,
		&r.MemberCount, &r.CreatedBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Repository) queryOne(ctx context.Context, b sq.SelectBuilder) (*models.RSO, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rso query: %w", err)
	}
	rso, err := scanRSO(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("rso not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get rso: %w", err)
	}
	return rso, nil
}

// GetByID returns an RSO by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.RSO, error) {
	return r.queryOne(ctx, selectRSOs().Where(sq.Eq{"r.id": id}))
}

// GetByName returns the RSO with the given name in a university.
func (r *Repository) GetByName(ctx context.Context, universityID int64, name string) (*models.RSO, error) {
	return r.queryOne(ctx, selectRSOs().Where(sq.Eq{"r.university_id": universityID, "r.name": name}))
}

// List returns RSOs ordered by ID.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.RSO, error) {
	b := selectRSOs().OrderBy("r.id ASC")
	if f.UniversityID != nil {
		b = b.Where(sq.Eq{"r.university_id": *f.UniversityID})
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return []models.RSO{}, nil
		}
		b = b.Where(sq.Eq{"r.id": f.IDs})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rso list: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rsos: %w", err)
	}
	defer rows.Close()
	list := []models.RSO{}
	for rows.Next() {
		rso, err := scanRSO(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rso: %w", err)
		}
		list = append(list, *rso)
	}
	return list, rows.Err()
}

// ListByUser returns the RSOs a user belongs to.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]models.RSO, error) {
	ids, err := r.Memberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.List(ctx, ListFilter{IDs: ids})
}

// Create inserts an RSO. A taken name within the university is a Conflict.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.RSO, error) {
	const q = `INSERT INTO rso (name, description, category, university_id, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, description, category, university_id, 0, created_by, created_at`
	rso, err := scanRSO(r.db.QueryRow(ctx, q, p.Name, p.Description, p.Category, p.UniversityID, p.CreatedBy))
	switch {
	case dberrors.IsUniqueViolation(err, "rso_university_name_key"):
		return nil, apperrors.Conflict("rso already exists at this university")
	case dberrors.IsForeignKeyViolation(err):
		return nil, apperrors.NotFound("university not found")
	case err != nil:
		return nil, fmt.Errorf("create rso: %w", err)
	}
	return rso, nil
}

// Update changes the given fields and returns the updated RSO.
func (r *Repository) Update(ctx context.Context, id int64, p UpdateParams) (*models.RSO, error) {
	b := sq.Update("rso").Where(sq.Eq{"id": id}).PlaceholderFormat(sq.Dollar)
	changed := false
	if p.Name != nil {
		b, changed = b.Set("name", *p.Name), true
	}
	if p.Description != nil {
		b, changed = b.Set("description", *p.Description), true
	}
	if p.Category != nil {
		b, changed = b.Set("category", *p.Category), true
	}
	if !changed {
		return r.GetByID(ctx, id)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build rso update: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if dberrors.IsUniqueViolation(err, "rso_university_name_key") {
		return nil, apperrors.Conflict("rso already exists at this university")
	}
	if err != nil {
		return nil, fmt.Errorf("update rso %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("rso not found")
	}
	return r.GetByID(ctx, id)
}

// Delete removes an RSO with its memberships and events.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rso WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rso %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("rso not found")
	}
	return nil
}

// Memberships returns the user's RSO ids in ascending order.
func (r *Repository) Memberships(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT rso_id FROM rso_members WHERE user_id = $1 ORDER BY rso_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships of user %d: %w", userID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan memberships: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// AddMembers unions rsoIDs into the user's membership set in one statement.
// Ids already present are skipped. An unknown RSO is NotFound.
func (r *Repository) AddMembers(ctx context.Context, userID int64, rsoIDs []int64) error {
	const q = `INSERT INTO rso_members (user_id, rso_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT (user_id, rso_id) DO NOTHING`
	_, err := r.db.Exec(ctx, q, userID, rsoIDs)
	if dberrors.IsForeignKeyViolation(err) {
		if dberrors.ConstraintName(err) == "rso_members_user_id_fkey" {
			return apperrors.NotFound("user not found")
		}
		return apperrors.NotFound("rso not found")
	}
	if err != nil {
		return fmt.Errorf("add memberships of user %d: %w", userID, err)
	}
	return nil
}

// RemoveMembers removes rsoIDs from the user's membership set. Ids not in
// the set are ignored.
func (r *Repository) RemoveMembers(ctx context.Context, userID int64, rsoIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM rso_members WHERE user_id = $1 AND rso_id = ANY($2)`, userID, rsoIDs); err != nil {
		return fmt.Errorf("remove memberships of user %d: %w", userID, err)
	}
	return nil
}
