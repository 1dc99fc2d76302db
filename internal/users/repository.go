package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/dberrors"
)

const selectUser = `SELECT u.id, u.email, u.password_hash, u.role, u.university_id,
	ARRAY(SELECT m.rso_id FROM rso_members m WHERE m.user_id = u.id ORDER BY m.rso_id),
	u.created_at, u.updated_at
	FROM users u`

// Repository handles user persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a user repository on a pool or a transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateParams holds the fields of a new user.
type CreateParams struct {
	Email        string
	PasswordHash string
	Role         models.Role
	UniversityID *int64
}

// UpdateParams holds the fields to change. Nil fields are left as they are.
type UpdateParams struct {
	Email        *string
	PasswordHash *string
	Role         *models.Role
	UniversityID *int64
}

func (p UpdateParams) empty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.Role == nil && p.UniversityID == nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Role, &u.UniversityID,
		&u.RSOs, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE u.email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Exists reports whether a user with the given ID exists.
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check user %d: %w", id, err)
	}
	return ok, nil
}

// List returns all users ordered by ID.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	list := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

// Create inserts a new user. A taken email is a Conflict.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, role, university_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password_hash, role, university_id, '{}'::bigint[], created_at, updated_at`
	u, err := scanUser(r.db.QueryRow(ctx, q, p.Email, p.PasswordHash, string(p.Role), p.UniversityID))
	if dberrors.IsUniqueViolation(err, "users_email_key") {
		return nil, apperrors.Conflict("email already registered")
	}
	if dberrors.IsForeignKeyViolation(err) {
		return nil, apperrors.NotFound("university not found")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Update changes the given fields and returns the updated user.
func (r *Repository) Update(ctx context.Context, id int64, p UpdateParams) (*models.User, error) {
	if p.empty() {
		return r.GetByID(ctx, id)
	}
	b := sq.Update("users").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar)
	if p.Email != nil {
		b = b.Set("email", *p.Email)
	}
	if p.PasswordHash != nil {
		b = b.Set("password_hash", *p.PasswordHash)
	}
	if p.Role != nil {
		b = b.Set("role", string(*p.Role))
	}
	if p.UniversityID != nil {
		b = b.Set("university_id", *p.UniversityID)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user update: %w", err)
	}

	var updated int64
	err = r.db.QueryRow(ctx, query, args...).Scan(&updated)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NotFound("user not found")
	case dberrors.IsUniqueViolation(err, "users_email_key"):
		return nil, apperrors.Conflict("email already registered")
	case dberrors.IsForeignKeyViolation(err):
		return nil, apperrors.NotFound("university not found")
	case err != nil:
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return r.GetByID(ctx, updated)
}

// SetRole changes a user's role.
func (r *Repository) SetRole(ctx context.Context, id int64, role models.Role) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("set role of user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// Delete removes a user. Memberships, comments and participations cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}
