package comments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/dberrors"
)

const selectComment = `SELECT c.id, c.user_id, c.event_id, c.rating, c.comment, c.timestamp, u.email
	FROM comments c JOIN users u ON u.id = c.user_id`

// Repository handles comment and rating persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a comments repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// CreateParams holds a new comment.
type CreateParams struct {
	UserID    int64
	EventID   int64
	Rating    int
	Comment   string
	Timestamp time.Time
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.UserID, &c.EventID, &c.Rating, &c.Comment, &c.Timestamp, &c.Email); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByEvent returns the comments on an event in insertion order.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]models.Comment, error) {
	rows, err := r.db.Query(ctx, selectComment+` WHERE c.event_id = $1 ORDER BY c.id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	list := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// GetByID returns a comment joined with its author's email.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(r.db.QueryRow(ctx, selectComment+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return c, nil
}

// Create inserts a comment and returns it joined with the author's email.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Comment, error) {
	const q = `WITH c AS (
			INSERT INTO comments (user_id, event_id, rating, comment, timestamp)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, user_id, event_id, rating, comment, timestamp
		)
		SELECT c.id, c.user_id, c.event_id, c.rating, c.comment, c.timestamp, u.email
		FROM c JOIN users u ON u.id = c.user_id`
	c, err := scanComment(r.db.QueryRow(ctx, q, p.UserID, p.EventID, p.Rating, p.Comment, p.Timestamp))
	switch {
	case err == nil:
		return c, nil
	case dberrors.ConstraintName(err) == "comments_event_id_fkey":
		return nil, apperrors.NotFound("event not found")
	case dberrors.IsForeignKeyViolation(err):
		return nil, apperrors.NotFound("user not found")
	case dberrors.IsCheckViolation(err):
		return nil, apperrors.Validation("rating must be between 1 and 5")
	}
	return nil, fmt.Errorf("create comment: %w", err)
}

// Update replaces the text of a comment.
func (r *Repository) Update(ctx context.Context, id int64, text string) (*models.Comment, error) {
	tag, err := r.db.Exec(ctx, `UPDATE comments SET comment = $2, updated_at = NOW() WHERE id = $1`, id, text)
	if err != nil {
		return nil, fmt.Errorf("update comment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("comment not found")
	}
	return r.GetByID(ctx, id)
}

// Delete removes a comment. Deleting a missing comment is NotFound.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("comment not found")
	}
	return nil
}

// IDsByUser returns the ids of the comments a user wrote.
func (r *Repository) IDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM comments WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list comment ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan comment ids: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// Summary aggregates the ratings of an event. An event without comments
// has a zero count and average.
func (r *Repository) Summary(ctx context.Context, eventID int64) (*models.RatingSummary, error) {
	const q = `SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM comments WHERE event_id = $1`
	s := models.RatingSummary{EventID: eventID}
	if err := r.db.QueryRow(ctx, q, eventID).Scan(&s.Count, &s.Average); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &s, nil
}
