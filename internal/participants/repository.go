package participants

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

const selectParticipant = `SELECT p.id, p.user_id, p.event_id, u.email, p.joined_at
	FROM event_participants p JOIN users u ON u.id = p.user_id`

// Repository handles event participation.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a participants repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	if err := row.Scan(&p.ID, &p.UserID, &p.EventID, &p.Email, &p.JoinedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByEvent returns an event's participants in join order.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]models.Participant, error) {
	rows, err := r.db.Query(ctx, selectParticipant+` WHERE p.event_id = $1 ORDER BY p.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	list := []models.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// GetByID returns one participation record.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := scanParticipant(r.db.QueryRow(ctx, selectParticipant+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %d: %w", id, err)
	}
	return p, nil
}

// Add records that a user attends an event. Joining twice is a Conflict.
func (r *Repository) Add(ctx context.Context, userID, eventID int64) (*models.Participant, error) {
	const q = `WITH p AS (
			INSERT INTO event_participants (user_id, event_id) VALUES ($1, $2)
			RETURNING id, user_id, event_id, joined_at
		)
		SELECT p.id, p.user_id, p.event_id, u.email, p.joined_at
		FROM p JOIN users u ON u.id = p.user_id`
	p, err := scanParticipant(r.db.QueryRow(ctx, q, userID, eventID))
	switch {
	case err == nil:
		return p, nil
	case dberrors.IsUniqueViolation(err, "event_participants_user_event_key"):
		return nil, apperrors.Conflict("user already participates in this event")
	case dberrors.ConstraintName(err) == "event_participants_event_id_fkey":
		return nil, apperrors.NotFound("event not found")
	case dberrors.IsForeignKeyViolation(err):
		return nil, apperrors.NotFound("user not found")
	}
	return nil, fmt.Errorf("add participant: %w", err)
}

// Delete removes a participation record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM event_participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete participant %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("participant not found")
	}
	return nil
}
