package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/rsos"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/dberrors"
)

// Params holds the stored fields of an event.
type Params struct {
	Name         string
	Category     models.Category
	Description  string
	EventTime    time.Time
	Location     string
	ContactPhone string
	ContactEmail string
	UniversityID *int64
	RSOID        *int64
	Approved     bool
	CreatedBy    *int64
}

// Repository handles event persistence.
type Repository struct {
	db              database.DBTX
	requireApproval bool
}

// NewRepository creates an event repository on a pool or a transaction.
func NewRepository(db database.DBTX, requireApproval bool) *Repository {
	return &Repository{db: db, requireApproval: requireApproval}
}

var returningEvent = " RETURNING " + strings.Join(eventColumns, ", ")

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Description, &e.EventTime, &e.Location,
		&e.ContactPhone, &e.ContactEmail, &e.UniversityID, &e.RSOID, &e.Approved,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]models.Event, error) {
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// List returns the events v may see, ordered by event time.
func (r *Repository) List(ctx context.Context, v Viewer, opts ListOptions) ([]models.Event, error) {
	query, args, err := visibleQuery(v, r.requireApproval, opts).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build event listing: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

// ListPending returns unapproved events ordered by event time.
func (r *Repository) ListPending(ctx context.Context) ([]models.Event, error) {
	q := "SELECT " + strings.Join(eventColumns, ", ") + " FROM events WHERE approved = FALSE ORDER BY event_time ASC, id ASC"
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list pending events: %w", err)
	}
	return collectEvents(rows)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	q := "SELECT " + strings.Join(eventColumns, ", ") + " FROM events WHERE id = $1"
	e, err := scanEvent(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// SlotTaken reports whether another event already uses (eventTime, location).
func (r *Repository) SlotTaken(ctx context.Context, eventTime time.Time, location string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM events WHERE event_time = $1 AND location = $2 AND id <> $3)`
	var taken bool
	if err := r.db.QueryRow(ctx, q, eventTime, location, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("check event slot: %w", err)
	}
	return taken, nil
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, p Params) (*models.Event, error) {
	q := `INSERT INTO events (name, category, description, event_time, location, contact_phone,
		contact_email, university_id, rso_id, approved, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)` + returningEvent
	e, err := scanEvent(r.db.QueryRow(ctx, q, p.Name, string(p.Category), p.Description, p.EventTime,
		p.Location, p.ContactPhone, p.ContactEmail, p.UniversityID, p.RSOID, p.Approved, p.CreatedBy))
	if err != nil {
		return nil, writeError("create event", err)
	}
	return e, nil
}

// Update replaces an event's fields and approval. The creator is kept.
func (r *Repository) Update(ctx context.Context, id int64, p Params) (*models.Event, error) {
	q := `UPDATE events SET name = $2, category = $3, description = $4, event_time = $5, location = $6,
		contact_phone = $7, contact_email = $8, university_id = $9, rso_id = $10, approved = $11,
		updated_at = NOW()
		WHERE id = $1` + returningEvent
	e, err := scanEvent(r.db.QueryRow(ctx, q, id, p.Name, string(p.Category), p.Description, p.EventTime,
		p.Location, p.ContactPhone, p.ContactEmail, p.UniversityID, p.RSOID, p.Approved))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("event not found")
	}
	if err != nil {
		return nil, writeError("update event", err)
	}
	return e, nil
}

// Delete removes an event with its comments and participants.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("event not found")
	}
	return nil
}

// Approve marks the given events approved and returns them.
func (r *Repository) Approve(ctx context.Context, ids []int64) ([]models.Event, error) {
	q := `UPDATE events SET approved = TRUE, updated_at = NOW() WHERE id = ANY($1)` + returningEvent
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("approve events: %w", err)
	}
	return collectEvents(rows)
}

// ResolveRSO finds an RSO by numeric ID, or by name within universityID.
func (r *Repository) ResolveRSO(ctx context.Context, ref string, universityID *int64) (*models.RSO, error) {
	repo := rsos.NewRepository(r.db)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return repo.GetByID(ctx, id)
	}
	if universityID == nil {
		return nil, apperrors.NotFound("rso not found")
	}
	return repo.GetByName(ctx, *universityID, ref)
}

// Viewer loads the visibility inputs of a user.
func (r *Repository) Viewer(ctx context.Context, userID int64) (Viewer, error) {
	u, err := users.NewRepository(r.db).GetByID(ctx, userID)
	if err != nil {
		return Viewer{}, err
	}
	return Viewer{Role: u.Role, UniversityID: u.UniversityID, RSOIDs: u.RSOs}, nil
}

func writeError(op string, err error) error {
	switch {
	case dberrors.IsUniqueViolation(err, "events_time_location_key"):
		return apperrors.Conflict("an event already exists at this time and location")
	case dberrors.IsCheckViolation(err):
		return apperrors.Validation("invalid event fields")
	case dberrors.IsForeignKeyViolation(err):
		return apperrors.NotFound("referenced university or rso not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PgStore is a Repository on a pool that can run work in a transaction.
type PgStore struct {
	*Repository
	pool database.Pool
}

// NewStore creates a PgStore.
func NewStore(pool database.Pool, requireApproval bool) *PgStore {
	return &PgStore{Repository: NewRepository(pool, requireApproval), pool: pool}
}

// InTx runs fn with a Store bound to one transaction.
func (s *PgStore) InTx(ctx context.Context, fn func(Store) error) error {
	return database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewRepository(tx, s.requireApproval))
	})
}
