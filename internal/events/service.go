package events

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

// Store is the event persistence the service needs.
type Store interface {
	List(ctx context.Context, v Viewer, opts ListOptions) ([]models.Event, error)
	ListPending(ctx context.Context) ([]models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	SlotTaken(ctx context.Context, eventTime time.Time, location string, excludeID int64) (bool, error)
	Create(ctx context.Context, p Params) (*models.Event, error)
	Update(ctx context.Context, id int64, p Params) (*models.Event, error)
	Delete(ctx context.Context, id int64) error
	Approve(ctx context.Context, ids []int64) ([]models.Event, error)
	ResolveRSO(ctx context.Context, ref string, universityID *int64) (*models.RSO, error)
	Viewer(ctx context.Context, userID int64) (Viewer, error)
}

// TxStore is a Store that can also run work in a transaction.
type TxStore interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}

// Input is a submitted event. EventTime is parsed by the service so that
// form-style timestamps are accepted. RSO is an RSO id or name.
type Input struct {
	Name         string
	Category     string
	Description  string
	EventTime    string
	Location     string
	ContactPhone string
	ContactEmail string
	UniversityID *int64
	RSO          string
}

// Actor is the authenticated user changing events.
type Actor struct {
	UserID int64
	Role   models.Role
}

// Service implements the event workflows on top of a Store.
type Service struct {
	store           TxStore
	requireApproval bool
	logger          *zap.Logger
}

// NewService creates an event service.
func NewService(store TxStore, requireApproval bool, logger *zap.Logger) *Service {
	return &Service{store: store, requireApproval: requireApproval, logger: logger}
}

// ViewerFor loads the viewer of an authenticated user, or returns the
// anonymous viewer for userID 0.
func (s *Service) ViewerFor(ctx context.Context, userID int64) (Viewer, error) {
	if userID == 0 {
		return Viewer{}, nil
	}
	return s.store.Viewer(ctx, userID)
}

// List returns the events v may see, ordered by event time.
func (s *Service) List(ctx context.Context, v Viewer, opts ListOptions) ([]models.Event, error) {
	return s.store.List(ctx, v, opts)
}

// Get returns an event if v may see it. Hidden events are NotFound.
func (s *Service) Get(ctx context.Context, v Viewer, id int64) (*models.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.CanSee(e, s.requireApproval) {
		return nil, apperrors.NotFound("event not found")
	}
	return e, nil
}

// Visible returns an event if the user may see it. A zero userID is an
// anonymous caller.
func (s *Service) Visible(ctx context.Context, userID, eventID int64) (*models.Event, error) {
	v, err := s.ViewerFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, v, eventID)
}

// Create validates and stores a new event. Super-admin events, and every
// event when approval is off, are created approved.
func (s *Service) Create(ctx context.Context, actor Actor, in Input) (*models.Event, error) {
	var created *models.Event
	err := s.store.InTx(ctx, func(st Store) error {
		p, err := s.prepare(ctx, st, actor, in, 0)
		if err != nil {
			return err
		}
		p.Approved = actor.Role == models.RoleSuperAdmin || !s.requireApproval
		p.CreatedBy = &actor.UserID
		created, err = st.Create(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event created",
		zap.Int64("event_id", created.ID),
		zap.String("category", string(created.Category)),
		zap.Bool("approved", created.Approved),
		zap.Int64("user_id", actor.UserID),
	)
	return created, nil
}

// Update re-validates and replaces an event. Under approval, an edit by
// anyone but a super-admin sends the event back to the pending queue.
func (s *Service) Update(ctx context.Context, actor Actor, id int64, in Input) (*models.Event, error) {
	var updated *models.Event
	err := s.store.InTx(ctx, func(st Store) error {
		existing, err := st.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeEdit(actor, existing); err != nil {
			return err
		}
		p, err := s.prepare(ctx, st, actor, in, id)
		if err != nil {
			return err
		}
		p.Approved = actor.Role == models.RoleSuperAdmin || !s.requireApproval
		updated, err = st.Update(ctx, id, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event updated",
		zap.Int64("event_id", id),
		zap.Bool("approved", updated.Approved),
		zap.Int64("user_id", actor.UserID),
	)
	return updated, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeEdit(actor, existing); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", zap.Int64("event_id", id), zap.Int64("user_id", actor.UserID))
	return nil
}

// Pending lists events awaiting approval.
func (s *Service) Pending(ctx context.Context) ([]models.Event, error) {
	return s.store.ListPending(ctx)
}

// Approve approves the given events. It fails with NotFound when none of
// the ids matched.
func (s *Service) Approve(ctx context.Context, ids []int64) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validation("eventIds must be a non-empty array of ids")
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, apperrors.Validation("eventIds must be positive integers")
		}
	}
	approved, err := s.store.Approve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return nil, apperrors.NotFound("no events were updated")
	}
	s.logger.Info("events approved", zap.Int64s("event_ids", ids), zap.Int("count", len(approved)))
	return approved, nil
}

// authorizeEdit lets super-admins edit any event and admins their own.
func authorizeEdit(actor Actor, e *models.Event) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if e.CreatedBy != nil && *e.CreatedBy == actor.UserID {
		return nil
	}
	return apperrors.Forbidden("only the event's creator or a super-admin may change it")
}

// prepare validates in and resolves its scope into Params.
func (s *Service) prepare(ctx context.Context, st Store, actor Actor, in Input, excludeID int64) (Params, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.RSO = strings.TrimSpace(in.RSO)
	if in.Name == "" || strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.EventTime) == "" || in.Location == "" {
		return Params{}, apperrors.Validation("name, category, event_time and location are required")
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return Params{}, apperrors.Validation("category must be public, private, university or rso")
	}
	eventTime, err := ParseEventTime(in.EventTime)
	if err != nil {
		return Params{}, err
	}

	p := Params{
		Name:         in.Name,
		Category:     category,
		Description:  strings.TrimSpace(in.Description),
		EventTime:    eventTime,
		Location:     in.Location,
		ContactPhone: strings.TrimSpace(in.ContactPhone),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
	}

	actorView, err := st.Viewer(ctx, actor.UserID)
	if err != nil {
		return Params{}, err
	}
	universityID := actorView.UniversityID
	if actor.Role == models.RoleSuperAdmin && in.UniversityID != nil {
		universityID = in.UniversityID
	}

	switch category {
	case models.CategoryRSO:
		if in.RSO == "" {
			return Params{}, apperrors.Validation("rso is required for rso events")
		}
		rso, err := st.ResolveRSO(ctx, in.RSO, universityID)
		if err != nil {
			return Params{}, err
		}
		if actor.Role != models.RoleSuperAdmin && !slices.Contains(actorView.RSOIDs, rso.ID) {
			return Params{}, apperrors.Forbidden("only members of the rso may create its events")
		}
		p.RSOID = &rso.ID
		p.UniversityID = &rso.UniversityID
	case models.CategoryUniversity:
		if universityID == nil {
			return Params{}, apperrors.Validation("university is required for university events")
		}
		p.UniversityID = universityID
	default:
		p.UniversityID = universityID
	}

	taken, err := st.SlotTaken(ctx, p.EventTime, p.Location, excludeID)
	if err != nil {
		return Params{}, err
	}
	if taken {
		return Params{}, apperrors.Conflict("an event already exists at this time and location")
	}
	return p, nil
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseEventTime accepts RFC 3339 and the zone-less forms sent by HTML
// datetime inputs, which are read as UTC.
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.Validation("event_time must be an RFC 3339 timestamp")
}
