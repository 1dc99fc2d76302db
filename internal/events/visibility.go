package events

import (
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/campus-events/backend/internal/models"
)

// Viewer is who is asking for events. The zero Viewer is anonymous.
type Viewer struct {
	Role         models.Role
	UniversityID *int64
	RSOIDs       []int64
}

// ListOptions narrows a listing. They are applied on top of visibility and
// can never widen it. Approved is honoured for super-admins only.
type ListOptions struct {
	Approved     *bool
	Category     *models.Category
	UniversityID *int64
	RSOID        *int64
}

var eventColumns = []string{
	"id", "name", "category", "description", "event_time", "location",
	"contact_phone", "contact_email", "university_id", "rso_id", "approved",
	"created_by", "created_at", "updated_at",
}

// visibleQuery builds the listing statement for v, ordered by event time.
//
//	super-admin: every event
//	admin:       public, or at the admin's university
//	student:     public, university events at the student's university, or
//	             rso events of RSOs the student belongs to
//	other:       public
//
// A nil university or empty RSO set drops its clause instead of comparing
// against NULL. With requireApproval, only super-admins see pending events.
func visibleQuery(v Viewer, requireApproval bool, opts ListOptions) sq.SelectBuilder {
	b := sq.Select(eventColumns...).
		From("events").
		OrderBy("event_time ASC", "id ASC").
		PlaceholderFormat(sq.Dollar)

	if scope := scopeFor(v); scope != nil {
		b = b.Where(scope)
	}

	switch {
	case v.Role == models.RoleSuperAdmin:
		if opts.Approved != nil {
			b = b.Where(sq.Eq{"approved": *opts.Approved})
		}
	case requireApproval:
		b = b.Where(sq.Eq{"approved": true})
	}

	if opts.Category != nil {
		b = b.Where(sq.Eq{"category": string(*opts.Category)})
	}
	if opts.UniversityID != nil {
		b = b.Where(sq.Eq{"university_id": *opts.UniversityID})
	}
	if opts.RSOID != nil {
		b = b.Where(sq.Eq{"rso_id": *opts.RSOID})
	}
	return b
}

func scopeFor(v Viewer) sq.Sqlizer {
	public := sq.Eq{"category": string(models.CategoryPublic)}
	switch v.Role {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleAdmin:
		if v.UniversityID == nil {
			return public
		}
		return sq.Or{public, sq.Eq{"university_id": *v.UniversityID}}
	case models.RoleStudent:
		clauses := sq.Or{public}
		if v.UniversityID != nil {
			clauses = append(clauses, sq.And{
				sq.Eq{"category": string(models.CategoryUniversity)},
				sq.Eq{"university_id": *v.UniversityID},
			})
		}
		if len(v.RSOIDs) > 0 {
			clauses = append(clauses, sq.And{
				sq.Eq{"category": string(models.CategoryRSO)},
				sq.Eq{"rso_id": v.RSOIDs},
			})
		}
		if len(clauses) == 1 {
			return public
		}
		return clauses
	default:
		return public
	}
}

// CanSee reports whether v may see e. It is the in-memory form of
// visibleQuery without ListOptions.
func (v Viewer) CanSee(e *models.Event, requireApproval bool) bool {
	if v.Role == models.RoleSuperAdmin {
		return true
	}
	if requireApproval && !e.Approved {
		return false
	}
	if e.Category == models.CategoryPublic {
		return true
	}
	sameUniversity := v.UniversityID != nil && e.UniversityID != nil && *v.UniversityID == *e.UniversityID
	switch v.Role {
	case models.RoleAdmin:
		return sameUniversity
	case models.RoleStudent:
		switch e.Category {
		case models.CategoryUniversity:
			return sameUniversity
		case models.CategoryRSO:
			return e.RSOID != nil && slices.Contains(v.RSOIDs, *e.RSOID)
		}
	}
	return false
}
