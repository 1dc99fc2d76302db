package events

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

// memStore is an in-memory TxStore. List applies CanSee and the options.
type memStore struct {
	requireApproval bool
	events          map[int64]*models.Event
	rsos            map[int64]*models.RSO
	viewers         map[int64]Viewer
	nextID          int64
}

func newMemStore(requireApproval bool) *memStore {
	return &memStore{
		requireApproval: requireApproval,
		events:          map[int64]*models.Event{},
		rsos:            map[int64]*models.RSO{},
		viewers:         map[int64]Viewer{},
		nextID:          1,
	}
}

func (m *memStore) sorted(keep func(*models.Event) bool) []models.Event {
	out := []models.Event{}
	for _, e := range m.events {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventTime.Equal(out[j].EventTime) {
			return out[i].EventTime.Before(out[j].EventTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) List(_ context.Context, v Viewer, opts ListOptions) ([]models.Event, error) {
	return m.sorted(func(e *models.Event) bool {
		if !v.CanSee(e, m.requireApproval) {
			return false
		}
		if v.Role == models.RoleSuperAdmin && opts.Approved != nil && e.Approved != *opts.Approved {
			return false
		}
		if opts.Category != nil && e.Category != *opts.Category {
			return false
		}
		if opts.UniversityID != nil && (e.UniversityID == nil || *e.UniversityID != *opts.UniversityID) {
			return false
		}
		return opts.RSOID == nil || (e.RSOID != nil && *e.RSOID == *opts.RSOID)
	}), nil
}

func (m *memStore) ListPending(context.Context) ([]models.Event, error) {
	return m.sorted(func(e *models.Event) bool { return !e.Approved }), nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, apperrors.NotFound("event not found")
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) SlotTaken(_ context.Context, t time.Time, location string, excludeID int64) (bool, error) {
	for _, e := range m.events {
		if e.ID != excludeID && e.EventTime.Equal(t) && e.Location == location {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) put(id int64, p Params) *models.Event {
	e := &models.Event{
		ID: id, Name: p.Name, Category: p.Category, Description: p.Description, EventTime: p.EventTime,
		Location: p.Location, ContactPhone: p.ContactPhone, ContactEmail: p.ContactEmail,
		UniversityID: p.UniversityID, RSOID: p.RSOID, Approved: p.Approved, CreatedBy: p.CreatedBy,
	}
	m.events[id] = e
	cp := *e
	return &cp
}

func (m *memStore) Create(ctx context.Context, p Params) (*models.Event, error) {
	if taken, _ := m.SlotTaken(ctx, p.EventTime, p.Location, 0); taken {
		return nil, apperrors.Conflict("an event already exists at this time and location")
	}
	id := m.nextID
	m.nextID++
	return m.put(id, p), nil
}

func (m *memStore) Update(_ context.Context, id int64, p Params) (*models.Event, error) {
	old, ok := m.events[id]
	if !ok {
		return nil, apperrors.NotFound("event not found")
	}
	p.CreatedBy = old.CreatedBy
	return m.put(id, p), nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.events[id]; !ok {
		return apperrors.NotFound("event not found")
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) Approve(_ context.Context, ids []int64) ([]models.Event, error) {
	out := []models.Event{}
	for _, id := range ids {
		if e, ok := m.events[id]; ok {
			e.Approved = true
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) ResolveRSO(_ context.Context, ref string, universityID *int64) (*models.RSO, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if r, ok := m.rsos[id]; ok {
			return r, nil
		}
		return nil, apperrors.NotFound("rso not found")
	}
	for _, r := range m.rsos {
		if r.Name == ref && universityID != nil && r.UniversityID == *universityID {
			return r, nil
		}
	}
	return nil, apperrors.NotFound("rso not found")
}

func (m *memStore) Viewer(_ context.Context, userID int64) (Viewer, error) {
	v, ok := m.viewers[userID]
	if !ok {
		return Viewer{}, apperrors.NotFound("user not found")
	}
	return v, nil
}

func (m *memStore) InTx(_ context.Context, fn func(Store) error) error {
	return fn(m)
}
