package events

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/response"
)

// Ref is an RSO reference given as a JSON number (an id) or string (an id or
// a name).
type Ref string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = Ref(n.String())
	return nil
}

// EventRequest is the body for POST /events and PUT /events/:id.
type EventRequest struct {
	Name         string `json:"name"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	EventTime    string `json:"event_time"`
	Location     string `json:"location"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	UniversityID *int64 `json:"university"`
	RSO          Ref    `json:"rso"`
}

func (r EventRequest) input() Input {
	return Input{
		Name:         r.Name,
		Category:     r.Category,
		Description:  r.Description,
		EventTime:    r.EventTime,
		Location:     r.Location,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
		UniversityID: r.UniversityID,
		RSO:          string(r.RSO),
	}
}

// ApproveRequest is the body for PATCH /events/approve.
type ApproveRequest struct {
	EventIDs []int64 `json:"eventIds"`
}

// ApproveResponse is returned by PATCH /events/approve.
type ApproveResponse struct {
	Message string         `json:"message"`
	Events  []models.Event `json:"events"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an event handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /events. The viewer is the session user, or anonymous.
// The category, university and rso query parameters only narrow the result;
// approved is honoured for super-admins.
func (h *Handler) List(c *gin.Context) {
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}
	opts, err := listOptions(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), viewer, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), viewer, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Update(c.Request.Context(), actor(c), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Event deleted successfully")
}

// Pending handles GET /events/approve.
func (h *Handler) Pending(c *gin.Context) {
	list, err := h.svc.Pending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Approve handles PATCH /events/approve.
func (h *Handler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid event IDs")
		return
	}
	approved, err := h.svc.Approve(c.Request.Context(), req.EventIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ApproveResponse{Message: "Events approved successfully", Events: approved})
}

func (h *Handler) viewer(c *gin.Context) (Viewer, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return Viewer{}, true
	}
	v, err := h.svc.ViewerFor(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return Viewer{}, false
	}
	return v, true
}

func actor(c *gin.Context) Actor {
	identity, _ := middleware.CurrentIdentity(c)
	return Actor{UserID: identity.UserID, Role: identity.Role}
}

func listOptions(c *gin.Context) (ListOptions, error) {
	var opts ListOptions
	if v := c.Query("approved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, apperrors.Validation("approved must be true or false")
		}
		opts.Approved = &b
	}
	if v := c.Query("category"); v != "" {
		cat, ok := models.ParseCategory(v)
		if !ok {
			return opts, apperrors.Validation("unknown category")
		}
		opts.Category = &cat
	}
	var err error
	if opts.UniversityID, err = optionalID(c.Query("university")); err != nil {
		return opts, err
	}
	if opts.RSOID, err = optionalID(c.Query("rso")); err != nil {
		return opts, err
	}
	return opts, nil
}

func optionalID(v string) (*int64, error) {
	if v == "" || v == "null" || v == "undefined" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.Validation("ids must be positive integers")
	}
	return &id, nil
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid event id")
		return 0, false
	}
	return id, true
}
