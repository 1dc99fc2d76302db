package participants

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/response"
)

// Store is the participation persistence the handlers need.
type Store interface {
	ListByEvent(ctx context.Context, eventID int64) ([]models.Participant, error)
	GetByID(ctx context.Context, id int64) (*models.Participant, error)
	Add(ctx context.Context, userID, eventID int64) (*models.Participant, error)
	Delete(ctx context.Context, id int64) error
}

// EventAccess resolves an event the user may see. Hidden events are NotFound.
type EventAccess interface {
	Visible(ctx context.Context, userID, eventID int64) (*models.Event, error)
}

// AddRequest is the body for POST /participants.
type AddRequest struct {
	UserID  int64 `json:"user_id"`
	EventID int64 `json:"event_id" binding:"required"`
}

type Handler struct {
	store  Store
	events EventAccess
}

func NewHandler(store Store, events EventAccess) *Handler {
	return &Handler{store: store, events: events}
}

// List handles GET /participants?event_id=.
func (h *Handler) List(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Query("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		response.BadRequest(c, "event_id is required")
		return
	}
	if !h.visible(c, eventID) {
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Add handles POST /participants. A missing user_id means the caller.
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := middleware.ResolveSubject(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.visible(c, req.EventID) {
		return
	}
	p, err := h.store.Add(c.Request.Context(), userID, req.EventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Remove handles DELETE /participants/:id.
func (h *Handler) Remove(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid participant id")
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := middleware.ResolveSubject(c, p.UserID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "participant removed")
}

// visible writes a 404 and returns false when the caller may not see the
// event.
func (h *Handler) visible(c *gin.Context, eventID int64) bool {
	var userID int64
	if identity, ok := middleware.CurrentIdentity(c); ok {
		userID = identity.UserID
	}
	if _, err := h.events.Visible(c.Request.Context(), userID, eventID); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

var _ Store = (*Repository)(nil)
