package comments

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/response"
)

// Store is the comment persistence the handlers need.
type Store interface {
	ListByEvent(ctx context.Context, eventID int64) ([]models.Comment, error)
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, p CreateParams) (*models.Comment, error)
	Update(ctx context.Context, id int64, text string) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
	IDsByUser(ctx context.Context, userID int64) ([]int64, error)
	Summary(ctx context.Context, eventID int64) (*models.RatingSummary, error)
}

// EventAccess resolves an event the user may see. Hidden events are NotFound.
type EventAccess interface {
	Visible(ctx context.Context, userID, eventID int64) (*models.Event, error)
}

// CreateRequest is the body for POST /comments.
type CreateRequest struct {
	UserID    int64      `json:"user_id"`
	EventID   int64      `json:"event_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	Timestamp *time.Time `json:"timestamp"`
}

// UpdateRequest is the body for PUT /comments. CommentID is ignored on
// PUT /comments/:id.
type UpdateRequest struct {
	CommentID  int64  `json:"comment_id"`
	NewComment string `json:"new_comment"`
}

// Handler handles comment and rating endpoints.
type Handler struct {
	store  Store
	events EventAccess
	logger *zap.Logger
}

// NewHandler creates a comments handler.
func NewHandler(store Store, events EventAccess, logger *zap.Logger) *Handler {
	return &Handler{store: store, events: events, logger: logger}
}

// List handles GET /comments?event_id=.
func (h *Handler) List(c *gin.Context) {
	eventID, ok := queryID(c, "event_id")
	if !ok || !h.visible(c, eventID) {
		return
	}
	list, err := h.store.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /comments.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.UserID == 0 || req.EventID <= 0 || req.Rating == 0 || req.Comment == "" || req.Timestamp == nil {
		response.Error(c, apperrors.Validation("missing required fields"))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		response.Error(c, apperrors.Validation("rating must be between 1 and 5"))
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
	comment, err := h.store.Create(c.Request.Context(), CreateParams{
		UserID:    userID,
		EventID:   req.EventID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Timestamp: req.Timestamp.UTC(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comment)
}

// Update handles PUT /comments and PUT /comments/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id := req.CommentID
	if c.Param("id") != "" {
		var ok bool
		if id, ok = pathID(c); !ok {
			return
		}
	}
	req.NewComment = strings.TrimSpace(req.NewComment)
	if id <= 0 || req.NewComment == "" {
		response.Error(c, apperrors.Validation("comment_id and new_comment are required"))
		return
	}
	if err := h.authorizeAuthor(c, id); err != nil {
		response.Error(c, err)
		return
	}
	comment, err := h.store.Update(c.Request.Context(), id, req.NewComment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comment)
}

// Delete handles DELETE /comments?comment_id= and DELETE /comments/:id.
func (h *Handler) Delete(c *gin.Context) {
	var (
		id int64
		ok bool
	)
	if c.Param("id") != "" {
		id, ok = pathID(c)
	} else {
		id, ok = queryID(c, "comment_id")
	}
	if !ok {
		return
	}
	if err := h.authorizeAuthor(c, id); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Debug("comment deleted", zap.Int64("comment_id", id))
	response.Message(c, "Comment deleted successfully")
}

// ByUser handles GET /comments/user?user_id=.
func (h *Handler) ByUser(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	ids, err := h.store.IDsByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ids)
}

// Ratings handles GET /ratings?event_id=.
func (h *Handler) Ratings(c *gin.Context) {
	eventID, ok := queryID(c, "event_id")
	if !ok || !h.visible(c, eventID) {
		return
	}
	summary, err := h.store.Summary(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
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

// authorizeAuthor loads the comment and checks that the caller wrote it or
// is a super-admin. A missing comment is NotFound for everyone.
func (h *Handler) authorizeAuthor(c *gin.Context, id int64) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.Unauthorized("authentication required")
	}
	comment, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		return err
	}
	if identity.Role != models.RoleSuperAdmin && comment.UserID != identity.UserID {
		return apperrors.Forbidden("only the author may change this comment")
	}
	return nil
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, name+" is required")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid comment id")
		return 0, false
	}
	return id, true
}
