package users

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/response"
	"github.com/campus-events/backend/pkg/utils"
)

// Store is the persistence the user handlers need.
type Store interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// UpdateRequest is the body for PUT /users/:id.
type UpdateRequest struct {
	Email        *string `json:"email" binding:"omitempty,email"`
	Password     *string `json:"password"`
	Role         *string `json:"role"`
	UniversityID *int64  `json:"university"`
}

// Handler handles user HTTP endpoints.
type Handler struct {
	store      Store
	bcryptCost int
	logger     *zap.Logger
}

// NewHandler creates a user handler.
func NewHandler(store Store, bcryptCost int, logger *zap.Logger) *Handler {
	return &Handler{store: store, bcryptCost: bcryptCost, logger: logger}
}

// List handles GET /users (super-admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]models.UserPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	response.OK(c, out)
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.authorizedTarget(c)
	if !ok {
		return
	}
	u, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Update handles PUT /users/:id. Only a super-admin may change roles.
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.authorizedTarget(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var p UpdateParams
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		p.Email = &email
	}
	if req.Password != nil {
		if len(*req.Password) < utils.MinPasswordLength {
			response.Error(c, apperrors.Validation("password must be at least 6 characters"))
			return
		}
		hash, err := utils.HashPassword(*req.Password, h.bcryptCost)
		if err != nil {
			if utils.IsPasswordTooLong(err) {
				response.Error(c, apperrors.Validation("password is too long"))
				return
			}
			response.Error(c, apperrors.Internal("failed to hash password", err))
			return
		}
		p.PasswordHash = &hash
	}
	if req.Role != nil {
		identity, _ := middleware.CurrentIdentity(c)
		if identity.Role != models.RoleSuperAdmin {
			response.Error(c, apperrors.Forbidden("only a super-admin may change roles"))
			return
		}
		role, ok := models.ParseRole(*req.Role)
		if !ok {
			response.Error(c, apperrors.Validation("invalid role"))
			return
		}
		p.Role = &role
	}
	p.UniversityID = req.UniversityID

	u, err := h.store.Update(c.Request.Context(), id, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("user updated", zap.Int64("user_id", id))
	response.OK(c, u.ToPublic())
}

// Delete handles DELETE /users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.authorizedTarget(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("user deleted", zap.Int64("user_id", id))
	response.Message(c, "user deleted")
}

// authorizedTarget parses :id and allows the user themself or a super-admin.
func (h *Handler) authorizedTarget(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid user id")
		return 0, false
	}
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return 0, false
	}
	if identity.UserID != id && identity.Role != models.RoleSuperAdmin {
		response.Error(c, apperrors.Forbidden("cannot access another user"))
		return 0, false
	}
	return id, true
}
