package rsos

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/response"
)

// Store is the RSO persistence the handlers need.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]models.RSO, error)
	ListByUser(ctx context.Context, userID int64) ([]models.RSO, error)
	GetByID(ctx context.Context, id int64) (*models.RSO, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*models.RSO, error)
	Delete(ctx context.Context, id int64) error
}

// Membership mutates membership sets.
type Membership interface {
	Join(ctx context.Context, userID int64, rsoIDs []int64) ([]int64, error)
	Leave(ctx context.Context, userID int64, rsoIDs []int64) ([]int64, error)
	Create(ctx context.Context, in CreateInput) (*CreateResult, error)
}

// CreateRequest is the body for POST /rsos/create.
type CreateRequest struct {
	Name         string `json:"rsoName"`
	Description  string `json:"rsoDesc"`
	Category     string `json:"rsoCat"`
	UniversityID int64  `json:"universityId"`
	UserID       int64  `json:"userId"`
}

// MembershipRequest is the body for POST /rsos/join and /rsos/leave. RSOID
// is the single-id form accepted by leave.
type MembershipRequest struct {
	UserID int64   `json:"userId"`
	RSOs   []int64 `json:"rsos"`
	RSOID  int64   `json:"rsoId"`
}

// UpdateRequest is the body for PUT /rsos/:id.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// MembershipResponse carries the caller's membership set after a change.
type MembershipResponse struct {
	Message string  `json:"message"`
	RSO     []int64 `json:"rso"`
}

// CreateResponse is returned by POST /rsos/create.
type CreateResponse struct {
	Message      string      `json:"message"`
	RSOID        int64       `json:"rsoId"`
	NewRole      models.Role `json:"newRole"`
	RSO          []int64     `json:"rso"`
	Organization *models.RSO `json:"organization"`
}

// Handler handles RSO HTTP endpoints.
type Handler struct {
	store      Store
	membership Membership
	logger     *zap.Logger
}

// NewHandler creates an RSO handler.
func NewHandler(store Store, membership Membership, logger *zap.Logger) *Handler {
	return &Handler{store: store, membership: membership, logger: logger}
}

// List handles GET /rsos with an optional university filter.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if v := c.Query("university"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid university id")
			return
		}
		f.UniversityID = &id
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Mine handles GET /rsos/my. The id parameter defaults to the caller; other
// users' memberships are visible to super-admins only. A user without
// memberships gets [].
func (h *Handler) Mine(c *gin.Context) {
	var requested int64
	if v := c.Query("id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, "invalid user id")
			return
		}
		requested = id
	}
	id, err := middleware.ResolveSubject(c, requested)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.store.ListByUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /rsos/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := rsoID(c)
	if !ok {
		return
	}
	rso, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rso)
}

// Update handles PUT /rsos/:id. Admins may edit RSOs they belong to.
func (h *Handler) Update(c *gin.Context) {
	id, ok := rsoID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil && *req.Name == "" {
		response.Error(c, apperrors.Validation("name must not be empty"))
		return
	}
	if err := h.authorizeOfficer(c, id); err != nil {
		response.Error(c, err)
		return
	}
	rso, err := h.store.Update(c.Request.Context(), id, UpdateParams(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rso)
}

// Delete handles DELETE /rsos/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := rsoID(c)
	if !ok {
		return
	}
	if err := h.authorizeOfficer(c, id); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("rso deleted", zap.Int64("rso_id", id))
	response.Message(c, "rso deleted")
}

// Create handles POST /rsos/create.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.UserID == 0 {
		response.Error(c, apperrors.Validation("missing required fields"))
		return
	}
	userID, err := middleware.ResolveSubject(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.membership.Create(c.Request.Context(), CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		UniversityID: req.UniversityID,
		UserID:       userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "RSO created and user promoted to admin"
	if res.Role != models.RoleAdmin {
		msg = "RSO created"
	}
	response.OK(c, CreateResponse{
		Message:      msg,
		RSOID:        res.RSO.ID,
		NewRole:      res.Role,
		RSO:          res.Memberships,
		Organization: res.RSO,
	})
}

// Join handles POST /rsos/join.
func (h *Handler) Join(c *gin.Context) {
	req, userID, ok := bindMembership(c)
	if !ok {
		return
	}
	set, err := h.membership.Join(c.Request.Context(), userID, req.RSOs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, MembershipResponse{Message: "Successfully joined RSOs", RSO: set})
}

// Leave handles POST /rsos/leave.
func (h *Handler) Leave(c *gin.Context) {
	req, userID, ok := bindMembership(c)
	if !ok {
		return
	}
	ids := req.RSOs
	if req.RSOID != 0 {
		ids = append(ids, req.RSOID)
	}
	if len(ids) == 0 {
		response.Error(c, apperrors.Validation("rso ids are required"))
		return
	}
	set, err := h.membership.Leave(c.Request.Context(), userID, ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, MembershipResponse{Message: "Successfully left the RSO", RSO: set})
}

func bindMembership(c *gin.Context) (MembershipRequest, int64, bool) {
	var req MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return req, 0, false
	}
	if req.UserID == 0 {
		response.Error(c, apperrors.Validation("userId is required"))
		return req, 0, false
	}
	userID, err := middleware.ResolveSubject(c, req.UserID)
	if err != nil {
		response.Error(c, err)
		return req, 0, false
	}
	return req, userID, true
}

// authorizeOfficer allows super-admins and the admin who created the RSO.
// Membership alone does not make a user an officer.
func (h *Handler) authorizeOfficer(c *gin.Context, rsoID int64) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperrors.Unauthorized("authentication required")
	}
	rso, err := h.store.GetByID(c.Request.Context(), rsoID)
	if err != nil {
		return err
	}
	if identity.Role == models.RoleSuperAdmin {
		return nil
	}
	if identity.Role != models.RoleAdmin || rso.CreatedBy == nil || *rso.CreatedBy != identity.UserID {
		return apperrors.Forbidden("not an officer of this rso")
	}
	return nil
}

func rsoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid rso id")
		return 0, false
	}
	return id, true
}
