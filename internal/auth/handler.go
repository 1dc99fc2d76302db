package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/response"
)

// Accounts is the account logic the handlers need.
type Accounts interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// SessionIssuer issues and revokes session tokens.
type SessionIssuer interface {
	Issue(u *models.User) (string, error)
	Revoke(ctx context.Context, identity middleware.Identity) error
}

// Count is an integer that also accepts a quoted number, as form fields
// are often posted as strings. Values must fit the database INTEGER column.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Count) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 32)
	if err != nil {
		return fmt.Errorf("count %s: out of range or not a number", b)
	}
	*n = Count(v)
	return nil
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Role        string `json:"role"` // optional, defaults to student
	University  string `json:"university" binding:"required"`
	UniDesc     string `json:"uniDesc"`
	UniLoc      string `json:"uniLoc"`
	UniStudents Count  `json:"uniStudents"`
	RSO         string `json:"rso"`
	RSODesc     string `json:"rsoDesc"`
	RSOCat      string `json:"rsoCat"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is returned by POST /auth/register.
type RegisterResponse struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	University *int64      `json:"university"`
	RSO        []int64     `json:"rso"`
	Token      string      `json:"token"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Message string            `json:"message"`
	User    models.UserPublic `json:"user"`
	Token   string            `json:"token"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	accounts Accounts
	sessions SessionIssuer
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(accounts Accounts, sessions SessionIssuer, logger *zap.Logger) *Handler {
	return &Handler{accounts: accounts, sessions: sessions, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "invalid role")
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Role:           role,
		University:     req.University,
		UniDescription: req.UniDesc,
		UniLocation:    req.UniLoc,
		UniStudents:    int(req.UniStudents),
		RSOName:        req.RSO,
		RSODescription: req.RSODesc,
		RSOCategory:    req.RSOCat,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	token, err := h.sessions.Issue(user)
	if err != nil {
		response.Error(c, err)
		return
	}

	pub := user.ToPublic()
	response.OK(c, RegisterResponse{
		ID:         pub.ID,
		Email:      pub.Email,
		Role:       pub.Role,
		University: pub.UniversityID,
		RSO:        pub.RSOs,
		Token:      token,
	})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, err := h.sessions.Issue(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, LoginResponse{Message: "Login successful", User: user.ToPublic(), Token: token})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, apperrors.Unauthorized("authentication required"))
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), identity); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("session revoked", zap.Int64("user_id", identity.UserID))
	response.Message(c, "Logged out")
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, apperrors.Unauthorized("authentication required"))
		return
	}
	user, err := h.accounts.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

var _ json.Unmarshaler = (*Count)(nil)
