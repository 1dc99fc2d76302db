// Package router wires the HTTP handlers onto a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/comments"
	"github.com/campus-events/backend/internal/events"
	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/participants"
	"github.com/campus-events/backend/internal/rsos"
	"github.com/campus-events/backend/internal/universities"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/response"
)

// Handlers groups the endpoint handlers the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	Users        *users.Handler
	Universities *universities.Handler
	RSOs         *rsos.Handler
	Events       *events.Handler
	Comments     *comments.Handler
	Participants *participants.Handler
}

// Options configures the engine-wide middleware.
type Options struct {
	Logger         *zap.Logger
	Sessions       middleware.SessionVerifier
	AllowedOrigins []string
}

// New builds the engine with every route of the API.
func New(opts Options, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.Logger(opts.Logger))

	r.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	requireAuth := middleware.RequireAuth(opts.Sessions)
	optionalAuth := middleware.OptionalAuth(opts.Sessions)
	officers := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
	superAdmin := middleware.RequireRole(models.RoleSuperAdmin)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", requireAuth, h.Auth.Logout)
		authGroup.GET("/me", requireAuth, h.Auth.Me)
	}

	r.GET("/universities", h.Universities.List)
	r.GET("/universities/:id", h.Universities.Get)

	ev := r.Group("/events")
	{
		ev.GET("", optionalAuth, h.Events.List)
		ev.POST("", requireAuth, officers, h.Events.Create)
		ev.GET("/approve", requireAuth, superAdmin, h.Events.Pending)
		ev.PATCH("/approve", requireAuth, superAdmin, h.Events.Approve)
		ev.GET("/:id", optionalAuth, h.Events.Get)
		ev.PUT("/:id", requireAuth, officers, h.Events.Update)
		ev.DELETE("/:id", requireAuth, officers, h.Events.Delete)
	}

	cm := r.Group("/comments")
	{
		cm.GET("", optionalAuth, h.Comments.List)
		cm.GET("/user", h.Comments.ByUser)
		cm.POST("", requireAuth, h.Comments.Create)
		cm.PUT("", requireAuth, h.Comments.Update)
		cm.DELETE("", requireAuth, h.Comments.Delete)
		cm.PUT("/:id", requireAuth, h.Comments.Update)
		cm.DELETE("/:id", requireAuth, h.Comments.Delete)
	}
	r.GET("/ratings", optionalAuth, h.Comments.Ratings)

	rs := r.Group("/rsos")
	{
		rs.GET("", h.RSOs.List)
		rs.GET("/my", requireAuth, h.RSOs.Mine)
		rs.POST("/create", requireAuth, h.RSOs.Create)
		rs.POST("/join", requireAuth, h.RSOs.Join)
		rs.POST("/leave", requireAuth, h.RSOs.Leave)
		rs.GET("/:id", h.RSOs.Get)
		rs.PUT("/:id", requireAuth, officers, h.RSOs.Update)
		rs.DELETE("/:id", requireAuth, officers, h.RSOs.Delete)
	}

	pt := r.Group("/participants")
	{
		pt.GET("", optionalAuth, h.Participants.List)
		pt.POST("", requireAuth, h.Participants.Add)
		pt.DELETE("/:id", requireAuth, h.Participants.Remove)
	}

	us := r.Group("/users", requireAuth)
	{
		us.GET("", superAdmin, h.Users.List)
		us.GET("/:id", h.Users.Get)
		us.PUT("/:id", h.Users.Update)
		us.DELETE("/:id", h.Users.Delete)
	}

	return r
}
