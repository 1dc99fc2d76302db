package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/response"
)

// ContextIdentity is the key for the verified session in gin context.
const ContextIdentity = "identity"

// Identity is a verified session.
type Identity struct {
	UserID    int64
	Email     string
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// SessionVerifier verifies a bearer token, including revocation.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RequireAuth returns a middleware that rejects requests without a valid
// bearer token and sets the identity in context.
func RequireAuth(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// OptionalAuth sets the identity when a valid bearer token is present and
// otherwise lets the request through anonymously. A present but invalid
// token is still rejected.
func OptionalAuth(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		RequireAuth(verifier)(c)
	}
}

// CurrentIdentity returns the identity set by RequireAuth or OptionalAuth.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
