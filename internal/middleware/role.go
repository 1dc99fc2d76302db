package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. It must
// run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[identity.Role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
