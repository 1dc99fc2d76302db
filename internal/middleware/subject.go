package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

// ResolveSubject returns the user a request acts on. A zero userID means the
// caller; any other user requires a super-admin session.
func ResolveSubject(c *gin.Context, userID int64) (int64, error) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return 0, apperrors.Unauthorized("authentication required")
	}
	if userID == 0 || userID == identity.UserID {
		return identity.UserID, nil
	}
	if identity.Role == models.RoleSuperAdmin {
		return userID, nil
	}
	return 0, apperrors.Forbidden("cannot act on behalf of another user")
}
