package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
	"github.com/jerson3105/juriv2-sub007/pkg/response"
)

// RequireRoles rejects callers whose role is not listed. Administrators are
// always admitted; classroom ownership and student self-access are checked by
// the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; ok || claims.Role.IsAdministrator() {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
