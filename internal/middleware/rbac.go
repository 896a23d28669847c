package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
	"github.com/jondumad/EcoPulse-Backend/pkg/response"
)

// RequireRoles admits callers holding one of roles. Per-mission checks
// (creator, collaborator) happen in the services.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireCoordinator admits coordinators and admins.
func RequireCoordinator() gin.HandlerFunc {
	return RequireRoles(models.RoleCoordinator, models.RoleAdmin, models.RoleSuperAdmin)
}
