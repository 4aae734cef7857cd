package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pendeploy/compute-deployer/dto"
	"github.com/pendeploy/compute-deployer/models"
)

// RequireRole ensures the caller holds at least the given role.
// This middleware should be used after AuthMiddleware
func RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(RoleKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication required"})
			return
		}

		role, ok := value.(models.Role)
		if !ok || !role.Allows(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Error: string(required) + " role required"})
			return
		}

		c.Next()
	}
}
