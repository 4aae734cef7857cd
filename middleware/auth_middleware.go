package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pendeploy/compute-deployer/dto"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
)

const (
	// RoleKey is the gin context key holding the caller's models.Role.
	RoleKey = "role"
	// SubjectKey is the gin context key holding the caller's identity.
	SubjectKey = "subject"

	APIKeyHeader = "X-API-Key"
)

// AuthConfig selects the accepted credentials. With both fields empty
// authentication is disabled.
type AuthConfig struct {
	APIKeyHash string
	JWTSecret  string
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return a.APIKeyHash != "" || a.JWTSecret != ""
}

// AuthMiddleware authenticates requests using an API key or a bearer token
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled() {
			c.Set(RoleKey, models.RoleAdmin)
			c.Set(SubjectKey, "anonymous")
			c.Next()
			return
		}

		if key := c.GetHeader(APIKeyHeader); key != "" {
			if !services.CheckAPIKey(cfg.APIKeyHash, key) {
				abortUnauthorized(c, "Invalid API key")
				return
			}
			c.Set(RoleKey, models.RoleAdmin)
			c.Set(SubjectKey, "api-key")
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		// Check if the header has the Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			abortUnauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := services.ValidateToken(cfg.JWTSecret, parts[1])
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(RoleKey, models.Role(claims.Role))
		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: message})
}
