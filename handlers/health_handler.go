package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "compute-deployer"

// HealthCheck handles the health check endpoint
func HealthCheck(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": ServiceName,
			"version": version,
		})
	}
}
