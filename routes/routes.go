package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pendeploy/compute-deployer/handlers"
	"github.com/pendeploy/compute-deployer/metrics"
	"github.com/pendeploy/compute-deployer/middleware"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/utils"
)

// Dependencies are the values the router is built from.
type Dependencies struct {
	Deployments    *handlers.DeploymentHandler
	Metrics        *metrics.Metrics
	Auth           middleware.AuthConfig
	AllowedOrigins []string
	Version        string
	Logger         *slog.Logger
}

// SetupRouter builds the gin engine with every route registered.
func SetupRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger, handlers.FallbackErrorMessage),
		cors.New(corsConfig(deps.AllowedOrigins)),
	)

	// Public routes
	health := handlers.HealthCheck(deps.Version)
	router.GET("/", health)
	router.GET("/health", health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.Auth))
	{
		deploy := api.Group("/deploy")
		deploy.Use(middleware.RequireRole(models.RoleDeployer))
		{
			deploy.POST("", deps.Deployments.Deploy)
			deploy.POST("/stream", deps.Deployments.DeployStream)
		}

		deployments := api.Group("/deployments")
		deployments.Use(middleware.RequireRole(models.RoleViewer))
		{
			deployments.GET("", deps.Deployments.ListDeployments)
			deployments.GET("/stats", deps.Deployments.Stats)
			deployments.GET("/:id", deps.Deployments.GetDeployment)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.APIKeyHeader, utils.RequestIDHeader},
		ExposeHeaders: []string{utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
