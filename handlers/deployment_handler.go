package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pendeploy/compute-deployer/dto"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/repositories"
	"github.com/pendeploy/compute-deployer/services"
	"github.com/pendeploy/compute-deployer/utils"
)

// FallbackErrorMessage is used when a failure carries no message.
const FallbackErrorMessage = "Deployment failed"

// DeploymentStore reads recorded deployment runs.
type DeploymentStore interface {
	FindAll(ctx context.Context, limit int) ([]models.Deployment, error)
	FindByID(ctx context.Context, id string) (models.Deployment, error)
	FindLatestByStack(ctx context.Context, projectName, stackName string) (models.Deployment, error)
	CountByStatus(ctx context.Context, projectName, stackName string, status models.DeploymentStatus) (int64, error)
}

// DeploymentHandler serves the deployment endpoints
type DeploymentHandler struct {
	service *services.DeploymentService
	store   DeploymentStore
	logger  *slog.Logger
}

// NewDeploymentHandler creates the handler. store may be nil when history is
// disabled.
func NewDeploymentHandler(service *services.DeploymentService, store DeploymentStore, logger *slog.Logger) *DeploymentHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DeploymentHandler{service: service, store: store, logger: logger}
}

// Deploy handles POST /api/deploy. It blocks until the engine has finished.
func (h *DeploymentHandler) Deploy(c *gin.Context) {
	req, ok := h.bindDeploymentRequest(c)
	if !ok {
		return
	}

	result, err := h.service.Deploy(c.Request.Context(), req, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewDeployResponse(*result))
}

// DeployStream handles POST /api/deploy/stream. Validation failures are
// answered with a plain 400; afterwards progress is streamed as "log" events
// and the outcome as one "result" or "error" event.
func (h *DeploymentHandler) DeployStream(c *gin.Context) {
	req, ok := h.bindDeploymentRequest(c)
	if !ok {
		return
	}

	params, err := h.service.Validate(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	stream := utils.NewSSEWriter(c.Writer)
	_ = stream.Message("Deployment started")

	result, err := h.service.DeployParams(c.Request.Context(), params, stream)
	if err != nil {
		h.logFailure(c, err)
		_ = stream.Event(utils.SSEEventError, dto.ErrorResponse{Error: errorMessage(err)})
		return
	}
	_ = stream.Event(utils.SSEEventResult, dto.NewDeployResponse(*result))
}

// ListDeployments handles GET /api/deployments
func (h *DeploymentHandler) ListDeployments(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "deployment history is disabled"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	deployments, err := h.store.FindAll(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list deployments", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list deployments"})
		return
	}
	if deployments == nil {
		deployments = []models.Deployment{}
	}
	c.JSON(http.StatusOK, dto.DeploymentListResponse{Deployments: deployments})
}

// GetDeployment handles GET /api/deployments/:id
func (h *DeploymentHandler) GetDeployment(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "deployment history is disabled"})
		return
	}

	deployment, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to get deployment", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get deployment"})
		return
	}
	c.JSON(http.StatusOK, deployment)
}

// Stats handles GET /api/deployments/stats
func (h *DeploymentHandler) Stats(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "deployment history is disabled"})
		return
	}

	ctx := c.Request.Context()
	settings := h.service.Settings()
	resp := dto.DeploymentStatsResponse{
		Project: settings.ProjectName,
		Stack:   settings.StackName,
		Counts:  make(map[models.DeploymentStatus]int64, 3),
	}
	for _, status := range []models.DeploymentStatus{
		models.DeploymentStatusRunning,
		models.DeploymentStatusSucceeded,
		models.DeploymentStatusFailed,
	} {
		n, err := h.store.CountByStatus(ctx, settings.ProjectName, settings.StackName, status)
		if err != nil {
			h.logger.Error("failed to count deployments", "status", status, "error", err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to count deployments"})
			return
		}
		resp.Counts[status] = n
		resp.Total += n
	}

	latest, err := h.store.FindLatestByStack(ctx, settings.ProjectName, settings.StackName)
	switch {
	case err == nil:
		resp.LastRun = &latest
	case !errors.Is(err, repositories.ErrNotFound):
		h.logger.Error("failed to get latest deployment", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get latest deployment"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindDeploymentRequest decodes the body. An empty body is an empty request,
// so validation reports what is missing; any other decode failure is not a
// validation error and is answered like every unexpected failure.
func (h *DeploymentHandler) bindDeploymentRequest(c *gin.Context) (models.DeploymentRequest, bool) {
	var req models.DeploymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, fmt.Errorf("invalid request body: %w", err))
		return req, false
	}
	return req, true
}

func (h *DeploymentHandler) respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Error()})
		return
	}
	h.logFailure(c, err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: errorMessage(err)})
}

func (h *DeploymentHandler) logFailure(c *gin.Context, err error) {
	attrs := []any{"error", err, "request_id", c.GetString(utils.RequestIDKey)}
	var engineErr *services.EngineError
	if errors.As(err, &engineErr) {
		attrs = append(attrs, "step", engineErr.Step)
	}
	h.logger.Error("deployment request failed", attrs...)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return FallbackErrorMessage
	}
	return err.Error()
}
