package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pendeploy/compute-deployer/models"
)

// ErrNotFound is returned when no deployment matches.
var ErrNotFound = errors.New("deployment not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DeploymentRepository handles database operations for deployment runs
type DeploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository creates a new deployment repository instance
func NewDeploymentRepository(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// Create inserts a new deployment into the database
func (r *DeploymentRepository) Create(ctx context.Context, deployment *models.Deployment) error {
	return r.db.WithContext(ctx).Create(deployment).Error
}

// MarkSucceeded stores the result of a successful apply
func (r *DeploymentRepository) MarkSucceeded(ctx context.Context, id string, result models.DeploymentResult) error {
	summary := result.Summary
	return r.finish(ctx, id, &models.Deployment{
		Status:  models.DeploymentStatusSucceeded,
		Outputs: result.Outputs,
		Summary: &summary,
	})
}

// MarkFailed stores the error that ended a deployment
func (r *DeploymentRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.finish(ctx, id, &models.Deployment{
		Status: models.DeploymentStatusFailed,
		Error:  message,
	})
}

func (r *DeploymentRepository) finish(ctx context.Context, id string, updates *models.Deployment) error {
	now := time.Now()
	updates.FinishedAt = &now
	result := r.db.WithContext(ctx).Model(&models.Deployment{ID: id}).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindAll retrieves the most recent deployments, newest first
func (r *DeploymentRepository) FindAll(ctx context.Context, limit int) ([]models.Deployment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var deployments []models.Deployment
	result := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&deployments)
	return deployments, result.Error
}

// FindByID retrieves a deployment by its ID
func (r *DeploymentRepository) FindByID(ctx context.Context, id string) (models.Deployment, error) {
	var deployment models.Deployment
	result := r.db.WithContext(ctx).First(&deployment, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return deployment, ErrNotFound
	}
	return deployment, result.Error
}

// FindLatestByStack retrieves the most recent deployment against a stack
func (r *DeploymentRepository) FindLatestByStack(ctx context.Context, projectName, stackName string) (models.Deployment, error) {
	var deployment models.Deployment
	result := r.db.WithContext(ctx).
		Where("project_name = ? AND stack_name = ?", projectName, stackName).
		Order("created_at DESC").
		First(&deployment)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return deployment, ErrNotFound
	}
	return deployment, result.Error
}

// CountByStatus counts deployments against a stack with the given status
func (r *DeploymentRepository) CountByStatus(ctx context.Context, projectName, stackName string, status models.DeploymentStatus) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.Deployment{}).
		Where("project_name = ? AND stack_name = ? AND status = ?", projectName, stackName, status).
		Count(&count)
	return count, result.Error
}
