package dto

import (
	"github.com/pendeploy/compute-deployer/models"
)

// DeploymentStatsResponse is the body of GET /api/deployments/stats
type DeploymentStatsResponse struct {
	Project string                            `json:"project"`
	Stack   string                            `json:"stack"`
	Counts  map[models.DeploymentStatus]int64 `json:"counts"`
	Total   int64                             `json:"total"`
	LastRun *models.Deployment                `json:"lastRun,omitempty"`
}
