package dto

import (
	"github.com/pendeploy/compute-deployer/models"
)

// DeploySuccessMessage is returned with every successful deployment.
const DeploySuccessMessage = "Deployment successful"

// DeployResponse is the body of a successful POST /api/deploy
type DeployResponse struct {
	Message string               `json:"message"`
	Outputs models.OutputMap     `json:"outputs"`
	Summary models.UpdateSummary `json:"summary"`
}

// NewDeployResponse creates a DeployResponse from an apply result
func NewDeployResponse(result models.DeploymentResult) DeployResponse {
	outputs := result.Outputs
	if outputs == nil {
		outputs = models.OutputMap{}
	}
	return DeployResponse{
		Message: DeploySuccessMessage,
		Outputs: outputs,
		Summary: result.Summary,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// DeploymentListResponse is the body of GET /api/deployments
type DeploymentListResponse struct {
	Deployments []models.Deployment `json:"deployments"`
}

// MessageResponse is the payload of a streamed "message" event
type MessageResponse struct {
	Message string `json:"message"`
}

// LogLine is the payload of a streamed "log" event
type LogLine struct {
	Line string `json:"line"`
}
