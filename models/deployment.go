package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeploymentStatus is the lifecycle state of a recorded deployment run
type DeploymentStatus string

const (
	DeploymentStatusRunning   DeploymentStatus = "running"
	DeploymentStatusSucceeded DeploymentStatus = "succeeded"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// Deployment is one run of the deployment flow against a stack.
type Deployment struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProjectName  string           `json:"projectName" gorm:"not null"`
	StackName    string           `json:"stackName" gorm:"index;not null"`
	InstanceName string           `json:"instanceName" gorm:"index;not null"`
	Zone         string           `json:"zone" gorm:"not null"`
	MachineType  string           `json:"machineType" gorm:"not null"`
	Project      string           `json:"project" gorm:"not null"`
	Status       DeploymentStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	Outputs      OutputMap        `json:"outputs,omitempty" gorm:"serializer:json;type:text"`
	Summary      *UpdateSummary   `json:"summary,omitempty" gorm:"serializer:json;type:text"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	FinishedAt   *time.Time       `json:"finishedAt,omitempty"`
}

// BeforeCreate assigns the primary key so records can be created on any dialect.
func (d *Deployment) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
