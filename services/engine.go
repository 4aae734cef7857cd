package services

import (
	"context"
	"io"

	"github.com/pendeploy/compute-deployer/lib/gcp"
	"github.com/pendeploy/compute-deployer/models"
)

// Stack configuration keys understood by the gcp provider.
const (
	ConfigKeyProject = "gcp:project"
	ConfigKeyRegion  = "gcp:region"
)

// Program yields the declarative resource set the engine converges to. The
// engine may invoke it any number of times (refresh, up); every invocation
// returns an equal spec.
type Program func() gcp.InstanceSpec

// BindProgram captures params by value so later changes to the caller's copy
// cannot alter what the engine sees.
func BindProgram(params models.DeploymentParams) Program {
	name, zone, machineType, project := params.InstanceName, params.Zone, params.MachineType, params.Project
	return func() gcp.InstanceSpec {
		return gcp.NewInstanceSpec(name, zone, machineType, project)
	}
}

// Engine is the infrastructure automation engine. Stack state, locking and
// provider calls live behind it.
type Engine interface {
	// CreateOrSelectStack attaches to the named stack, creating it when it
	// does not exist. Calling it repeatedly with the same names never
	// creates a second stack.
	CreateOrSelectStack(ctx context.Context, projectName, stackName string, program Program) (Stack, error)
}

// Stack is a named, versioned collection of resources owned by the engine.
// Progress text is written to sink in the order the engine produces it.
type Stack interface {
	Name() string
	SetConfig(ctx context.Context, key, value string) error
	Refresh(ctx context.Context, sink io.Writer) error
	Up(ctx context.Context, sink io.Writer) (models.DeploymentResult, error)
}
