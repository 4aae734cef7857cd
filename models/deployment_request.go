package models

import (
	"errors"
	"strings"
)

const (
	// DefaultZone is used when a request omits zone.
	DefaultZone = "us-central1-a"
	// DefaultMachineType is used when a request omits machineType.
	DefaultMachineType = "e2-micro"
)

var (
	ErrInstanceNameRequired = errors.New("instanceName is required")
	ErrProjectRequired      = errors.New("GCP Project ID is required (via env GCP_PROJECT_ID or body)")
	ErrInvalidZone          = errors.New("zone must have the form <region>-<suffix>, e.g. us-central1-a")
)

// ValidationError is returned for requests that must not reach the engine.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// DeploymentRequest is the body of POST /api/deploy
type DeploymentRequest struct {
	InstanceName string `json:"instanceName"`
	Zone         string `json:"zone,omitempty"`
	MachineType  string `json:"machineType,omitempty"`
	Project      string `json:"project,omitempty"`
}

// DeploymentParams is a validated request with every default applied.
type DeploymentParams struct {
	InstanceName string `json:"instanceName"`
	Zone         string `json:"zone"`
	Region       string `json:"region"`
	MachineType  string `json:"machineType"`
	Project      string `json:"project"`
}

// Resolve applies defaults and validates the request. defaultProject is used
// when the request has no project. The instance name is only checked for
// presence; naming rules are enforced by the cloud API.
func (r DeploymentRequest) Resolve(defaultProject string) (DeploymentParams, error) {
	name := strings.TrimSpace(r.InstanceName)
	if name == "" {
		return DeploymentParams{}, &ValidationError{Field: "instanceName", Err: ErrInstanceNameRequired}
	}

	project := strings.TrimSpace(r.Project)
	if project == "" {
		project = strings.TrimSpace(defaultProject)
	}
	if project == "" {
		return DeploymentParams{}, &ValidationError{Field: "project", Err: ErrProjectRequired}
	}

	zone := strings.TrimSpace(r.Zone)
	if zone == "" {
		zone = DefaultZone
	}
	region, err := RegionFromZone(zone)
	if err != nil {
		return DeploymentParams{}, &ValidationError{Field: "zone", Err: err}
	}

	machineType := strings.TrimSpace(r.MachineType)
	if machineType == "" {
		machineType = DefaultMachineType
	}

	return DeploymentParams{
		InstanceName: name,
		Zone:         zone,
		Region:       region,
		MachineType:  machineType,
		Project:      project,
	}, nil
}

// RegionFromZone strips the last "-<suffix>" of a zone:
// "us-central1-a" -> "us-central1". Zones whose remaining prefix is not
// itself a hyphenated region (a bare region such as "us-central1", or a
// string without hyphens) are rejected.
func RegionFromZone(zone string) (string, error) {
	i := strings.LastIndex(zone, "-")
	if i <= 0 || i == len(zone)-1 {
		return "", ErrInvalidZone
	}
	region := zone[:i]
	if j := strings.Index(region, "-"); j <= 0 || j == len(region)-1 {
		return "", ErrInvalidZone
	}
	return region, nil
}
