// Package gcp describes the Compute Engine resources a deployment converges to.
package gcp

import (
	"github.com/pulumi/pulumi-gcp/sdk/v8/go/gcp/compute"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/pendeploy/compute-deployer/models"
)

const (
	// BootImage is the public image the boot disk is initialized from.
	BootImage = "debian-cloud/debian-11"
	// DefaultNetwork is the VPC the instance's interface attaches to.
	DefaultNetwork = "default"
	// HTTPServerTag opens the project's default-allow-http firewall rule.
	HTTPServerTag = "http-server"
)

// InstanceSpec is the declarative description of one compute instance.
// Building it has no side effects; resources are only registered when the
// engine runs Declare.
type InstanceSpec struct {
	Name        string
	MachineType string
	Zone        string
	Project     string
	BootImage   string
	Network     string
	// EphemeralPublicIP requests one access config without a static address.
	EphemeralPublicIP bool
	Tags              []string
}

// NewInstanceSpec returns the spec for an instance with the given parameters.
func NewInstanceSpec(name, zone, machineType, project string) InstanceSpec {
	return InstanceSpec{
		Name:              name,
		MachineType:       machineType,
		Zone:              zone,
		Project:           project,
		BootImage:         BootImage,
		Network:           DefaultNetwork,
		EphemeralPublicIP: true,
		Tags:              []string{HTTPServerTag},
	}
}

// InstanceOutputs are pending values that resolve once the engine has
// converged the instance.
type InstanceOutputs struct {
	Instance   *compute.Instance
	Name       pulumi.StringOutput
	ExternalIP pulumi.StringOutput
}

// Declare registers the instance with the engine.
func (s InstanceSpec) Declare(ctx *pulumi.Context, opts ...pulumi.ResourceOption) (*InstanceOutputs, error) {
	var accessConfigs compute.InstanceNetworkInterfaceAccessConfigArray
	if s.EphemeralPublicIP {
		accessConfigs = compute.InstanceNetworkInterfaceAccessConfigArray{
			&compute.InstanceNetworkInterfaceAccessConfigArgs{},
		}
	}

	instance, err := compute.NewInstance(ctx, s.Name, &compute.InstanceArgs{
		Name:        pulumi.String(s.Name),
		MachineType: pulumi.String(s.MachineType),
		Zone:        pulumi.String(s.Zone),
		Project:     pulumi.String(s.Project),
		BootDisk: &compute.InstanceBootDiskArgs{
			InitializeParams: &compute.InstanceBootDiskInitializeParamsArgs{
				Image: pulumi.String(s.BootImage),
			},
		},
		NetworkInterfaces: compute.InstanceNetworkInterfaceArray{
			&compute.InstanceNetworkInterfaceArgs{
				Network:       pulumi.String(s.Network),
				AccessConfigs: accessConfigs,
			},
		},
		Tags: pulumi.ToStringArray(s.Tags),
	}, opts...)
	if err != nil {
		return nil, err
	}

	externalIP := instance.NetworkInterfaces.ApplyT(func(nics []compute.InstanceNetworkInterface) string {
		if len(nics) == 0 || len(nics[0].AccessConfigs) == 0 || nics[0].AccessConfigs[0].NatIp == nil {
			return ""
		}
		return *nics[0].AccessConfigs[0].NatIp
	}).(pulumi.StringOutput)

	return &InstanceOutputs{
		Instance:   instance,
		Name:       instance.Name,
		ExternalIP: externalIP,
	}, nil
}

// Run declares the instance and exports its name and external IP. It is the
// body of the inline program handed to the automation engine.
func (s InstanceSpec) Run(ctx *pulumi.Context) error {
	outs, err := s.Declare(ctx)
	if err != nil {
		return err
	}
	ctx.Export(models.OutputInstanceName, outs.Name)
	ctx.Export(models.OutputInstanceExternalIP, outs.ExternalIP)
	return nil
}
