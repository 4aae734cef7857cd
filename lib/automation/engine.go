// Package automation runs inline programs through the Pulumi Automation API.
// Credentials and the state backend come from the process environment
// (PULUMI_ACCESS_TOKEN, PULUMI_BACKEND_URL, GOOGLE_CREDENTIALS, ...).
package automation

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
)

// Options configures the engine.
type Options struct {
	// GCPPluginVersion installs the gcp resource plugin when the stack is
	// selected. Empty leaves plugin acquisition to the engine.
	GCPPluginVersion string
	// EnvVars are set on the workspace for every operation.
	EnvVars map[string]string
	Logger  *slog.Logger
}

// Engine is a services.Engine backed by a local Pulumi workspace.
type Engine struct {
	opts Options
}

var _ services.Engine = (*Engine)(nil)

func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{opts: opts}
}

// CreateOrSelectStack upserts an inline-source stack whose program runs the
// bound instance spec.
func (e *Engine) CreateOrSelectStack(ctx context.Context, projectName, stackName string, program services.Program) (services.Stack, error) {
	run := func(pctx *pulumi.Context) error {
		return program().Run(pctx)
	}

	var wsOpts []auto.LocalWorkspaceOption
	if len(e.opts.EnvVars) > 0 {
		wsOpts = append(wsOpts, auto.EnvVars(e.opts.EnvVars))
	}

	s, err := auto.UpsertStackInlineSource(ctx, stackName, projectName, run, wsOpts...)
	if err != nil {
		return nil, err
	}

	if e.opts.GCPPluginVersion != "" {
		e.opts.Logger.Debug("installing plugin", "plugin", "gcp", "version", e.opts.GCPPluginVersion)
		if err := s.Workspace().InstallPlugin(ctx, "gcp", e.opts.GCPPluginVersion); err != nil {
			return nil, fmt.Errorf("install gcp plugin %s: %w", e.opts.GCPPluginVersion, err)
		}
	}

	return &stack{stack: s}, nil
}

type stack struct {
	stack auto.Stack
}

func (s *stack) Name() string { return s.stack.Name() }

func (s *stack) SetConfig(ctx context.Context, key, value string) error {
	return s.stack.SetConfig(ctx, key, auto.ConfigValue{Value: value})
}

func (s *stack) Refresh(ctx context.Context, sink io.Writer) error {
	var opts []optrefresh.Option
	if sink != nil {
		opts = append(opts, optrefresh.ProgressStreams(sink), optrefresh.ErrorProgressStreams(sink))
	}
	_, err := s.stack.Refresh(ctx, opts...)
	return err
}

func (s *stack) Up(ctx context.Context, sink io.Writer) (models.DeploymentResult, error) {
	var opts []optup.Option
	if sink != nil {
		opts = append(opts, optup.ProgressStreams(sink), optup.ErrorProgressStreams(sink))
	}
	res, err := s.stack.Up(ctx, opts...)
	if err != nil {
		return models.DeploymentResult{}, err
	}
	return convertUpResult(res), nil
}

func convertUpResult(res auto.UpResult) models.DeploymentResult {
	outputs := make(models.OutputMap, len(res.Outputs))
	for k, v := range res.Outputs {
		outputs[k] = models.OutputValue{Value: v.Value, Secret: v.Secret}
	}
	return models.DeploymentResult{
		Outputs: outputs,
		Summary: models.UpdateSummary{
			Kind:            res.Summary.Kind,
			StartTime:       res.Summary.StartTime,
			EndTime:         res.Summary.EndTime,
			Message:         res.Summary.Message,
			Environment:     res.Summary.Environment,
			Config:          convertSummaryConfig(res.Summary.Config),
			Result:          res.Summary.Result,
			Version:         res.Summary.Version,
			ResourceChanges: res.Summary.ResourceChanges,
		},
	}
}

// convertSummaryConfig copies the config recorded with an update. Secret
// values are masked; outputs are the only place secrets are returned.
func convertSummaryConfig(cfg auto.ConfigMap) map[string]models.SummaryConfigValue {
	if len(cfg) == 0 {
		return nil
	}
	out := make(map[string]models.SummaryConfigValue, len(cfg))
	for k, v := range cfg {
		value := v.Value
		if v.Secret {
			value = models.SecretMask
		}
		out[k] = models.SummaryConfigValue{Value: value, Secret: v.Secret}
	}
	return out
}
