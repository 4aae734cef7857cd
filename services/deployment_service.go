package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pendeploy/compute-deployer/logging"
	"github.com/pendeploy/compute-deployer/metrics"
	"github.com/pendeploy/compute-deployer/models"
)

// DeploymentRecorder persists deployment runs. Implemented by
// repositories.DeploymentRepository.
type DeploymentRecorder interface {
	Create(ctx context.Context, deployment *models.Deployment) error
	MarkSucceeded(ctx context.Context, id string, result models.DeploymentResult) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// Settings are the process-wide values the deployment flow depends on.
type Settings struct {
	ProjectName    string
	StackName      string
	DefaultProject string
	// Timeout bounds the engine steps of one deployment; zero means no bound.
	Timeout time.Duration
}

// DeploymentService drives the engine through select, configure, refresh and
// up for one validated request.
type DeploymentService struct {
	engine   Engine
	settings Settings
	locks    *StackLocks
	recorder DeploymentRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a DeploymentService.
type Option func(*DeploymentService)

// WithRecorder persists every run that passes validation.
func WithRecorder(r DeploymentRecorder) Option {
	return func(s *DeploymentService) { s.recorder = r }
}

// WithMetrics records deployment and step timings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *DeploymentService) { s.metrics = m }
}

// WithLogger sets the logger; engine progress is logged through it too.
func WithLogger(l *slog.Logger) Option {
	return func(s *DeploymentService) { s.logger = l }
}

// WithStackLocks shares stack locks between services.
func WithStackLocks(l *StackLocks) Option {
	return func(s *DeploymentService) { s.locks = l }
}

func NewDeploymentService(engine Engine, settings Settings, opts ...Option) *DeploymentService {
	s := &DeploymentService{
		engine:   engine,
		settings: settings,
		locks:    NewStackLocks(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the settings the service was built with.
func (s *DeploymentService) Settings() Settings {
	return s.settings
}

// Validate resolves req against the configured default project without
// touching the engine.
func (s *DeploymentService) Validate(req models.DeploymentRequest) (models.DeploymentParams, error) {
	params, err := req.Resolve(s.settings.DefaultProject)
	if err != nil {
		s.metrics.ObserveDeployment(metrics.ResultRejected, 0)
	}
	return params, err
}

// Deploy validates req and converges its instance. Engine progress is logged
// and, when sink is not nil, also written to sink. A *models.ValidationError
// means the engine was never called; engine failures are *EngineError.
func (s *DeploymentService) Deploy(ctx context.Context, req models.DeploymentRequest, sink io.Writer) (*models.DeploymentResult, error) {
	params, err := s.Validate(req)
	if err != nil {
		return nil, err
	}
	return s.DeployParams(ctx, params, sink)
}

// DeployParams runs the engine steps for already validated params.
func (s *DeploymentService) DeployParams(ctx context.Context, params models.DeploymentParams, sink io.Writer) (*models.DeploymentResult, error) {
	start := time.Now()
	logger := s.logger.With(
		"instance", params.InstanceName,
		"project", params.Project,
		"zone", params.Zone,
		"stack", StackKey(s.settings.ProjectName, s.settings.StackName),
	)

	done := s.metrics.Started()
	defer done()

	release, err := s.locks.Acquire(ctx, StackKey(s.settings.ProjectName, s.settings.StackName))
	if err != nil {
		s.metrics.ObserveDeployment(metrics.ResultFailed, time.Since(start))
		return nil, fmt.Errorf("wait for stack %s: %w", s.settings.StackName, err)
	}
	defer release()

	// Interrupting the engine mid-update leaves pending operations on the
	// stack, so once it holds the stack only Timeout can stop it.
	ctx = context.WithoutCancel(ctx)
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	record := s.recordStart(ctx, logger, params)

	writers := []io.Writer{logging.NewWriter(logger, "engine output")}
	if sink != nil {
		writers = append(writers, sink)
	}
	out := &progress{Writer: io.MultiWriter(writers...), writers: writers}

	result, err := s.run(ctx, logger, params, out)
	s.recordFinish(ctx, logger, record, result, err)
	if err != nil {
		s.metrics.ObserveDeployment(metrics.ResultFailed, time.Since(start))
		logger.Error("deployment failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	s.metrics.ObserveDeployment(metrics.ResultSucceeded, time.Since(start))
	logger.Info("deployment succeeded", "duration", time.Since(start))
	return result, nil
}

func (s *DeploymentService) run(ctx context.Context, logger *slog.Logger, params models.DeploymentParams, out *progress) (*models.DeploymentResult, error) {
	program := BindProgram(params)

	var stack Stack
	err := s.step(logger, StepSelectStack, func() error {
		var err error
		stack, err = s.engine.CreateOrSelectStack(ctx, s.settings.ProjectName, s.settings.StackName, program)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.step(logger, StepSetConfig, func() error {
		if err := stack.SetConfig(ctx, ConfigKeyProject, params.Project); err != nil {
			return err
		}
		return stack.SetConfig(ctx, ConfigKeyRegion, params.Region)
	})
	if err != nil {
		return nil, err
	}

	err = s.step(logger, StepRefresh, func() error {
		defer out.flushLines(logger)
		return stack.Refresh(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	var result models.DeploymentResult
	err = s.step(logger, StepUp, func() error {
		defer out.flushLines(logger)
		var err error
		result, err = stack.Up(ctx, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// progress fans engine output out to every writer and lets line-buffered
// writers emit their last unterminated line once a step has finished.
type progress struct {
	io.Writer
	writers []io.Writer
}

func (p *progress) flushLines(logger *slog.Logger) {
	for _, w := range p.writers {
		if lf, ok := w.(logging.LineFlusher); ok {
			if err := lf.FlushLine(); err != nil {
				logger.Warn("failed to flush engine output", "error", err)
			}
		}
	}
}

func (s *DeploymentService) step(logger *slog.Logger, name string, fn func() error) error {
	logger.Info("running step", "step", name)
	start := time.Now()
	err := fn()
	s.metrics.ObserveStep(name, time.Since(start))
	if err != nil {
		return &EngineError{Step: name, Err: err}
	}
	return nil
}

func (s *DeploymentService) recordStart(ctx context.Context, logger *slog.Logger, params models.DeploymentParams) *models.Deployment {
	if s.recorder == nil {
		return nil
	}
	record := &models.Deployment{
		ProjectName:  s.settings.ProjectName,
		StackName:    s.settings.StackName,
		InstanceName: params.InstanceName,
		Zone:         params.Zone,
		MachineType:  params.MachineType,
		Project:      params.Project,
		Status:       models.DeploymentStatusRunning,
	}
	if err := s.recorder.Create(ctx, record); err != nil {
		logger.Warn("failed to record deployment", "error", err)
		return nil
	}
	return record
}

func (s *DeploymentService) recordFinish(ctx context.Context, logger *slog.Logger, record *models.Deployment, result *models.DeploymentResult, runErr error) {
	if s.recorder == nil || record == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = s.recorder.MarkFailed(ctx, record.ID, runErr.Error())
	} else {
		err = s.recorder.MarkSucceeded(ctx, record.ID, *result)
	}
	if err != nil {
		logger.Warn("failed to update deployment record", "id", record.ID, "error", err)
	}
}
