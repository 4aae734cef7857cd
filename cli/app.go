package cli

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/pendeploy/compute-deployer/config"
	"github.com/pendeploy/compute-deployer/database"
	"github.com/pendeploy/compute-deployer/lib/automation"
	"github.com/pendeploy/compute-deployer/metrics"
	"github.com/pendeploy/compute-deployer/repositories"
	"github.com/pendeploy/compute-deployer/services"
	"github.com/pendeploy/compute-deployer/services/fake"
)

// app holds the long-lived values shared by the serve and deploy commands.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	repository *repositories.DeploymentRepository
	metrics    *metrics.Metrics
	service    *services.DeploymentService
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(a.metrics),
	}

	if cfg.HistoryEnabled() {
		db, err := database.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		a.db = db
		a.repository = repositories.NewDeploymentRepository(db)
		opts = append(opts, services.WithRecorder(a.repository))
	} else {
		logger.Info("deployment history disabled, DATABASE_URL is not set")
	}

	a.service = services.NewDeploymentService(newEngine(cfg, logger), services.Settings{
		ProjectName:    cfg.ProjectName,
		StackName:      cfg.StackName,
		DefaultProject: cfg.DefaultProject,
		Timeout:        cfg.DeployTimeout,
	}, opts...)

	return a, nil
}

func newEngine(cfg *config.Config, logger *slog.Logger) services.Engine {
	if cfg.Engine == config.EngineFake {
		logger.Warn("using the in-memory fake engine, no cloud resources will be created")
		return fake.NewEngine()
	}
	return automation.NewEngine(automation.Options{
		GCPPluginVersion: cfg.GCPPluginVersion,
		Logger:           logger,
	})
}

// store returns the history store, or nil when history is disabled.
func (a *app) store() *repositories.DeploymentRepository {
	return a.repository
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return database.Close(a.db)
}
