package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pendeploy/compute-deployer/config"
	"github.com/pendeploy/compute-deployer/handlers"
	"github.com/pendeploy/compute-deployer/logging"
	"github.com/pendeploy/compute-deployer/middleware"
	"github.com/pendeploy/compute-deployer/routes"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Port to listen on; defaults to PORT")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close history database", "error", err)
		}
	}()

	var store handlers.DeploymentStore
	if repo := a.store(); repo != nil {
		store = repo
	}

	router := routes.SetupRouter(routes.Dependencies{
		Deployments: handlers.NewDeploymentHandler(a.service, store, logger),
		Metrics:     a.metrics,
		Auth: middleware.AuthConfig{
			APIKeyHash: cfg.APIKeyHash,
			JWTSecret:  cfg.JWTSecret,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Version:        cfg.Version,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logging.StdLogger(logger, slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"port", cfg.Port,
			"engine", cfg.Engine,
			"auth", cfg.AuthEnabled(),
			"history", cfg.HistoryEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	case <-ctx.Done():
	}

	// In-flight deployments keep running until they finish or the timeout hits.
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
