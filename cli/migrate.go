package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pendeploy/compute-deployer/config"
	"github.com/pendeploy/compute-deployer/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the deployment history tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			if !cfg.HistoryEnabled() {
				return errors.New("DATABASE_URL is not set")
			}

			// Open migrates as part of initialization.
			db, err := database.Open(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			logger.Info("migration completed")
			return nil
		},
	}
}
