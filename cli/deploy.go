package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pendeploy/compute-deployer/config"
	"github.com/pendeploy/compute-deployer/dto"
	"github.com/pendeploy/compute-deployer/models"
)

func newDeployCommand() *cobra.Command {
	var req models.DeploymentRequest

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update an instance from the terminal",
		Long:  "Runs the same flow as POST /api/deploy. Engine progress is logged to stderr; the result is printed to stdout as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.service.Deploy(cmd.Context(), req, nil)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dto.NewDeployResponse(*result))
		},
	}

	cmd.Flags().StringVar(&req.InstanceName, "instance-name", "", "Instance name (required)")
	cmd.Flags().StringVar(&req.Zone, "zone", "", "Zone, default "+models.DefaultZone)
	cmd.Flags().StringVar(&req.MachineType, "machine-type", "", "Machine type, default "+models.DefaultMachineType)
	cmd.Flags().StringVar(&req.Project, "project", "", "GCP project; defaults to GCP_PROJECT_ID")

	return cmd
}
