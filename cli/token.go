package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
	"github.com/pendeploy/compute-deployer/utils"
)

func newTokenCommand() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, expiresAt, err := services.GenerateToken(os.Getenv("JWT_SECRET"), subject, models.Role(role), ttl)
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Info("token issued", "subject", subject, "role", role, "expires_at", expiresAt)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleDeployer), "Role: viewer, deployer or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newHashKeyCommand() *cobra.Command {
	var generate int

	cmd := &cobra.Command{
		Use:   "hash-key",
		Short: "Print the bcrypt hash of an API key for API_KEY_HASH",
		Long:  "Reads the key from stdin, or with --generate creates one and prints the key on the first line and its hash on the second.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var key string
			if generate > 0 {
				generated, err := utils.GenerateAPIKey(generate)
				if err != nil {
					return err
				}
				key = generated
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), key); err != nil {
					return err
				}
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no API key on stdin")
				}
				key = strings.TrimSpace(line)
			}

			hash, err := services.HashAPIKey(key)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().IntVar(&generate, "generate", 0, "Generate a random key of this length instead of reading stdin")

	return cmd
}
