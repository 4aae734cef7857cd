package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendeploy/compute-deployer/dto"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(slog.New(slog.DiscardHandler))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeployCommandWithFakeEngine(t *testing.T) {
	t.Setenv("ENGINE", "fake")
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("DATABASE_URL", "")

	out, err := run(t, "", "deploy", "--instance-name", "web-1", "--zone", "europe-west1-b")
	require.NoError(t, err)

	var resp dto.DeployResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, dto.DeploySuccessMessage, resp.Message)
	assert.Equal(t, "web-1", resp.Outputs[models.OutputInstanceName].Value)
}

func TestDeployCommandValidation(t *testing.T) {
	t.Setenv("ENGINE", "fake")
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("DATABASE_URL", "")

	_, err := run(t, "", "deploy")
	assert.ErrorIs(t, err, models.ErrInstanceNameRequired)
}

func TestDeployCommandInvalidConfig(t *testing.T) {
	t.Setenv("ENGINE", "terraform")

	_, err := run(t, "", "deploy", "--instance-name", "web-1")
	assert.ErrorContains(t, err, "invalid ENGINE")
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Setenv("ENGINE", "fake")
	t.Setenv("DATABASE_URL", "")

	_, err := run(t, "", "migrate")
	assert.EqualError(t, err, "DATABASE_URL is not set")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	out, err := run(t, "", "token", "--subject", "ci", "--role", "viewer")
	require.NoError(t, err)

	claims, err := services.ValidateToken("secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.Equal(t, "viewer", claims.Role)
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "", "token", "--subject", "ci")
	assert.Error(t, err)
}

func TestHashKeyCommand(t *testing.T) {
	out, err := run(t, "0123456789abcdef\n", "hash-key")
	require.NoError(t, err)
	assert.True(t, services.CheckAPIKey(strings.TrimSpace(out), "0123456789abcdef"))

	_, err = run(t, "", "hash-key")
	assert.Error(t, err)
}

func TestHashKeyCommandGenerate(t *testing.T) {
	out, err := run(t, "", "hash-key", "--generate", "24")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 24)
	assert.True(t, services.CheckAPIKey(lines[1], lines[0]))
}
