package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "nextjs-gcp-compute", cfg.ProjectName)
	assert.Equal(t, "dev", cfg.StackName)
	assert.Equal(t, EnginePulumi, cfg.Engine)
	assert.Equal(t, time.Duration(0), cfg.DeployTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.HistoryEnabled())
	assert.False(t, cfg.AuthEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("ENGINE", "fake")
	t.Setenv("DEPLOY_TIMEOUT", "15m")
	t.Setenv("DATABASE_URL", "postgres://localhost/deployer")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://deploy.example.com")

	cfg, err := Load(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, "my-project", cfg.DefaultProject)
	assert.Equal(t, EngineFake, cfg.Engine)
	assert.Equal(t, 15*time.Minute, cfg.DeployTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://deploy.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.HistoryEnabled())
	assert.True(t, cfg.AuthEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "valid", cfg: Config{Engine: EnginePulumi, ProjectName: "p", StackName: "s"}},
		{name: "unknown engine", cfg: Config{Engine: "terraform", ProjectName: "p", StackName: "s"}, wantErr: true},
		{name: "empty stack", cfg: Config{Engine: EngineFake, ProjectName: "p"}, wantErr: true},
		{name: "negative timeout", cfg: Config{Engine: EngineFake, ProjectName: "p", StackName: "s", DeployTimeout: -time.Second}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
