package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// EnginePulumi drives the Pulumi Automation API.
	EnginePulumi = "pulumi"
	// EngineFake uses the in-memory engine, for UI work without cloud credentials.
	EngineFake = "fake"
)

// Config holds the process-wide settings. See .env.example.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Version  string `env:"VERSION" envDefault:"dev"`

	// Deployment
	DefaultProject   string        `env:"GCP_PROJECT_ID"`
	ProjectName      string        `env:"PULUMI_PROJECT_NAME" envDefault:"nextjs-gcp-compute"`
	StackName        string        `env:"PULUMI_STACK_NAME" envDefault:"dev"`
	GCPPluginVersion string        `env:"PULUMI_GCP_PLUGIN_VERSION"`
	Engine           string        `env:"ENGINE" envDefault:"pulumi"`
	DeployTimeout    time.Duration `env:"DEPLOY_TIMEOUT" envDefault:"0s"`

	// History is disabled when empty
	DatabaseURL string `env:"DATABASE_URL"`

	// Auth is disabled when both are empty
	APIKeyHash string `env:"API_KEY_HASH"`
	JWTSecret  string `env:"JWT_SECRET"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadEnv loads environment variables from a .env file when one exists.
func LoadEnv(logger *slog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Debug(".env file not found, using system environment variables")
	}
}

// Load reads the .env file and parses the environment into a Config.
func Load(logger *slog.Logger) (*Config, error) {
	LoadEnv(logger)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the env parser cannot.
func (c *Config) Validate() error {
	switch c.Engine {
	case EnginePulumi, EngineFake:
	default:
		return fmt.Errorf("invalid ENGINE %q: must be %q or %q", c.Engine, EnginePulumi, EngineFake)
	}
	if c.ProjectName == "" || c.StackName == "" {
		return errors.New("PULUMI_PROJECT_NAME and PULUMI_STACK_NAME must not be empty")
	}
	if c.DeployTimeout < 0 {
		return errors.New("DEPLOY_TIMEOUT must not be negative")
	}
	return nil
}

// HistoryEnabled reports whether deployment runs are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

// AuthEnabled reports whether the API requires credentials.
func (c *Config) AuthEnabled() bool {
	return c.APIKeyHash != "" || c.JWTSecret != ""
}
