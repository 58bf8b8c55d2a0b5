// Package config provides configuration loading and management for the
// deploy annotator.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix for environment variables consumed by the server
	EnvPrefix = "DEPLOY_ANNOTATOR"

	// StorageTypeLocal selects the file-backed store which auto-provisions
	// its data directory (development and single-node use)
	StorageTypeLocal = "local"

	// StorageTypePostgres selects the database-backed store which targets a
	// pre-provisioned table
	StorageTypePostgres = "postgres"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Grafana configures the annotation API target
	Grafana GrafanaConfig `yaml:"grafana"`

	// Retry configures the backoff policy for annotation API calls
	Retry *RetryConfig `yaml:"retry,omitempty"`

	// Storage selects and configures the correlation record backend
	Storage StorageConfig `yaml:"storage"`

	// Metrics configures the Prometheus metrics endpoint
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// GrafanaConfig defines the annotation API connection settings
type GrafanaConfig struct {
	// URL is the Grafana base URL (without the /api/annotations path)
	URL string `yaml:"url"`

	// Token is the bearer token; prefer TokenFile or the
	// DEPLOY_ANNOTATOR_GRAFANA_TOKEN environment variable in production
	Token string `yaml:"token,omitempty"`

	// TokenFile is the path to a file containing the bearer token
	TokenFile string `yaml:"tokenFile,omitempty"`

	// DashboardID optionally scopes created annotations to a dashboard
	DashboardID *int64 `yaml:"dashboardId,omitempty"`

	// PanelID optionally scopes created annotations to a panel
	PanelID *int64 `yaml:"panelId,omitempty"`

	// Timeout is the per-request timeout (e.g. "10s")
	Timeout string `yaml:"timeout,omitempty"`
}

// GetToken returns the Grafana bearer token using the following priority:
// 1. Read from TokenFile if specified
// 2. Read from the DEPLOY_ANNOTATOR_GRAFANA_TOKEN environment variable
// 3. The inline Token field
//
// The token from file will have leading/trailing whitespace trimmed.
func (g *GrafanaConfig) GetToken() (string, error) {
	if g.TokenFile != "" {
		cleanPath := filepath.Clean(g.TokenFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read token from file %s: %w", g.TokenFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envToken := os.Getenv(EnvPrefix + "_GRAFANA_TOKEN"); envToken != "" {
		return envToken, nil
	}

	if g.Token != "" {
		return g.Token, nil
	}

	return "", fmt.Errorf(
		"no Grafana token configured: set tokenFile, %s_GRAFANA_TOKEN, or token", EnvPrefix)
}

// GetTimeout returns the parsed request timeout, or zero when unset.
func (g *GrafanaConfig) GetTimeout() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(g.Timeout)
}

// RetryConfig defines the annotation API retry policy
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, including the first attempt
	MaxAttempts uint `yaml:"maxAttempts,omitempty"`

	// InitialDelay is the base backoff delay (e.g. "500ms")
	InitialDelay string `yaml:"initialDelay,omitempty"`
}

// GetInitialDelay returns the parsed base delay, or zero when unset.
func (r *RetryConfig) GetInitialDelay() (time.Duration, error) {
	if r == nil || r.InitialDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(r.InitialDelay)
}

// GetMaxAttempts returns the configured attempt cap, or zero when unset.
func (r *RetryConfig) GetMaxAttempts() uint {
	if r == nil {
		return 0
	}
	return r.MaxAttempts
}

// StorageConfig selects the correlation record backend
type StorageConfig struct {
	// Type is either "local" or "postgres"; defaults to "local"
	Type string `yaml:"type,omitempty"`

	// Local configures the file-backed store
	Local *LocalStorageConfig `yaml:"local,omitempty"`

	// Database configures the postgres-backed store
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// LocalStorageConfig defines file-backed storage settings
type LocalStorageConfig struct {
	// Path is the data directory; created on first use
	Path string `yaml:"path"`
}

// GetType returns the storage type, defaulting to local
func (s *StorageConfig) GetType() string {
	if s.Type == "" {
		return StorageTypeLocal
	}
	return s.Type
}

// GetLocalPath returns the data directory for the local backend
func (s *StorageConfig) GetLocalPath() string {
	if s.Local == nil || s.Local.Path == "" {
		return "./data"
	}
	return s.Local.Path
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum size of the connection pool
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g. "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the DEPLOY_ANNOTATOR_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD", EnvPrefix)
}

// GetConnectionString builds a PostgreSQL connection string with proper
// password handling. The password is URL-escaped to handle special characters
// safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	escapedPassword := url.QueryEscape(password)

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		escapedPassword,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// MetricsConfig defines the Prometheus metrics endpoint settings
type MetricsConfig struct {
	// Enabled exposes GET /metrics when true
	Enabled bool `yaml:"enabled"`
}

// MetricsEnabled reports whether the metrics endpoint should be exposed
func (c *Config) MetricsEnabled() bool {
	return c.Metrics != nil && c.Metrics.Enabled
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Grafana.URL == "" {
		return fmt.Errorf("grafana.url is required")
	}
	parsed, err := url.Parse(c.Grafana.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("grafana.url must be an absolute URL, got %q", c.Grafana.URL)
	}
	if _, err := c.Grafana.GetTimeout(); err != nil {
		return fmt.Errorf("grafana.timeout must be a valid duration (e.g. '10s'): %w", err)
	}

	if _, err := c.Retry.GetInitialDelay(); err != nil {
		return fmt.Errorf("retry.initialDelay must be a valid duration (e.g. '500ms'): %w", err)
	}

	return c.validateStorage()
}

func (c *Config) validateStorage() error {
	switch c.Storage.GetType() {
	case StorageTypeLocal:
		return nil
	case StorageTypePostgres:
		db := c.Storage.Database
		if db == nil {
			return fmt.Errorf("storage.database is required when storage.type is postgres")
		}
		if db.Host == "" {
			return fmt.Errorf("storage.database.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("storage.database.port is required")
		}
		if db.User == "" {
			return fmt.Errorf("storage.database.user is required")
		}
		if db.Database == "" {
			return fmt.Errorf("storage.database.database is required")
		}
		if db.ConnMaxLifetime != "" {
			if _, err := time.ParseDuration(db.ConnMaxLifetime); err != nil {
				return fmt.Errorf("storage.database.connMaxLifetime must be a valid duration: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("storage.type must be %q or %q, got %q",
			StorageTypeLocal, StorageTypePostgres, c.Storage.Type)
	}
}
