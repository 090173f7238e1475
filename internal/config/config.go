package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.schemamend/schemamend.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
}

// DatabaseConfig defines the PostgreSQL connection.
type DatabaseConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	Database                string `yaml:"database"`
	Schema                  string `yaml:"schema,omitempty"` // default public
	Username                string `yaml:"username"`
	Password                string `yaml:"password"`
	SSL                     bool   `yaml:"ssl,omitempty"`
	MaxConnections          int    `yaml:"max_connections,omitempty"`           // default 10, max 50
	StatementTimeoutSeconds int    `yaml:"statement_timeout_seconds,omitempty"` // default 300
}

// RegistryConfig points at an optional expected-schema overlay file.
type RegistryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level         string `yaml:"level,omitempty"`          // debug, info, warn, error
	Directory     string `yaml:"directory,omitempty"`      // default ~/.schemamend/logs/
	RetentionDays int    `yaml:"retention_days,omitempty"` // default 30
}

// Load reads and parses the config file from the given path.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Schema == "" {
		c.Database.Schema = "public"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.MaxConnections > 50 {
		c.Database.MaxConnections = 50
	}
	if c.Database.StatementTimeoutSeconds == 0 {
		c.Database.StatementTimeoutSeconds = 300
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.schemamend/logs/")
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 30
	}
	if c.Registry.Path != "" {
		c.Registry.Path = ExpandHome(c.Registry.Path)
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets(ctx context.Context) error {
	var err error
	c.Database.Password, err = ResolveValue(ctx, c.Database.Password)
	if err != nil {
		return fmt.Errorf("database password: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value.
func ResolveValue(ctx context.Context, val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}

	provider := matches[1]
	ref := matches[2]

	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ctx, ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ctx, ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
