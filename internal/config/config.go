// Package config loads service configuration from environment variables
// (prefix PML) with an optional YAML file overlay. The license core does
// not own configuration; everything it needs (trial length, verification
// key, clock-skew tolerance) is supplied from here.
package config

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces all environment variables, e.g. PML_SERVER_PORT.
const envPrefix = "PML"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Store   StoreConfig   `yaml:"store" envconfig:"STORE"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LicenseConfig contains everything the license core is configured with.
type LicenseConfig struct {
	// TrialLength is the entitlement window granted at first boot.
	TrialLength time.Duration `yaml:"trial_length" envconfig:"TRIAL_LENGTH" default:"720h"`

	// VerificationKey is the base64-encoded Ed25519 public key embedded
	// in the deployment. The matching signing key never leaves the
	// billing side.
	VerificationKey string `yaml:"verification_key" envconfig:"VERIFICATION_KEY"`

	// ClockSkew is the tolerance for tokens whose issuance timestamp sits
	// slightly in the future.
	ClockSkew time.Duration `yaml:"clock_skew" envconfig:"CLOCK_SKEW" default:"5m"`

	// RevokeSecret guards the administrative revocation endpoint used by
	// the billing collaborator.
	RevokeSecret string `yaml:"revoke_secret" envconfig:"REVOKE_SECRET"`

	// ActivateRPS and ActivateBurst throttle activation attempts.
	ActivateRPS   float64 `yaml:"activate_rps" envconfig:"ACTIVATE_RPS" default:"1"`
	ActivateBurst int     `yaml:"activate_burst" envconfig:"ACTIVATE_BURST" default:"5"`
}

// StoreConfig selects and configures the license record store.
type StoreConfig struct {
	// Backend is one of file, postgres, memory.
	Backend string `yaml:"backend" envconfig:"BACKEND" default:"file"`

	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH" default:"license.dat"`
	FileSecret string `yaml:"file_secret" envconfig:"FILE_SECRET" default:"pml-license-state-integrity"`

	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	PostgresTable string `yaml:"postgres_table" envconfig:"POSTGRES_TABLE" default:"deployment_license"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// Load reads configuration from the environment and, when PML_CONFIG_FILE
// points at a YAML file, overlays environment values on top of the file.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.License.TrialLength <= 0 {
		return fmt.Errorf("trial length must be positive")
	}
	if c.License.ClockSkew < 0 {
		return fmt.Errorf("clock skew must not be negative")
	}
	if c.License.VerificationKey == "" {
		return fmt.Errorf("license verification key is required")
	}
	if _, err := c.License.PublicKey(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "file":
		if c.Store.FilePath == "" {
			return fmt.Errorf("file store requires a path")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("postgres store requires a DSN")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// PublicKey decodes the configured Ed25519 verification key.
func (lc LicenseConfig) PublicKey() (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(lc.VerificationKey)
	if err != nil {
		return nil, fmt.Errorf("decode verification key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("verification key length %d, expected %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
