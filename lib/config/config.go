// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the Slate broker.
type Config struct {
	// Environment identifies the deployment type (development, staging,
	// production).
	Environment Environment `yaml:"environment"`

	// LogLevel sets the minimum slog level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Storage configures the SQLite databases and frame limits.
	Storage StorageConfig `yaml:"storage"`

	// Auth configures device token signing and the admin API.
	Auth AuthConfig `yaml:"auth"`

	// HLSS configures broker→backend calls.
	HLSS HLSSConfig `yaml:"hlss"`

	// Delivery configures the poll hints handed to devices.
	Delivery DeliveryConfig `yaml:"delivery"`

	// Retention configures background cleanup of old data.
	Retention RetentionConfig `yaml:"retention"`

	// SeedFile is an optional JSONC document of HLSS types and
	// instances loaded idempotently at startup. Empty disables seeding.
	SeedFile string `yaml:"seed_file"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	DevelopmentOverrides *ConfigOverrides `yaml:"development,omitempty"`
	StagingOverrides     *ConfigOverrides `yaml:"staging,omitempty"`
	ProductionOverrides  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	LogLevel  string           `yaml:"log_level,omitempty"`
	Server    *ServerConfig    `yaml:"server,omitempty"`
	Storage   *StorageConfig   `yaml:"storage,omitempty"`
	Auth      *AuthConfig      `yaml:"auth,omitempty"`
	HLSS      *HLSSConfig      `yaml:"hlss,omitempty"`
	Delivery  *DeliveryConfig  `yaml:"delivery,omitempty"`
	Retention *RetentionConfig `yaml:"retention,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the address the broker binds. Default ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// BaseURL is the externally reachable root of this broker, used to
	// build the callback URLs handed to HLSS backends during instance
	// initialization. Default "http://localhost:8080".
	BaseURL string `yaml:"base_url"`
}

// StorageConfig configures the SQLite databases and frame limits.
type StorageConfig struct {
	// DatabasePath is the registry database: devices, HLSS types,
	// instances, assignments, input events. Default "slate.db".
	DatabasePath string `yaml:"database_path"`

	// FrameDatabasePath is the frame store database. Kept separate
	// from the registry so bulk frame writes never contend with
	// registry transactions. Default "slate-frames.db".
	FrameDatabasePath string `yaml:"frame_database_path"`

	// FrameEncryptionKeyFile is the path to a 32-byte key for at-rest
	// frame encryption. Empty disables encryption.
	FrameEncryptionKeyFile string `yaml:"frame_encryption_key_file"`

	// MaxFrameBytes rejects frame submissions above this size.
	// Default 8 MiB — generous for 800x480 panels at any bit depth.
	MaxFrameBytes int64 `yaml:"max_frame_bytes"`
}

// AuthConfig configures device token signing and the admin API.
type AuthConfig struct {
	// SigningKeyFile is the path to the Ed25519 seed used to sign
	// device tokens. Empty generates an ephemeral key at startup (all
	// outstanding tokens die with the process) and logs a warning.
	SigningKeyFile string `yaml:"signing_key_file"`

	// AdminToken is the static bearer for the admin API. Empty
	// disables the admin surface; required in production.
	AdminToken string `yaml:"admin_token"`

	// AccessTokenTTL is the lifetime of device access tokens.
	// Default "24h".
	AccessTokenTTL string `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the lifetime of device refresh tokens.
	// Default "720h" (30 days).
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

// HLSSConfig configures broker→backend calls.
type HLSSConfig struct {
	// Timeout bounds every call to an HLSS backend. Default "30s".
	Timeout string `yaml:"timeout"`
}

// DeliveryConfig configures the poll hints handed to devices.
type DeliveryConfig struct {
	// PollIntervalMS is the poll-again hint for devices with an active
	// instance, in milliseconds. Default 5000.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// SleepIntervalMS is the poll-again hint for devices with nothing
	// assigned, in milliseconds. Longer to conserve battery.
	// Default 60000.
	SleepIntervalMS int `yaml:"sleep_interval_ms"`
}

// RetentionConfig configures background cleanup of old data.
type RetentionConfig struct {
	// InputEventRetention is how long input events stay in the log.
	// Default "720h" (30 days).
	InputEventRetention string `yaml:"input_event_retention"`

	// FrameRetention is how long superseded frames stay in the frame
	// store. Latest frames and frames a device still points at are
	// never swept regardless of age. Default "24h".
	FrameRetention string `yaml:"frame_retention"`

	// Interval is how often the retention sweeper runs. Default "1h".
	Interval string `yaml:"interval"`
}

// Default returns the default configuration: a development broker on
// :8080 with databases in the working directory.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Server: ServerConfig{
			ListenAddr: ":8080",
			BaseURL:    "http://localhost:8080",
		},
		Storage: StorageConfig{
			DatabasePath:      "slate.db",
			FrameDatabasePath: "slate-frames.db",
			MaxFrameBytes:     8 << 20,
		},
		Auth: AuthConfig{
			AccessTokenTTL:  "24h",
			RefreshTokenTTL: "720h",
		},
		HLSS: HLSSConfig{
			Timeout: "30s",
		},
		Delivery: DeliveryConfig{
			PollIntervalMS:  5000,
			SleepIntervalMS: 60000,
		},
		Retention: RetentionConfig{
			InputEventRetention: "720h",
			FrameRetention:      "24h",
			Interval:            "1h",
		},
	}
}

// Load loads configuration from the SLATE_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults — if SLATE_CONFIG is not set, this
// fails. This ensures deterministic, auditable configuration with no
// hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("SLATE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("SLATE_CONFIG environment variable not set; " +
			"set it to the path of your slate.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.DevelopmentOverrides
	case Staging:
		overrides = c.StagingOverrides
	case Production:
		overrides = c.ProductionOverrides
	}
	if overrides == nil {
		return
	}

	if overrides.LogLevel != "" {
		c.LogLevel = overrides.LogLevel
	}

	if overrides.Server != nil {
		if overrides.Server.ListenAddr != "" {
			c.Server.ListenAddr = overrides.Server.ListenAddr
		}
		if overrides.Server.BaseURL != "" {
			c.Server.BaseURL = overrides.Server.BaseURL
		}
	}

	if overrides.Storage != nil {
		if overrides.Storage.DatabasePath != "" {
			c.Storage.DatabasePath = overrides.Storage.DatabasePath
		}
		if overrides.Storage.FrameDatabasePath != "" {
			c.Storage.FrameDatabasePath = overrides.Storage.FrameDatabasePath
		}
		if overrides.Storage.FrameEncryptionKeyFile != "" {
			c.Storage.FrameEncryptionKeyFile = overrides.Storage.FrameEncryptionKeyFile
		}
		if overrides.Storage.MaxFrameBytes != 0 {
			c.Storage.MaxFrameBytes = overrides.Storage.MaxFrameBytes
		}
	}

	if overrides.Auth != nil {
		if overrides.Auth.SigningKeyFile != "" {
			c.Auth.SigningKeyFile = overrides.Auth.SigningKeyFile
		}
		if overrides.Auth.AdminToken != "" {
			c.Auth.AdminToken = overrides.Auth.AdminToken
		}
		if overrides.Auth.AccessTokenTTL != "" {
			c.Auth.AccessTokenTTL = overrides.Auth.AccessTokenTTL
		}
		if overrides.Auth.RefreshTokenTTL != "" {
			c.Auth.RefreshTokenTTL = overrides.Auth.RefreshTokenTTL
		}
	}

	if overrides.HLSS != nil {
		if overrides.HLSS.Timeout != "" {
			c.HLSS.Timeout = overrides.HLSS.Timeout
		}
	}

	if overrides.Delivery != nil {
		if overrides.Delivery.PollIntervalMS != 0 {
			c.Delivery.PollIntervalMS = overrides.Delivery.PollIntervalMS
		}
		if overrides.Delivery.SleepIntervalMS != 0 {
			c.Delivery.SleepIntervalMS = overrides.Delivery.SleepIntervalMS
		}
	}

	if overrides.Retention != nil {
		if overrides.Retention.InputEventRetention != "" {
			c.Retention.InputEventRetention = overrides.Retention.InputEventRetention
		}
		if overrides.Retention.FrameRetention != "" {
			c.Retention.FrameRetention = overrides.Retention.FrameRetention
		}
		if overrides.Retention.Interval != "" {
			c.Retention.Interval = overrides.Retention.Interval
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Storage.DatabasePath = expandVars(c.Storage.DatabasePath, vars)
	c.Storage.FrameDatabasePath = expandVars(c.Storage.FrameDatabasePath, vars)
	c.Storage.FrameEncryptionKeyFile = expandVars(c.Storage.FrameEncryptionKeyFile, vars)
	c.Auth.SigningKeyFile = expandVars(c.Auth.SigningKeyFile, vars)
	c.SeedFile = expandVars(c.SeedFile, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel))
	}

	if c.Server.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("server.listen_addr is required"))
	}
	if c.Server.BaseURL == "" {
		errs = append(errs, fmt.Errorf("server.base_url is required"))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, fmt.Errorf("storage.database_path is required"))
	}
	if c.Storage.FrameDatabasePath == "" {
		errs = append(errs, fmt.Errorf("storage.frame_database_path is required"))
	}
	if c.Storage.MaxFrameBytes <= 0 {
		errs = append(errs, fmt.Errorf("storage.max_frame_bytes must be positive"))
	}

	if c.Environment == Production && c.Auth.AdminToken == "" {
		errs = append(errs, fmt.Errorf("auth.admin_token is required in production"))
	}
	if c.Environment == Production && c.Auth.SigningKeyFile == "" {
		errs = append(errs, fmt.Errorf("auth.signing_key_file is required in production (ephemeral keys invalidate all device tokens on restart)"))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"auth.access_token_ttl", c.Auth.AccessTokenTTL},
		{"auth.refresh_token_ttl", c.Auth.RefreshTokenTTL},
		{"hlss.timeout", c.HLSS.Timeout},
		{"retention.input_event_retention", c.Retention.InputEventRetention},
		{"retention.frame_retention", c.Retention.FrameRetention},
		{"retention.interval", c.Retention.Interval},
	} {
		duration, err := time.ParseDuration(field.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
			continue
		}
		if duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %s)", field.name, field.value))
		}
	}

	if c.Delivery.PollIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("delivery.poll_interval_ms must be positive"))
	}
	if c.Delivery.SleepIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("delivery.sleep_interval_ms must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AccessTokenTTL returns the parsed access token lifetime. Call
// Validate first; on an unparseable value this falls back to the
// default.
func (c *Config) AccessTokenTTL() time.Duration {
	return parseDurationOr(c.Auth.AccessTokenTTL, 24*time.Hour)
}

// RefreshTokenTTL returns the parsed refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return parseDurationOr(c.Auth.RefreshTokenTTL, 720*time.Hour)
}

// HLSSTimeout returns the parsed backend call timeout.
func (c *Config) HLSSTimeout() time.Duration {
	return parseDurationOr(c.HLSS.Timeout, 30*time.Second)
}

// InputEventRetention returns the parsed input event retention window.
func (c *Config) InputEventRetention() time.Duration {
	return parseDurationOr(c.Retention.InputEventRetention, 720*time.Hour)
}

// FrameRetention returns the parsed superseded-frame retention window.
func (c *Config) FrameRetention() time.Duration {
	return parseDurationOr(c.Retention.FrameRetention, 24*time.Hour)
}

// RetentionInterval returns the parsed retention sweep interval.
func (c *Config) RetentionInterval() time.Duration {
	return parseDurationOr(c.Retention.Interval, time.Hour)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}
