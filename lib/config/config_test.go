// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slate.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %s", cfg.Server.ListenAddr)
	}
	if cfg.Storage.DatabasePath != "slate.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Storage.MaxFrameBytes != 8<<20 {
		t.Errorf("max_frame_bytes = %d", cfg.Storage.MaxFrameBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadRequiresSlateConfig(t *testing.T) {
	origConfig := os.Getenv("SLATE_CONFIG")
	defer os.Setenv("SLATE_CONFIG", origConfig)
	os.Unsetenv("SLATE_CONFIG")

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without SLATE_CONFIG set")
	}
}

func TestLoadFromEnvironmentVariable(t *testing.T) {
	path := writeConfigFile(t, "log_level: debug\n")

	origConfig := os.Getenv("SLATE_CONFIG")
	defer os.Setenv("SLATE_CONFIG", origConfig)
	os.Setenv("SLATE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %s, want debug", cfg.LogLevel)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
environment: staging
server:
  listen_addr: ":9090"
storage:
  database_path: /var/lib/slate/slate.db
auth:
  access_token_ttl: 12h
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("environment = %s", cfg.Environment)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %s", cfg.Server.ListenAddr)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("base_url lost its default: %s", cfg.Server.BaseURL)
	}
	if cfg.AccessTokenTTL() != 12*time.Hour {
		t.Errorf("access token ttl = %s", cfg.AccessTokenTTL())
	}
	if cfg.RefreshTokenTTL() != 720*time.Hour {
		t.Errorf("refresh token ttl lost its default: %s", cfg.RefreshTokenTTL())
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadFile succeeded on a missing file")
	}
}

func TestEnvironmentOverridesApply(t *testing.T) {
	path := writeConfigFile(t, `
environment: production
auth:
  admin_token: base-token
  signing_key_file: /etc/slate/signing.key
production:
  log_level: warn
  server:
    base_url: https://slate.example.com
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %s, want warn from production override", cfg.LogLevel)
	}
	if cfg.Server.BaseURL != "https://slate.example.com" {
		t.Errorf("base_url = %s", cfg.Server.BaseURL)
	}
	// Non-matching sections must not apply.
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %s", cfg.Server.ListenAddr)
	}
}

func TestEnvironmentOverridesIgnoredWhenNotMatching(t *testing.T) {
	path := writeConfigFile(t, `
environment: development
production:
  log_level: error
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %s, production override leaked into development", cfg.LogLevel)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/slate")
	path := writeConfigFile(t, `
storage:
  database_path: ${HOME}/data/slate.db
auth:
  signing_key_file: ${SLATE_KEY_DIR:-/etc/slate}/signing.key
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.DatabasePath != "/home/slate/data/slate.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Auth.SigningKeyFile != "/etc/slate/signing.key" {
		t.Errorf("signing_key_file = %s", cfg.Auth.SigningKeyFile)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	cfg.Server.ListenAddr = ""
	cfg.Auth.AccessTokenTTL = "one day"
	cfg.Delivery.PollIntervalMS = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted a broken config")
	}
	message := err.Error()
	for _, want := range []string{"log_level", "server.listen_addr", "auth.access_token_ttl", "delivery.poll_interval_ms"} {
		if !strings.Contains(message, want) {
			t.Errorf("validation error does not name %s: %v", want, err)
		}
	}
}

func TestValidateProductionRequirements(t *testing.T) {
	cfg := Default()
	cfg.Environment = Production

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted production without admin token or signing key")
	}
	if !strings.Contains(err.Error(), "auth.admin_token") {
		t.Errorf("validation error does not name auth.admin_token: %v", err)
	}
	if !strings.Contains(err.Error(), "auth.signing_key_file") {
		t.Errorf("validation error does not name auth.signing_key_file: %v", err)
	}

	cfg.Auth.AdminToken = "s3cret"
	cfg.Auth.SigningKeyFile = "/etc/slate/signing.key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected a complete production config: %v", err)
	}
}

func TestValidateRejectsNegativeDurations(t *testing.T) {
	cfg := Default()
	cfg.HLSS.Timeout = "-5s"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted a negative hlss.timeout")
	}
}

func TestDurationAccessorsFallBack(t *testing.T) {
	cfg := Default()
	cfg.HLSS.Timeout = "garbage"
	if cfg.HLSSTimeout() != 30*time.Second {
		t.Errorf("HLSSTimeout on garbage = %s, want 30s fallback", cfg.HLSSTimeout())
	}
	if cfg.RetentionInterval() != time.Hour {
		t.Errorf("RetentionInterval default = %s", cfg.RetentionInterval())
	}
	if cfg.FrameRetention() != 24*time.Hour {
		t.Errorf("FrameRetention default = %s", cfg.FrameRetention())
	}
}
