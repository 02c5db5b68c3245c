// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/slateworks/slate/lib/brokerclient"
)

// Environment variable fallbacks for the broker connection flags, so a
// shell session can be configured once instead of repeating --broker-url
// and --admin-token on every invocation.
const (
	envBrokerURL      = "SLATE_BROKER_URL"
	envAdminToken     = "SLATE_ADMIN_TOKEN"
	envAdminTokenFile = "SLATE_ADMIN_TOKEN_FILE"
)

// defaultBrokerURL matches the broker's default listen address.
const defaultBrokerURL = "http://localhost:8080"

// BrokerConfig holds the shared flags for connecting to a slate-broker
// admin API. Every command that talks to the broker embeds it in its
// params struct; [BindFlags] recognizes the [FlagBinder] implementation
// and registers the flags.
//
// Resolution order for each value: explicit flag, then environment
// variable, then default. The admin token has no default — the CLI is
// useless against a broker whose admin surface is disabled.
type BrokerConfig struct {
	BrokerURL      string
	AdminToken     string
	AdminTokenFile string
	Timeout        time.Duration
}

// AddFlags registers --broker-url, --admin-token, --admin-token-file,
// and --timeout on the given flag set, satisfying [FlagBinder].
func (c *BrokerConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.BrokerURL, "broker-url", "", "broker API root (default "+defaultBrokerURL+", env "+envBrokerURL+")")
	flagSet.StringVar(&c.AdminToken, "admin-token", "", "admin bearer token (env "+envAdminToken+")")
	flagSet.StringVar(&c.AdminTokenFile, "admin-token-file", "", "file containing the admin bearer token (env "+envAdminTokenFile+")")
	flagSet.DurationVar(&c.Timeout, "timeout", 30*time.Second, "per-request timeout")
}

// Client resolves the configuration and creates a broker admin client.
func (c *BrokerConfig) Client() (*brokerclient.Client, error) {
	brokerURL := c.BrokerURL
	if brokerURL == "" {
		brokerURL = os.Getenv(envBrokerURL)
	}
	if brokerURL == "" {
		brokerURL = defaultBrokerURL
	}

	adminToken, err := c.resolveAdminToken()
	if err != nil {
		return nil, err
	}

	return brokerclient.New(brokerclient.Config{
		BaseURL:    brokerURL,
		AdminToken: adminToken,
		Timeout:    c.Timeout,
	})
}

// resolveAdminToken finds the admin token: the --admin-token flag, the
// --admin-token-file flag, then the corresponding environment
// variables. The token ends up in a heap string either way; in a
// short-lived CLI process that is acceptable.
func (c *BrokerConfig) resolveAdminToken() (string, error) {
	if c.AdminToken != "" {
		return c.AdminToken, nil
	}
	tokenFile := c.AdminTokenFile
	if tokenFile == "" {
		if token := os.Getenv(envAdminToken); token != "" {
			return token, nil
		}
		tokenFile = os.Getenv(envAdminTokenFile)
	}
	if tokenFile == "" {
		return "", fmt.Errorf("admin token required: set --admin-token, --admin-token-file, or %s", envAdminToken)
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return "", fmt.Errorf("reading admin token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("admin token file %s is empty", tokenFile)
	}
	return token, nil
}
