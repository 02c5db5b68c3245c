// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the Slate
// broker.
//
// Configuration is loaded from a single file specified by either the
// SLATE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production is stricter: the admin
// token becomes required, and an ephemeral signing key (acceptable
// for development) is rejected.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Duration fields are strings in Go duration syntax ("30s", "24h").
// [Config.Validate] checks that every duration parses; after a
// successful Validate the accessor methods ([Config.HLSSTimeout],
// [Config.AccessTokenTTL], ...) never fail.
package config
