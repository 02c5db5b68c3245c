// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Slate is the admin CLI for a slate-broker deployment. It provides
// subcommands for device authorization and assignment (device), HLSS
// instance lifecycle and frame reconciliation (instance), backend type
// registration (hlss-type), and broker inspection (status).
package main
