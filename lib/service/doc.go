// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides shared HTTP infrastructure for Slate
// binaries.
//
// The broker and the mock HLSS backend are standalone Go binaries that
// expose one HTTP surface each. This package extracts the scaffolding
// they share:
//
//   - HTTPServer: TCP listener lifecycle with readiness signaling and
//     graceful shutdown on context cancellation. Tests bind port 0 and
//     read the resolved address from Addr.
//   - Bearer token handling: header extraction and constant-time
//     comparison, used by the admin API (static token) and the
//     backend-facing API (per-instance access tokens).
//
// Binaries compose these utilities in their own main() function rather
// than subclassing a framework. The package provides building blocks,
// not a runtime.
package service
