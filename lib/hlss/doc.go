// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package hlss is the broker's typed HTTP client for HLSS backends —
// the services that render content for display instances (a chess
// server, a home dashboard, a calendar).
//
// One Client talks to one backend base URL, authenticated with the
// HLSS type's bearer token. Every call is bounded by the configured
// timeout; the broker never blocks indefinitely on a backend. Errors
// distinguish transport failures (connection refused, timeout) from
// rejected requests (*BackendError with the HTTP status), but callers
// generally treat any failure as "backend unavailable" — broker state
// never depends on a backend call succeeding.
//
// The backend contract is small: an init handshake that delivers
// callback URLs and the display geometry, a status read, frame
// metadata and frame-send requests, input forwarding, a render
// trigger, and delete. See the method docs for the exact semantics.
package hlss
