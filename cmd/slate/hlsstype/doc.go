// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package hlsstype implements the "slate hlss-type" subcommands for
// managing the HLSS backend service types a broker knows about.
//
// A type is the broker's record of one backend service: its base URL,
// the bearer token the broker presents to it, and the default display
// geometry for its instances. Types are referenced by instances; a type
// with instances cannot be deleted.
//
// Subcommands:
//
//   - list: every registered type with its base URL and active flag.
//   - create: register a backend. The auth token can come from
//     --auth-token or --auth-token-file; omit both for backends that
//     don't authenticate the broker.
//   - show: one type in detail. The auth token is never shown.
//   - update: patch any field, including rotating the auth token and
//     toggling --active.
//   - delete: remove a type that no longer has instances.
package hlsstype
