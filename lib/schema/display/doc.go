// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package display defines the wire vocabulary shared between display
// devices, the broker, and HLSS backends: button identifiers, input
// event types, poll actions, device authorization states, instance
// lifecycle states, and display capability descriptors.
//
// All enumerations are self-describing strings that serialize directly
// to JSON. The broker persists them verbatim in SQLite and echoes them
// on the HTTP surface, so the constants here ARE the protocol — device
// firmware and backend implementations match against these exact
// strings.
package display
