// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package device implements the "slate device" subcommands for managing
// display devices registered with a broker.
//
// All subcommands route to the broker's admin API using credentials
// from --admin-token or --admin-token-file (via [cli.BrokerConfig]).
//
// Subcommands:
//
//   - list: shows every registered device with its auth status, panel
//     geometry, active instance, and last poll time. --status narrows
//     to one auth status.
//   - pending: shortcut for the devices awaiting authorization, in the
//     order they first registered.
//   - show: full detail for one device, including its assignment
//     rotation.
//   - authorize/reject/revoke/reauthorize: move a device through the
//     authorization lifecycle. Revoking invalidates the device's
//     tokens at its next poll; reauthorize restores a revoked or
//     rejected device without re-registration.
//   - assign/unassign/activate: manage which HLSS instances a device
//     rotates through and which one is currently shown.
//   - cycle: advance the device's active instance through its rotation,
//     the same operation its highlight buttons trigger.
package device
