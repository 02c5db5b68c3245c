// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package instance implements the "slate instance" subcommands for
// managing HLSS instances on a broker.
//
// An instance is one logical screen served by an HLSS backend: the
// broker initializes it with the backend, tracks its lifecycle, and
// relays its frames to whichever devices have it assigned.
//
// Subcommands:
//
//   - list: every instance with its type, lifecycle, and active screen.
//     --type narrows to one HLSS type.
//   - create: register an instance of a type. Prints the instance's
//     callback access token — the only time the broker reveals it.
//     --init runs the backend init handshake immediately.
//   - show: full detail for one instance.
//   - update: rename an instance or change its display geometry.
//   - delete: remove an instance, its frames, and its assignments, and
//     tell the backend to tear down its state.
//   - init: run (or re-run) the backend init handshake for an instance
//     created without --init or stuck in the pending state.
//   - refresh: re-fetch the instance's status from its backend.
//   - frame-status: compare the broker's stored frame against the
//     backend's current frame. --check exits 1 when out of sync, for
//     use in monitoring scripts.
//   - sync-frame: force-pull the backend's current frame into the
//     broker's store.
package instance
