// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package framediff computes and applies partial-refresh deltas between
// packed framebuffers. Everything here is a pure function of its
// inputs — no storage, no clock, no I/O — so the broker can diff under
// a lock without blocking on anything.
//
// # Delta model
//
// A [Delta] replaces a device's previous framebuffer with the next one.
// Partial deltas carry only the changed row regions; full deltas carry
// the entire buffer. [Compute] scans the two buffers in bands of
// [BandRows] rows and coalesces adjacent changed bands into regions.
// Whole rows are the unit of change because e-paper controllers refresh
// row-aligned windows; sub-row diffing would save wire bytes the panel
// cannot exploit.
//
// Compute falls back to a full delta whenever a partial one is not
// meaningful: the device lacks partial refresh, there is no previous
// buffer, a buffer does not match the declared geometry, or the changed
// regions would not be smaller than the full frame.
//
// # Integrity
//
// The envelope binds three digests: the base hash (content hash of the
// buffer the delta applies on top of; partial deltas only), the target
// hash (content hash of the reconstruction), and a region hash covering
// every region's position and payload. [Apply] verifies all three and
// returns a typed error naming what went wrong — a device that applies
// a delta to the wrong base learns so before flashing the panel.
//
// # Wire format
//
// Deltas serialize as deterministic CBOR with integer keys ([Encode] /
// [Decode]). Devices receive this envelope when fetching with a usable
// base frame; full frames are served as raw framebuffer bytes instead,
// so [KindFull] envelopes normally stay inside the broker.
package framediff
