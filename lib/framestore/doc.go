// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package framestore stores rendered frames in SQLite with content
// addressing, per-instance latest-frame pointers, transparent at-rest
// compression, and optional authenticated encryption.
//
// # Content addressing
//
// Every frame is identified by the BLAKE3 content hash of its raw
// framebuffer (computed before any storage encoding, so identity
// survives compression and encryption changes). [Store.Put] compares
// the incoming hash against the instance's current latest frame and
// returns the existing row unchanged on a match: a backend that
// re-renders an identical screen, or retries a submission it believes
// failed, costs one hash computation and nothing else.
//
// # Latest pointer
//
// The instance_latest table maps instance → latest frame ID, giving
// [Store.Latest] a single indexed lookup. Put flips the pointer in the
// same transaction as the frame insert, so a poll racing a submission
// sees either the old frame or the new one, never a torn state.
//
// # Storage encoding
//
// Payloads are compressed by probe (zstd when it clearly wins, LZ4
// when it merely helps, raw otherwise) and, when the store is opened
// with an encryption key, sealed with XChaCha20-Poly1305 under a
// per-frame HKDF key bound to the content hash. [Store.Data] reverses
// the encoding and verifies the content hash before returning bytes.
package framestore
