// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame provides the primitives shared by the frame store and
// the diff engine: content-addressed hashing, entity identifiers, and
// packed-framebuffer geometry.
//
// Frames are content-addressed by a BLAKE3 keyed hash over the raw
// framebuffer bytes. Keyed hashing gives domain separation: the same
// bytes hashed as frame content and as delta regions produce unrelated
// digests, so a value can never be confused across contexts.
package frame
