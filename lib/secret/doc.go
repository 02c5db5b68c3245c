// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data such
// as encryption keys and bearer tokens.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, guaranteeing secret material does not persist after release.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [ReadFromPath] -- reads a key or token file (or stdin with "-")
//
// Access via [Buffer.Bytes] (slice into mmap region) or
// [Buffer.String] (heap copy for API boundaries). [Buffer.Equal] uses
// constant-time comparison, suitable for bearer-credential checks.
// After Close, any access panics. Close is idempotent.
//
// The broker holds its frame-encryption master key in a Buffer for the
// life of the process; per-frame keys derived from it are short-lived
// Buffers closed after each encrypt or decrypt.
//
// Depends on golang.org/x/sys/unix. No Slate-internal dependencies.
package secret
