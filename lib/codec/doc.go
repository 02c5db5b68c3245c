// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Slate's standard CBOR encoding configuration.
//
// Slate uses two serialization formats with a clear boundary:
//
//   - JSON for external HTTP interfaces: the device, backend, and
//     admin APIs, and CLI output.
//   - CBOR for binary payloads that must be compact and byte-stable:
//     device token payloads (signed, so bytes must be deterministic)
//     and the partial-refresh delta envelope delivered to devices.
//
// This package provides the shared encoding and decoding modes so that
// every Slate package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever CBOR (token payloads, delta envelopes) use
// `cbor` struct tags — keyasint where the wire budget matters. Types
// that cross the HTTP boundary use `json` tags only.
package codec
