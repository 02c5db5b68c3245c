// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package devicetoken implements Ed25519-signed bearer tokens for
// authenticating display devices to the broker over HTTP.
//
// Devices are battery-powered polling clients behind NAT: they cannot
// hold long-lived connections and they present on every request. Tokens
// let the broker authenticate each poll cryptographically — no session
// table lookup on the hot path.
//
// # Wire format
//
// A token is CBOR-encoded payload bytes followed by a 64-byte Ed25519
// signature over the payload, the whole thing base64url-encoded (raw,
// unpadded) for transport in an Authorization header:
//
//	base64url( [CBOR payload bytes] [64-byte Ed25519 signature] )
//
// The split point is always len(raw) - 64. No header, no length prefix
// — the algorithm is fixed and the signature size is constant.
//
// # Token kinds
//
// Access tokens are short-lived (default 24 hours) and fully stateless:
// verification is signature + expiry, nothing else. They authenticate
// the poll/fetch/input hot path.
//
// Refresh tokens are long-lived (default 30 days) and carry a session
// ID minted fresh on every issue. The broker stores exactly one session
// ID per device; presenting a refresh token whose session ID does not
// match the stored one fails with [ErrSessionRevoked]. Issuing a new
// refresh token overwrites the stored session ID, so there is exactly
// one live refresh session per device and the overwrite IS the
// revocation mechanism — no blocklist, no cleanup job.
//
// Revoking a device clears its stored session ID. Outstanding access
// tokens remain valid until their natural expiry (hours, not days);
// state-changing admin surfaces re-check device status from storage.
package devicetoken
