// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/slateworks/slate/lib/codec"
)

// Hash is a 32-byte BLAKE3 digest. Frame content hashes and delta
// region hashes are this size.
//
// Encoding: JSON uses 64-character lowercase hex text (via
// encoding.TextMarshaler). CBOR uses a 32-byte binary string (via
// cbor.Marshaler), saving 33 bytes per hash compared to hex text —
// delta envelopes carry up to three of these.
type Hash [32]byte

// MarshalText implements encoding.TextMarshaler. Returns a
// 64-character lowercase hex string.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Parses a
// 64-character hex string into a Hash.
func (h *Hash) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*h = Hash{}
		return nil
	}
	parsed, err := ParseHash(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalCBOR implements cbor.Marshaler. Encodes as a CBOR byte string
// (major type 2) containing the raw 32 bytes.
func (h Hash) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(h[:])
}

// UnmarshalCBOR implements cbor.Unmarshaler. Decodes a CBOR byte
// string into the 32-byte array.
func (h *Hash) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := codec.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid frame hash CBOR: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid frame hash: expected 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return nil
}

// IsZero reports whether this is an uninitialized zero-value Hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// String returns the 64-character lowercase hex representation.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures that the same input bytes produce different
// hashes in different contexts, preventing cross-domain collisions.
type domainKey [32]byte

// Domain separation keys. These are fixed constants — changing them
// invalidates all existing hashes in that domain. The byte values
// are the ASCII encoding of the domain name, zero-padded to 32 bytes.
// Using readable ASCII makes the keys inspectable in hex dumps and
// debuggers without sacrificing any cryptographic property (BLAKE3
// keyed mode treats the key as an opaque 32-byte value).
var (
	contentDomainKey = domainKey{
		's', 'l', 'a', 't', 'e', '.', 'f', 'r', 'a', 'm', 'e', '.',
		'c', 'o', 'n', 't', 'e', 'n', 't', '.', 'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	regionDomainKey = domainKey{
		's', 'l', 'a', 't', 'e', '.', 'f', 'r', 'a', 'm', 'e', '.',
		'r', 'e', 'g', 'i', 'o', 'n', '.', 'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashContent computes the content-domain BLAKE3 keyed hash of a raw
// framebuffer. This is the hash stored with every frame and used for
// deduplication and delta target verification. Always computed on the
// uncompressed, unencrypted bytes so identity survives storage encoding
// changes.
func HashContent(data []byte) Hash {
	return keyedHash(contentDomainKey, data)
}

// RegionHasher accumulates delta regions into a region-domain integrity
// hash. Each region is bound by its row offset and row count as well as
// its payload, so regions cannot be reordered or relocated without
// changing the digest. The zero value is not usable; call
// NewRegionHasher.
type RegionHasher struct {
	inner *blake3.Hasher
}

// NewRegionHasher creates a hasher for delta region integrity.
func NewRegionHasher() *RegionHasher {
	// NewKeyed requires exactly 32 bytes, which domainKey guarantees.
	// The error is only returned for wrong key length, so this cannot
	// fail with our fixed-size type.
	hasher, err := blake3.NewKeyed(regionDomainKey[:])
	if err != nil {
		panic("frame: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &RegionHasher{inner: hasher}
}

// WriteRegion adds one region to the digest: 4-byte big-endian row
// offset, 4-byte big-endian row count, then the payload bytes.
func (h *RegionHasher) WriteRegion(y, rows int, payload []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(y))
	binary.BigEndian.PutUint32(header[4:], uint32(rows))
	h.inner.Write(header[:])
	h.inner.Write(payload)
}

// Sum returns the accumulated region hash. The hasher may continue to
// be written to after Sum (subsequent Sums cover all writes so far).
func (h *RegionHasher) Sum() Hash {
	var hash Hash
	copy(hash[:], h.inner.Sum(nil))
	return hash
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(hexString string) (Hash, error) {
	var hash Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return hash, fmt.Errorf("parsing frame hash: %w", err)
	}
	if len(decoded) != 32 {
		return hash, fmt.Errorf("frame hash is %d bytes, want 32", len(decoded))
	}
	copy(hash[:], decoded)
	return hash, nil
}

// keyedHash computes BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("frame: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
