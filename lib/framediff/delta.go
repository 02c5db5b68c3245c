// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framediff

import (
	"errors"
	"fmt"

	"github.com/slateworks/slate/lib/codec"
	"github.com/slateworks/slate/lib/frame"
)

// DeltaVersion is the current envelope schema version.
const DeltaVersion = 1

// BandRows is the number of rows per change-detection band. Changed
// bands coalesce into regions, so this bounds region granularity, not
// region size. Eight rows matches the partial-refresh window alignment
// of common e-paper controllers.
const BandRows = 8

// Kind distinguishes full-replacement deltas from partial ones.
type Kind uint8

const (
	// KindFull replaces the entire framebuffer. The single region
	// carries the whole target buffer; the previous buffer is ignored.
	KindFull Kind = 1

	// KindPartial patches changed row regions onto the previous
	// buffer. Requires the receiver to hold the exact base frame.
	KindPartial Kind = 2
)

// String returns a human-readable kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindPartial:
		return "partial"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Region is a contiguous run of changed rows: Rows complete rows
// starting at row Y, packed exactly as they appear in the target
// framebuffer (len(Payload) == Rows * stride).
type Region struct {
	Y       int    `cbor:"1,keyasint"`
	Rows    int    `cbor:"2,keyasint"`
	Payload []byte `cbor:"3,keyasint"`
}

// Delta is the wire envelope for a framebuffer update. Produced by
// [Compute], serialized by [Encode], reconstructed into a framebuffer
// by [Apply].
type Delta struct {
	// Version is the envelope schema version (see DeltaVersion).
	Version int `cbor:"1,keyasint"`

	// Kind is full or partial.
	Kind Kind `cbor:"2,keyasint"`

	// Width, Height, and BitsPerPixel fix the geometry both buffers
	// must have. Stride is derived, never transmitted.
	Width        int `cbor:"3,keyasint"`
	Height       int `cbor:"4,keyasint"`
	BitsPerPixel int `cbor:"5,keyasint"`

	// BaseHash is the content hash of the buffer this delta applies
	// on top of. Set on partial deltas; nil on full ones.
	BaseHash *frame.Hash `cbor:"6,keyasint,omitempty"`

	// TargetHash is the content hash of the reconstructed buffer.
	TargetHash frame.Hash `cbor:"7,keyasint"`

	// RegionHash covers every region's position and payload, in
	// order. Verified before any reconstruction work.
	RegionHash frame.Hash `cbor:"8,keyasint"`

	// Regions are the changed row runs, ordered by ascending Y and
	// non-overlapping. Empty on a partial delta between identical
	// buffers.
	Regions []Region `cbor:"9,keyasint"`
}

// Geometry returns the envelope's geometry as a frame.Geometry.
func (d *Delta) Geometry() frame.Geometry {
	return frame.Geometry{Width: d.Width, Height: d.Height, BitsPerPixel: d.BitsPerPixel}
}

// PayloadSize returns the total region payload bytes — the measure
// Compute and the delivery engine use to decide whether a partial
// delta beats sending the full frame.
func (d *Delta) PayloadSize() int {
	total := 0
	for _, region := range d.Regions {
		total += len(region.Payload)
	}
	return total
}

// Errors returned by Apply and Decode.
var (
	ErrUnsupportedVersion = errors.New("framediff: unsupported delta version")
	ErrUnknownKind        = errors.New("framediff: unknown delta kind")
	ErrGeometryMismatch   = errors.New("framediff: buffer does not match delta geometry")
	ErrBaseMismatch       = errors.New("framediff: base buffer hash does not match delta")
	ErrRegionCorrupt      = errors.New("framediff: region hash mismatch")
	ErrRegionBounds       = errors.New("framediff: region outside buffer geometry")
	ErrTargetMismatch     = errors.New("framediff: reconstructed buffer does not match target hash")
)

// Encode serializes the delta as deterministic CBOR.
func Encode(delta *Delta) ([]byte, error) {
	data, err := codec.Marshal(delta)
	if err != nil {
		return nil, fmt.Errorf("framediff: encoding delta: %w", err)
	}
	return data, nil
}

// Decode parses a CBOR delta envelope and checks the schema version.
// Structural validity of the regions is checked by Apply, not here.
func Decode(data []byte) (*Delta, error) {
	var delta Delta
	if err := codec.Unmarshal(data, &delta); err != nil {
		return nil, fmt.Errorf("framediff: decoding delta: %w", err)
	}
	if delta.Version != DeltaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, delta.Version)
	}
	return &delta, nil
}

// regionHash computes the region-domain integrity hash over the given
// regions in order.
func regionHash(regions []Region) frame.Hash {
	hasher := frame.NewRegionHasher()
	for _, region := range regions {
		hasher.WriteRegion(region.Y, region.Rows, region.Payload)
	}
	return hasher.Sum()
}
