// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framediff

import (
	"fmt"

	"github.com/slateworks/slate/lib/frame"
)

// Apply reconstructs the target framebuffer from a delta and the
// receiver's previous buffer. For full deltas prev is ignored (may be
// nil). For partial deltas prev must be the exact base buffer the delta
// was computed against; Apply verifies this via the base hash before
// patching.
//
// The returned buffer is always freshly allocated — prev is never
// modified. Every error is one of the package's typed errors, possibly
// wrapped with position detail.
func Apply(delta *Delta, prev []byte) ([]byte, error) {
	if delta.Version != DeltaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, delta.Version)
	}

	geom := delta.Geometry()
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometryMismatch, err)
	}
	stride := geom.Stride()

	if regionHash(delta.Regions) != delta.RegionHash {
		return nil, ErrRegionCorrupt
	}

	for _, region := range delta.Regions {
		if region.Y < 0 || region.Rows <= 0 || region.Y+region.Rows > geom.Height {
			return nil, fmt.Errorf("%w: rows %d..%d of %d",
				ErrRegionBounds, region.Y, region.Y+region.Rows, geom.Height)
		}
		if len(region.Payload) != region.Rows*stride {
			return nil, fmt.Errorf("%w: region at row %d has %d payload bytes, want %d",
				ErrRegionBounds, region.Y, len(region.Payload), region.Rows*stride)
		}
	}

	next := make([]byte, geom.Size())

	switch delta.Kind {
	case KindFull:
		// A full delta is self-contained: exactly one region covering
		// every row.
		if len(delta.Regions) != 1 || delta.Regions[0].Y != 0 || delta.Regions[0].Rows != geom.Height {
			return nil, fmt.Errorf("%w: full delta must carry one whole-frame region", ErrRegionBounds)
		}
		copy(next, delta.Regions[0].Payload)

	case KindPartial:
		if len(prev) != geom.Size() {
			return nil, fmt.Errorf("%w: base buffer is %d bytes, want %d",
				ErrGeometryMismatch, len(prev), geom.Size())
		}
		if delta.BaseHash != nil && frame.HashContent(prev) != *delta.BaseHash {
			return nil, ErrBaseMismatch
		}
		copy(next, prev)
		for _, region := range delta.Regions {
			copy(next[region.Y*stride:], region.Payload)
		}

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, delta.Kind)
	}

	if frame.HashContent(next) != delta.TargetHash {
		return nil, ErrTargetMismatch
	}

	return next, nil
}
