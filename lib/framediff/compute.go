// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framediff

import (
	"bytes"

	"github.com/slateworks/slate/lib/frame"
)

// Compute builds the delta that turns prev into next. partialCapable is
// the receiving device's declared partial-refresh capability.
//
// The result is a partial delta only when all of these hold: the device
// is partial capable, prev is a well-formed buffer of the same geometry
// as next, and the changed regions total fewer payload bytes than the
// full frame. In every other case Compute returns a full delta — the
// function never fails, because a full replacement is always expressible.
//
// next must match geom exactly (len(next) == geom.Size()); Compute
// panics otherwise, since a malformed target frame is a caller bug the
// store layer screens out long before diffing.
func Compute(prev, next []byte, geom frame.Geometry, partialCapable bool) *Delta {
	if len(next) != geom.Size() {
		panic("framediff: target buffer does not match geometry")
	}

	if !partialCapable || len(prev) != geom.Size() {
		return fullDelta(next, geom)
	}

	regions := changedRegions(prev, next, geom)

	partial := &Delta{
		Version:      DeltaVersion,
		Kind:         KindPartial,
		Width:        geom.Width,
		Height:       geom.Height,
		BitsPerPixel: geom.BitsPerPixel,
		TargetHash:   frame.HashContent(next),
		RegionHash:   regionHash(regions),
		Regions:      regions,
	}
	baseHash := frame.HashContent(prev)
	partial.BaseHash = &baseHash

	// A partial delta that carries as many payload bytes as the frame
	// itself saves nothing and adds the base-frame requirement; send
	// the full frame instead.
	if partial.PayloadSize() >= geom.Size() {
		return fullDelta(next, geom)
	}

	return partial
}

// fullDelta wraps the whole target buffer in a single region.
func fullDelta(next []byte, geom frame.Geometry) *Delta {
	regions := []Region{{Y: 0, Rows: geom.Height, Payload: next}}
	return &Delta{
		Version:      DeltaVersion,
		Kind:         KindFull,
		Width:        geom.Width,
		Height:       geom.Height,
		BitsPerPixel: geom.BitsPerPixel,
		TargetHash:   frame.HashContent(next),
		RegionHash:   regionHash(regions),
		Regions:      regions,
	}
}

// changedRegions scans prev and next in bands of BandRows rows and
// returns the changed bands coalesced into regions, ordered by
// ascending Y. Identical buffers produce zero regions.
func changedRegions(prev, next []byte, geom frame.Geometry) []Region {
	stride := geom.Stride()

	var regions []Region
	for y := 0; y < geom.Height; {
		rows := BandRows
		if y+rows > geom.Height {
			rows = geom.Height - y
		}

		start := y * stride
		end := start + rows*stride
		if bytes.Equal(prev[start:end], next[start:end]) {
			y += rows
			continue
		}

		// Extend through consecutive changed bands so one region covers
		// the whole run.
		runStart := y
		y += rows
		for y < geom.Height {
			rows = BandRows
			if y+rows > geom.Height {
				rows = geom.Height - y
			}
			start = y * stride
			end = start + rows*stride
			if bytes.Equal(prev[start:end], next[start:end]) {
				break
			}
			y += rows
		}

		runRows := y - runStart
		payload := make([]byte, runRows*stride)
		copy(payload, next[runStart*stride:y*stride])
		regions = append(regions, Region{Y: runStart, Rows: runRows, Payload: payload})
	}

	return regions
}
