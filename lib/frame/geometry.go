// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import "fmt"

// Geometry describes a packed framebuffer: pixel dimensions and bits
// per pixel. Buffers are row-major with rows padded to whole bytes —
// a row occupies Stride() bytes regardless of whether width*bpp is a
// multiple of 8.
type Geometry struct {
	Width        int
	Height       int
	BitsPerPixel int
}

// Stride returns the byte length of one packed row:
// ceil(Width*BitsPerPixel/8).
func (g Geometry) Stride() int {
	return (g.Width*g.BitsPerPixel + 7) / 8
}

// Size returns the byte length of a full framebuffer with this
// geometry: Stride()*Height.
func (g Geometry) Size() int {
	return g.Stride() * g.Height
}

// Validate checks that the geometry describes a representable buffer.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("frame: geometry %dx%d must be positive", g.Width, g.Height)
	}
	switch g.BitsPerPixel {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("frame: %d bits per pixel not supported (want 1, 2, 4, or 8)", g.BitsPerPixel)
	}
	return nil
}

// String formats the geometry for logs, e.g. "800x480@4bpp".
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d@%dbpp", g.Width, g.Height, g.BitsPerPixel)
}
