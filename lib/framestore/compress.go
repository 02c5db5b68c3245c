// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the at-rest compression of a stored frame.
// Tags are stored in the frames table — changing the values breaks
// existing databases.
type CompressionTag uint8

const (
	// CompressionNone stores the framebuffer uncompressed. Chosen when
	// neither codec makes the frame meaningfully smaller (dithered
	// grayscale content is close to incompressible).
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression: modest ratios but
	// near-free decompression, chosen when a frame compresses a little
	// but not enough to justify zstd.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level, chosen when the
	// frame compresses well — typical for text-heavy e-paper screens
	// with large uniform areas.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// zstdEncoder and zstdDecoder are reused across calls to avoid repeated
// initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("framestore: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("framestore: zstd decoder initialization failed: " + err.Error())
	}
}

// zstdWorthwhileRatio is the compression ratio above which zstd is
// preferred over LZ4. Below it, LZ4's much cheaper decode wins for the
// marginal size difference.
const zstdWorthwhileRatio = 1.5

// compressFrame picks a codec for a framebuffer by probing: zstd when
// the ratio clears zstdWorthwhileRatio, otherwise LZ4 when it shrinks
// the frame at all, otherwise the raw bytes. Returns the encoded bytes
// and the tag to store with them.
func compressFrame(data []byte) ([]byte, CompressionTag) {
	if len(data) == 0 {
		return data, CompressionNone
	}

	zstdBytes := zstdEncoder.EncodeAll(data, nil)
	if float64(len(data))/float64(len(zstdBytes)) >= zstdWorthwhileRatio {
		return zstdBytes, CompressionZstd
	}

	bound := lz4.CompressBlockBound(len(data))
	lz4Bytes := make([]byte, bound)
	written, err := lz4.CompressBlock(data, lz4Bytes, nil)
	// CompressBlock returns 0 for incompressible input.
	if err == nil && written > 0 && written < len(data) {
		return lz4Bytes[:written], CompressionLZ4
	}

	if len(zstdBytes) < len(data) {
		return zstdBytes, CompressionZstd
	}
	return data, CompressionNone
}

// decompressFrame reverses compressFrame. originalSize must match the
// pre-compression byte length exactly; a mismatch is corruption and
// returns an error.
func decompressFrame(stored []byte, tag CompressionTag, originalSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(stored) != originalSize {
			return nil, fmt.Errorf("framestore: stored frame is %d bytes, want %d", len(stored), originalSize)
		}
		return stored, nil

	case CompressionLZ4:
		data := make([]byte, originalSize)
		read, err := lz4.UncompressBlock(stored, data)
		if err != nil {
			return nil, fmt.Errorf("framestore: lz4 decompress: %w", err)
		}
		if read != originalSize {
			return nil, fmt.Errorf("framestore: lz4 decompress produced %d bytes, want %d", read, originalSize)
		}
		return data, nil

	case CompressionZstd:
		data, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, originalSize))
		if err != nil {
			return nil, fmt.Errorf("framestore: zstd decompress: %w", err)
		}
		if len(data) != originalSize {
			return nil, fmt.Errorf("framestore: zstd decompress produced %d bytes, want %d", len(data), originalSize)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("framestore: unknown compression tag %d", tag)
	}
}
