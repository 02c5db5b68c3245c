// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCompressFrameUniform(t *testing.T) {
	// A blank framebuffer compresses extremely well: zstd territory.
	data := make([]byte, 48000)
	stored, tag := compressFrame(data)
	if tag != CompressionZstd {
		t.Errorf("uniform frame tagged %s, want zstd", tag)
	}
	if len(stored) >= len(data) {
		t.Errorf("uniform frame did not shrink: %d -> %d", len(data), len(stored))
	}

	decoded, err := decompressFrame(stored, tag, len(data))
	if err != nil {
		t.Fatalf("decompressFrame: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("decompressed bytes differ from input")
	}
}

func TestCompressFrameNoise(t *testing.T) {
	// Dithered grayscale looks like noise; nothing should shrink it.
	data := make([]byte, 48000)
	rand.New(rand.NewSource(42)).Read(data)

	stored, tag := compressFrame(data)
	if tag != CompressionNone {
		t.Errorf("noise frame tagged %s, want none", tag)
	}
	if !bytes.Equal(stored, data) {
		t.Error("raw-tagged frame was altered")
	}

	decoded, err := decompressFrame(stored, tag, len(data))
	if err != nil {
		t.Fatalf("decompressFrame: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Error("decompressed bytes differ from input")
	}
}

func TestCompressFrameEmpty(t *testing.T) {
	stored, tag := compressFrame(nil)
	if tag != CompressionNone || len(stored) != 0 {
		t.Errorf("empty input: tag %s, %d bytes", tag, len(stored))
	}
}

func TestCompressFrameAllTagsRoundTrip(t *testing.T) {
	// Exercise every decode path regardless of what the probe picks:
	// buffers with different redundancy levels land on different tags.
	buffers := [][]byte{
		make([]byte, 4096), // uniform
		func() []byte { // mostly noise with one uniform run
			b := make([]byte, 4096)
			rand.New(rand.NewSource(7)).Read(b[:3072])
			return b
		}(),
		func() []byte { // pure noise
			b := make([]byte, 4096)
			rand.New(rand.NewSource(9)).Read(b)
			return b
		}(),
	}

	seen := make(map[CompressionTag]bool)
	for i, data := range buffers {
		stored, tag := compressFrame(data)
		seen[tag] = true
		decoded, err := decompressFrame(stored, tag, len(data))
		if err != nil {
			t.Fatalf("buffer %d (%s): decompressFrame: %v", i, tag, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("buffer %d (%s): round trip differs", i, tag)
		}
	}
	if len(seen) < 2 {
		t.Errorf("probe picked only %v across varied inputs", seen)
	}
}

func TestDecompressFrameSizeMismatch(t *testing.T) {
	data := make([]byte, 4096)
	stored, tag := compressFrame(data)

	if _, err := decompressFrame(stored, tag, len(data)+1); err == nil {
		t.Error("decompressFrame accepted a wrong original size")
	}
	if _, err := decompressFrame(data, CompressionNone, len(data)-1); err == nil {
		t.Error("raw decompressFrame accepted a wrong original size")
	}
}

func TestDecompressFrameUnknownTag(t *testing.T) {
	if _, err := decompressFrame([]byte{1, 2, 3}, CompressionTag(99), 3); err == nil {
		t.Error("decompressFrame accepted an unknown tag")
	}
}

func TestDecompressFrameCorruptInput(t *testing.T) {
	data := make([]byte, 4096)
	stored, tag := compressFrame(data)
	if tag == CompressionNone {
		t.Fatal("uniform frame unexpectedly incompressible")
	}

	corrupt := bytes.Clone(stored)
	corrupt[len(corrupt)/2] ^= 0xFF
	decoded, err := decompressFrame(corrupt, tag, len(data))
	// Either the codec reports corruption or it decodes to different
	// bytes; silent identical output would be the only failure.
	if err == nil && bytes.Equal(decoded, data) {
		t.Error("corrupted input decoded to the original bytes")
	}
}

func TestCompressionTagString(t *testing.T) {
	for tag, want := range map[CompressionTag]string{
		CompressionNone: "none",
		CompressionLZ4:  "lz4",
		CompressionZstd: "zstd",
	} {
		if got := tag.String(); got != want {
			t.Errorf("tag %d: String() = %q, want %q", tag, got, want)
		}
	}
	if got := CompressionTag(200).String(); got != "unknown(200)" {
		t.Errorf("unknown tag String() = %q", got)
	}
}
