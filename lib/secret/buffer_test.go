// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"testing"
)

func TestNewZeroFilled(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64): %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("Len() = %d, want 64", buffer.Len())
	}

	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("byte %d = %d, want zero-initialized memory", index, value)
		}
	}
}

func TestNewRejectsBadSizes(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) accepted")
	}
	if _, err := New(-1); err == nil {
		t.Error("New(-1) accepted")
	}
}

func TestNewFromBytesZerosSource(t *testing.T) {
	source := []byte("frame-encryption-master-key")
	original := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != original {
		t.Errorf("String() = %q, want %q", got, original)
	}

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d = %d, not zeroed", index, value)
		}
	}
}

func TestNewFromBytesRejectsEmpty(t *testing.T) {
	if _, err := NewFromBytes([]byte{}); err == nil {
		t.Error("NewFromBytes accepted empty source")
	}
}

func TestEqual(t *testing.T) {
	buffer, err := NewFromBytes([]byte("bearer-credential"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if !buffer.Equal([]byte("bearer-credential")) {
		t.Error("Equal rejected identical bytes")
	}
	if buffer.Equal([]byte("bearer-credentiaL")) {
		t.Error("Equal accepted different bytes")
	}
	if buffer.Equal([]byte("bearer")) {
		t.Error("Equal accepted shorter input")
	}
	if buffer.Equal(nil) {
		t.Error("Equal accepted nil")
	}
}

func TestCloseZeroesAndReleases(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	copy(buffer.Bytes(), []byte("this should be zeroed"))

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buffer.data != nil {
		t.Error("data not nil after Close")
	}

	// Idempotent.
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestAccessAfterClosePanics(t *testing.T) {
	for _, access := range []struct {
		name string
		call func(*Buffer)
	}{
		{"Bytes", func(b *Buffer) { b.Bytes() }},
		{"String", func(b *Buffer) { _ = b.String() }},
		{"Equal", func(b *Buffer) { b.Equal([]byte("x")) }},
	} {
		buffer, err := New(16)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		buffer.Close()

		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s after Close did not panic", access.name)
				}
			}()
			access.call(buffer)
		}()
	}
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	Zero(data)
	for index, value := range data {
		if value != 0 {
			t.Errorf("byte %d = %d after Zero", index, value)
		}
	}
}
