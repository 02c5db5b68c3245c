// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"bytes"
	"testing"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/secret"
)

func testMasterKey(t *testing.T, fill byte) *secret.Buffer {
	t.Helper()
	key, err := secret.NewFromBytes(bytes.Repeat([]byte{fill}, KeySize))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func TestEncryptFrameRoundTrip(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	plaintext := []byte("compressed framebuffer bytes")
	contentHash := frame.HashContent([]byte("original framebuffer"))

	blob, err := encryptFrame(plaintext, masterKey, contentHash)
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}
	if len(blob) != len(plaintext)+encryptedFrameOverhead {
		t.Errorf("blob is %d bytes, want %d", len(blob), len(plaintext)+encryptedFrameOverhead)
	}
	if blob[0] != encryptedFrameVersion {
		t.Errorf("blob version byte = %#x, want %#x", blob[0], encryptedFrameVersion)
	}
	if bytes.Contains(blob, plaintext) {
		t.Error("blob contains the plaintext")
	}

	decrypted, err := decryptFrame(blob, masterKey, contentHash)
	if err != nil {
		t.Fatalf("decryptFrame: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted bytes differ from plaintext")
	}
}

func TestEncryptFrameNoncesDiffer(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	plaintext := []byte("same bytes twice")
	contentHash := frame.HashContent(plaintext)

	first, err := encryptFrame(plaintext, masterKey, contentHash)
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}
	second, err := encryptFrame(plaintext, masterKey, contentHash)
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same frame produced identical blobs")
	}
}

func TestDecryptFrameWrongKey(t *testing.T) {
	contentHash := frame.HashContent([]byte("frame"))
	blob, err := encryptFrame([]byte("payload"), testMasterKey(t, 0x42), contentHash)
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}

	if _, err := decryptFrame(blob, testMasterKey(t, 0x43), contentHash); err == nil {
		t.Error("decryptFrame accepted a blob under the wrong master key")
	}
}

func TestDecryptFrameWrongContentHash(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	blob, err := encryptFrame([]byte("payload"), masterKey, frame.HashContent([]byte("frame A")))
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}

	// A blob moved to a different frame row must not decrypt: both the
	// derived key and the AAD depend on the content hash.
	if _, err := decryptFrame(blob, masterKey, frame.HashContent([]byte("frame B"))); err == nil {
		t.Error("decryptFrame accepted a blob bound to a different frame")
	}
}

func TestDecryptFrameTampered(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	contentHash := frame.HashContent([]byte("frame"))
	blob, err := encryptFrame([]byte("payload that is long enough to flip bits in"), masterKey, contentHash)
	if err != nil {
		t.Fatalf("encryptFrame: %v", err)
	}

	tampered := bytes.Clone(blob)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := decryptFrame(tampered, masterKey, contentHash); err == nil {
		t.Error("decryptFrame accepted a tampered ciphertext")
	}

	wrongVersion := bytes.Clone(blob)
	wrongVersion[0] = 0x02
	if _, err := decryptFrame(wrongVersion, masterKey, contentHash); err == nil {
		t.Error("decryptFrame accepted an unknown version byte")
	}
}

func TestDecryptFrameTruncated(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	contentHash := frame.HashContent([]byte("frame"))

	if _, err := decryptFrame([]byte{encryptedFrameVersion, 0x00}, masterKey, contentHash); err == nil {
		t.Error("decryptFrame accepted a truncated blob")
	}
}

func TestDeriveFrameKeyDeterministic(t *testing.T) {
	masterKey := testMasterKey(t, 0x42)
	hashA := frame.HashContent([]byte("frame A"))
	hashB := frame.HashContent([]byte("frame B"))

	keyA1, err := deriveFrameKey(masterKey, hashA)
	if err != nil {
		t.Fatalf("deriveFrameKey: %v", err)
	}
	defer keyA1.Close()
	keyA2, err := deriveFrameKey(masterKey, hashA)
	if err != nil {
		t.Fatalf("deriveFrameKey: %v", err)
	}
	defer keyA2.Close()
	keyB, err := deriveFrameKey(masterKey, hashB)
	if err != nil {
		t.Fatalf("deriveFrameKey: %v", err)
	}
	defer keyB.Close()

	if !keyA1.Equal(keyA2.Bytes()) {
		t.Error("same master key and content hash derived different keys")
	}
	if keyA1.Equal(keyB.Bytes()) {
		t.Error("different content hashes derived the same key")
	}
	if keyA1.Equal(masterKey.Bytes()) {
		t.Error("derived key equals the master key")
	}
}
