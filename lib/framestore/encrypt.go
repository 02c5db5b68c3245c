// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/secret"
)

// KeySize is the size in bytes of the frame-encryption master key and
// of every derived per-frame key.
const KeySize = 32

// encryptedFrameVersion is the version byte prepended to encrypted
// frame blobs. It is part of the AAD, so tampering with it fails
// authentication.
const encryptedFrameVersion byte = 0x01

// encryptedFrameOverhead is the fixed byte overhead per encrypted
// frame: 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305
// tag). Negligible against framebuffer sizes.
const encryptedFrameOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoFrame is the HKDF info prefix for per-frame key derivation.
// Changing it invalidates every encrypted frame at rest.
var hkdfInfoFrame = []byte("slate.frame.enc.v1")

// deriveFrameKey derives the per-frame encryption key from the master
// key and the frame's content hash via HKDF-SHA256. The same content
// under the same master key always derives the same key, so an
// idempotent resubmission would produce a decryptable duplicate even
// if dedup ever let one through.
//
// The masterKey is borrowed (read via Bytes) and NOT closed. The
// returned Buffer must be closed by the caller.
func deriveFrameKey(masterKey *secret.Buffer, contentHash frame.Hash) (*secret.Buffer, error) {
	info := make([]byte, len(hkdfInfoFrame)+len(contentHash))
	copy(info, hkdfInfoFrame)
	copy(info[len(hkdfInfoFrame):], contentHash[:])

	// Nil salt per RFC 5869: the master key is already uniform random
	// key material, so the extract step with a zero salt is sound.
	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, info)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("framestore: HKDF key derivation: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// encryptFrame encrypts a (compressed) frame payload with
// XChaCha20-Poly1305 under a key derived from the master key and the
// frame's content hash. The blob layout is:
//
//	[version: 1 byte] [nonce: 24 bytes, random] [ciphertext+tag]
//
// The version byte and content hash form the AAD, binding the
// ciphertext to this exact frame — a blob swapped between rows fails
// authentication on read.
func encryptFrame(plaintext []byte, masterKey *secret.Buffer, contentHash frame.Hash) ([]byte, error) {
	frameKey, err := deriveFrameKey(masterKey, contentHash)
	if err != nil {
		return nil, err
	}
	defer frameKey.Close()

	aead, err := chacha20poly1305.NewX(frameKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("framestore: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("framestore: generating nonce: %w", err)
	}

	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, len(plaintext)+encryptedFrameOverhead)
	blob[0] = encryptedFrameVersion
	copy(blob[1:], nonce[:])

	return aead.Seal(blob, nonce[:], plaintext, frameAAD(encryptedFrameVersion, contentHash)), nil
}

// decryptFrame reverses encryptFrame. Fails if the blob is truncated,
// carries an unknown version, or does not authenticate (wrong key,
// tampered ciphertext, or a blob belonging to a different frame).
func decryptFrame(blob []byte, masterKey *secret.Buffer, contentHash frame.Hash) ([]byte, error) {
	if len(blob) < encryptedFrameOverhead {
		return nil, fmt.Errorf("framestore: encrypted frame is %d bytes, minimum is %d",
			len(blob), encryptedFrameOverhead)
	}
	if blob[0] != encryptedFrameVersion {
		return nil, fmt.Errorf("framestore: encrypted frame version %d not supported", blob[0])
	}

	frameKey, err := deriveFrameKey(masterKey, contentHash)
	if err != nil {
		return nil, err
	}
	defer frameKey.Close()

	aead, err := chacha20poly1305.NewX(frameKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("framestore: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, frameAAD(blob[0], contentHash))
	if err != nil {
		return nil, fmt.Errorf("framestore: frame decryption failed (wrong key, tampered data, or mismatched frame): %w", err)
	}
	return plaintext, nil
}

// frameAAD builds the additional authenticated data: version byte then
// content hash.
func frameAAD(version byte, contentHash frame.Hash) []byte {
	aad := make([]byte, 1+len(contentHash))
	aad[0] = version
	copy(aad[1:], contentHash[:])
	return aad
}
