// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package devicetoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
)

// GenerateKey creates a new Ed25519 signing key. The verification key
// is embedded in it (ed25519 private keys carry their public half).
func GenerateKey() (ed25519.PrivateKey, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating Ed25519 key: %w", err)
	}
	return private, nil
}

// SaveKey writes the signing key to path with 0600 permissions.
func SaveKey(path string, key ed25519.PrivateKey) error {
	if err := os.WriteFile(path, key, 0600); err != nil {
		return fmt.Errorf("writing signing key: %w", err)
	}
	return nil
}

// LoadKey reads the signing key from path. Returns an error if the
// file is missing or has an unexpected size.
func LoadKey(path string) (ed25519.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key has %d bytes, want %d", len(keyBytes), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(keyBytes), nil
}

// LoadOrGenerateKey loads the signing key from path, or generates and
// saves a new one if the file does not exist. Returns the key and
// whether it was newly generated.
//
// Generating a new key invalidates every outstanding token, which is
// the correct behavior on first boot and the desired behavior after
// deliberate key deletion (devices fall back to their refresh flow,
// and on ErrInvalidSignature re-authenticate with their secret).
func LoadOrGenerateKey(path string) (ed25519.PrivateKey, bool, error) {
	key, err := LoadKey(path)
	if err == nil {
		return key, false, nil
	}

	// Distinguish missing file (expected on first boot) from
	// corruption or permission problems (must not silently re-key).
	if _, statErr := os.Stat(path); statErr == nil {
		return nil, false, err
	}

	key, err = GenerateKey()
	if err != nil {
		return nil, false, err
	}

	if err := SaveKey(path, key); err != nil {
		return nil, false, err
	}

	return key, true, nil
}
