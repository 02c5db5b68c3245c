// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package devicetoken

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func testAuthority(t *testing.T) *Authority {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return NewAuthority(key)
}

func TestMintAndVerifyAccess(t *testing.T) {
	authority := testAuthority(t)

	now := time.Now()
	tokenString, minted, err := authority.MintAt("dev_3ba1f62c9d04", KindAccess, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("MintAt: %v", err)
	}

	if minted.Subject != "dev_3ba1f62c9d04" {
		t.Errorf("minted Subject = %q, want dev_3ba1f62c9d04", minted.Subject)
	}
	if minted.SessionID != "" {
		t.Errorf("access token SessionID = %q, want empty", minted.SessionID)
	}
	if minted.ExpiresAt != now.Add(24*time.Hour).Unix() {
		t.Errorf("ExpiresAt = %d, want %d", minted.ExpiresAt, now.Add(24*time.Hour).Unix())
	}

	verified, err := authority.Verify(tokenString, KindAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Subject != "dev_3ba1f62c9d04" {
		t.Errorf("verified Subject = %q, want dev_3ba1f62c9d04", verified.Subject)
	}
	if verified.Kind != KindAccess {
		t.Errorf("Kind = %v, want access", verified.Kind)
	}
}

func TestMintRefreshGeneratesSessionID(t *testing.T) {
	authority := testAuthority(t)

	_, first, err := authority.Mint("dev_3ba1f62c9d04", KindRefresh, 720*time.Hour)
	if err != nil {
		t.Fatalf("Mint first: %v", err)
	}
	_, second, err := authority.Mint("dev_3ba1f62c9d04", KindRefresh, 720*time.Hour)
	if err != nil {
		t.Fatalf("Mint second: %v", err)
	}

	if first.SessionID == "" || second.SessionID == "" {
		t.Fatal("refresh tokens must carry a session ID")
	}
	if first.SessionID == second.SessionID {
		t.Errorf("session IDs must differ per issue, both %q", first.SessionID)
	}
}

func TestVerifyWrongKind(t *testing.T) {
	authority := testAuthority(t)

	accessToken, _, err := authority.Mint("dev_3ba1f62c9d04", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = authority.Verify(accessToken, KindRefresh)
	if !errors.Is(err, ErrWrongKind) {
		t.Errorf("access token as refresh: got %v, want ErrWrongKind", err)
	}

	refreshToken, _, err := authority.Mint("dev_3ba1f62c9d04", KindRefresh, 720*time.Hour)
	if err != nil {
		t.Fatalf("Mint refresh: %v", err)
	}

	_, err = authority.Verify(refreshToken, KindAccess)
	if !errors.Is(err, ErrWrongKind) {
		t.Errorf("refresh token as access: got %v, want ErrWrongKind", err)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	authority := testAuthority(t)

	tokenString, _, err := authority.Mint("dev_3ba1f62c9d04", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		t.Fatalf("decoding token: %v", err)
	}
	raw[0] ^= 0xFF
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	_, err = authority.Verify(tampered, KindAccess)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Verify tampered token: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	minter := testAuthority(t)
	verifier := testAuthority(t)

	tokenString, _, err := minter.Mint("dev_3ba1f62c9d04", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = verifier.Verify(tokenString, KindAccess)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Verify with wrong key: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	authority := testAuthority(t)

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tokenString, _, err := authority.MintAt("dev_3ba1f62c9d04", KindAccess, time.Hour, issued)
	if err != nil {
		t.Fatalf("MintAt: %v", err)
	}

	expiry := issued.Add(time.Hour)

	// Before expiry: valid.
	if _, err := authority.VerifyAt(tokenString, KindAccess, expiry.Add(-time.Second)); err != nil {
		t.Errorf("before expiry: %v", err)
	}

	// At expiry: expired (not strictly before).
	if _, err := authority.VerifyAt(tokenString, KindAccess, expiry); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("at expiry: got %v, want ErrTokenExpired", err)
	}

	// After expiry: expired.
	if _, err := authority.VerifyAt(tokenString, KindAccess, expiry.Add(time.Second)); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("after expiry: got %v, want ErrTokenExpired", err)
	}
}

func TestVerifyNotBase64(t *testing.T) {
	authority := testAuthority(t)

	_, err := authority.Verify("not!!valid!!base64url", KindAccess)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Verify non-base64: got %v, want ErrMalformedPayload", err)
	}
}

func TestVerifyTooShort(t *testing.T) {
	authority := testAuthority(t)

	// Exactly 64 raw bytes (all signature, no payload).
	short := base64.RawURLEncoding.EncodeToString(make([]byte, signatureSize))
	_, err := authority.Verify(short, KindAccess)
	if !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("Verify 64-byte token: got %v, want ErrTokenTooShort", err)
	}

	_, err = authority.Verify("", KindAccess)
	if !errors.Is(err, ErrTokenTooShort) {
		t.Errorf("Verify empty token: got %v, want ErrTokenTooShort", err)
	}
}

func TestKindString(t *testing.T) {
	if KindAccess.String() != "access" {
		t.Errorf("KindAccess.String() = %q", KindAccess.String())
	}
	if KindRefresh.String() != "refresh" {
		t.Errorf("KindRefresh.String() = %q", KindRefresh.String())
	}
	if Kind(9).String() != "kind(9)" {
		t.Errorf("Kind(9).String() = %q", Kind(9).String())
	}
}

func TestTokenWireSize(t *testing.T) {
	authority := testAuthority(t)

	tokenString, _, err := authority.Mint("dev_3ba1f62c9d04", KindRefresh, 720*time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	t.Logf("refresh token wire size: %d characters", len(tokenString))

	// Devices hold these in a few hundred bytes of flash; keep the
	// wire form comfortably small.
	if len(tokenString) > 512 {
		t.Errorf("token unexpectedly large: %d characters", len(tokenString))
	}
}
