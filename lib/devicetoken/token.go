// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package devicetoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slateworks/slate/lib/codec"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize // 64 bytes

// TokenVersion is the current payload schema version. Bump when the
// payload gains fields that old verifiers must not silently ignore.
const TokenVersion = 1

// Kind distinguishes access tokens from refresh tokens. A token of one
// kind is never accepted where the other is expected.
type Kind uint8

const (
	// KindAccess authenticates the device data plane: poll, frame
	// fetch, input submission. Stateless verification.
	KindAccess Kind = 1

	// KindRefresh authenticates only the token refresh endpoints.
	// Carries a session ID checked against broker storage.
	KindRefresh Kind = 2
)

// String returns a human-readable kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Token is the CBOR-encoded payload of a device bearer token.
type Token struct {
	// Version is the payload schema version (see TokenVersion).
	Version int `cbor:"1,keyasint"`

	// Kind is the token kind: access or refresh.
	Kind Kind `cbor:"2,keyasint"`

	// Subject is the device ID this token authenticates
	// (e.g., "dev_3ba1f62c9d04").
	Subject string `cbor:"3,keyasint"`

	// SessionID identifies the refresh session. Set only on refresh
	// tokens, minted fresh per issue. The broker stores the latest
	// session ID per device; an older one is dead.
	SessionID string `cbor:"4,keyasint,omitempty"`

	// IssuedAt is a Unix timestamp (seconds) of when the authority
	// minted this token.
	IssuedAt int64 `cbor:"5,keyasint"`

	// ExpiresAt is a Unix timestamp (seconds) after which this token
	// is no longer valid.
	ExpiresAt int64 `cbor:"6,keyasint"`
}

// Errors returned by Verify and related functions. ErrSessionRevoked is
// returned by callers that compare a refresh token's session ID against
// stored state — the authority itself is stateless.
var (
	ErrTokenTooShort    = errors.New("devicetoken: token too short for signature")
	ErrInvalidSignature = errors.New("devicetoken: invalid Ed25519 signature")
	ErrTokenExpired     = errors.New("devicetoken: token has expired")
	ErrWrongKind        = errors.New("devicetoken: wrong token kind")
	ErrMalformedPayload = errors.New("devicetoken: malformed token payload")
	ErrSessionRevoked   = errors.New("devicetoken: refresh session revoked")
)

// Authority mints and verifies device tokens with a single Ed25519
// keypair. Safe for concurrent use.
type Authority struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// NewAuthority creates an Authority from an Ed25519 private key. The
// verification key is derived from it.
func NewAuthority(private ed25519.PrivateKey) *Authority {
	return &Authority{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}
}

// Mint creates and signs a token for subject, valid from now for ttl.
// Refresh tokens get a fresh session ID. Returns the base64url wire
// string and the decoded payload (callers issuing refresh tokens need
// the SessionID to persist).
func (a *Authority) Mint(subject string, kind Kind, ttl time.Duration) (string, *Token, error) {
	return a.MintAt(subject, kind, ttl, time.Now())
}

// MintAt is like Mint but accepts an explicit issue time. This supports
// deterministic testing.
func (a *Authority) MintAt(subject string, kind Kind, ttl time.Duration, now time.Time) (string, *Token, error) {
	token := &Token{
		Version:   TokenVersion,
		Kind:      kind,
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	if kind == KindRefresh {
		token.SessionID = uuid.NewString()
	}

	payload, err := codec.Marshal(token)
	if err != nil {
		return "", nil, fmt.Errorf("devicetoken: encoding token payload: %w", err)
	}

	signature := ed25519.Sign(a.private, payload)

	raw := make([]byte, len(payload)+signatureSize)
	copy(raw, payload)
	copy(raw[len(payload):], signature)

	return base64.RawURLEncoding.EncodeToString(raw), token, nil
}

// Verify decodes the wire string, verifies the Ed25519 signature,
// checks expiry, and confirms the token is of the expected kind.
// Returns the decoded Token on success.
//
// Refresh-token callers must additionally compare Token.SessionID
// against the device's stored session ID and reject mismatches with
// ErrSessionRevoked.
func (a *Authority) Verify(tokenString string, kind Kind) (*Token, error) {
	return a.VerifyAt(tokenString, kind, time.Now())
}

// VerifyAt is like Verify but accepts an explicit time for expiry
// checks. This supports deterministic testing.
func (a *Authority) VerifyAt(tokenString string, kind Kind, now time.Time) (*Token, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(raw) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	splitPoint := len(raw) - signatureSize
	payload := raw[:splitPoint]
	signature := raw[splitPoint:]

	if !ed25519.Verify(a.public, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if token.Version != TokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedPayload, token.Version)
	}

	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}

	if token.Kind != kind {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongKind, token.Kind, kind)
	}

	return &token, nil
}
