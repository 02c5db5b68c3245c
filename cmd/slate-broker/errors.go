// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the registry store and the engine. The API
// layer maps them to HTTP statuses; everything else becomes a 500.
var (
	// ErrNotFound means the named device, type, instance, or frame
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflictingState means the operation contradicts current
	// state: duplicate hardware ID on register, deleting an HLSS type
	// that instances still reference.
	ErrConflictingState = errors.New("conflicting state")

	// ErrInvalidAssignment means the device/instance pair is not in
	// the assignment set (set-active or unassign on a missing pair).
	ErrInvalidAssignment = errors.New("instance not assigned to device")

	// ErrBackendUnavailable means an HLSS backend call failed:
	// timeout, connection error, or a response outside the contract.
	// Always wraps the cause.
	ErrBackendUnavailable = errors.New("hlss backend unavailable")

	// ErrInvalidFrame means submitted frame data does not match the
	// geometry the instance resolves to.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrInvalidRequest means the caller's input fails validation
	// before touching any state: missing fields, unknown enum values.
	ErrInvalidRequest = errors.New("invalid request")
)

// AuthError is a credential failure with a specific HTTP status. The
// engine distinguishes "who are you" (401) from "you may not" (403)
// because devices react differently: a 401 sends them back through the
// token flow, a 403 means re-authorization by an operator.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

func unauthorized(format string, args ...any) *AuthError {
	return &AuthError{Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *AuthError {
	return &AuthError{Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}
