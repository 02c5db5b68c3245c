// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Identifier prefixes. IDs are the prefix, an underscore, and 12 hex
// characters from a v4 UUID: short enough for device firmware to log
// on a serial console, random enough to never collide in practice.
const (
	DeviceIDPrefix   = "dev"
	InstanceIDPrefix = "inst"
	FrameIDPrefix    = "frm"
)

// NewDeviceID returns a fresh device identifier, e.g. "dev_3ba1f62c9d04".
func NewDeviceID() string { return newID(DeviceIDPrefix) }

// NewInstanceID returns a fresh instance identifier, e.g. "inst_9e2d04c7a1b3".
func NewInstanceID() string { return newID(InstanceIDPrefix) }

// NewFrameID returns a fresh frame identifier, e.g. "frm_c7a1b39e2d04".
func NewFrameID() string { return newID(FrameIDPrefix) }

// ValidID reports whether id has the given prefix and a well-formed
// 12-hex-character suffix. Used to reject obviously bogus identifiers
// presented by devices before they reach storage.
func ValidID(prefix, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok || len(rest) != 12 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

func newID(prefix string) string {
	id := uuid.New()
	return prefix + "_" + hex.EncodeToString(id[:6])
}
