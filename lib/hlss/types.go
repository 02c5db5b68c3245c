// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlss

import (
	"time"

	"github.com/slateworks/slate/lib/schema/display"
)

// Callbacks are the broker URLs a backend uses to reach the broker on
// behalf of one instance: where to submit frames, where input events
// arrive, and where to signal that new content is available. All three
// are instance-scoped and sent during the init handshake.
type Callbacks struct {
	Frames string `json:"frames"`
	Inputs string `json:"inputs"`
	Notify string `json:"notify"`
}

// InitRequest is the init handshake payload. The backend learns the
// instance's identity, how to call back, and the display geometry it
// must render for.
type InitRequest struct {
	InstanceID string               `json:"instance_id"`
	Callbacks  Callbacks            `json:"callbacks"`
	Display    display.Capabilities `json:"display"`
}

// initResponse is the backend's answer to the init handshake. Status
// must be "initialized"; anything else is a failed handshake.
type initResponse struct {
	Status             string `json:"status"`
	NeedsConfiguration bool   `json:"needs_configuration"`
	ConfigurationURL   string `json:"configuration_url,omitempty"`
}

// InitResult is the outcome of a successful init handshake.
type InitResult struct {
	// NeedsConfiguration is true when the backend wants user-facing
	// setup (account linking, screen selection) before it can render.
	NeedsConfiguration bool

	// ConfigurationURL is where that setup happens. Set only when
	// NeedsConfiguration is true.
	ConfigurationURL string
}

// Status is a backend's self-reported instance state.
type Status struct {
	InstanceID         string `json:"instance_id"`
	Ready              bool   `json:"ready"`
	NeedsConfiguration bool   `json:"needs_configuration"`
	ConfigurationURL   string `json:"configuration_url,omitempty"`

	// ActiveScreen names the content the backend is currently
	// rendering (backend-defined, e.g. "game" or "standings").
	ActiveScreen string `json:"active_screen,omitempty"`
}

// FrameMetadata describes the newest frame a backend holds for an
// instance, without the pixel data. HasFrame false means the backend
// has rendered nothing yet.
type FrameMetadata struct {
	InstanceID string     `json:"instance_id"`
	HasFrame   bool       `json:"has_frame"`
	FrameID    string     `json:"frame_id,omitempty"`
	FrameHash  string     `json:"frame_hash,omitempty"`
	ScreenType string     `json:"screen_type,omitempty"`
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// Frame-send outcome status strings. Anything else from a backend is
// an error.
const (
	FrameSendSent      = "sent"      // frame submitted to the broker synchronously
	FrameSendNoFrame   = "no_frame"  // backend has nothing rendered yet
	FrameSendScheduled = "scheduled" // backend will render and submit asynchronously
)

// FrameSendResult is the backend's answer to a frame-send request.
type FrameSendResult struct {
	Status  string `json:"status"`
	FrameID string `json:"frame_id,omitempty"`
}

// InputEvent is a button event forwarded to the instance that owns it.
type InputEvent struct {
	Button    display.Button    `json:"button"`
	EventType display.EventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
}
