// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "fmt"

// Button identifies a physical input on a display device. The eight
// numbered buttons and ENTER/ESC belong to the active HLSS instance;
// the two highlight buttons are reserved for local navigation between
// assigned instances and are never forwarded to a backend.
type Button string

const (
	Button1     Button = "BTN_1"
	Button2     Button = "BTN_2"
	Button3     Button = "BTN_3"
	Button4     Button = "BTN_4"
	Button5     Button = "BTN_5"
	Button6     Button = "BTN_6"
	Button7     Button = "BTN_7"
	Button8     Button = "BTN_8"
	ButtonEnter Button = "ENTER"
	ButtonEsc   Button = "ESC"

	// ButtonHighlightLeft and ButtonHighlightRight cycle the device's
	// active instance backward and forward through its assignment
	// list. Handled entirely by the broker.
	ButtonHighlightLeft  Button = "HL_LEFT"
	ButtonHighlightRight Button = "HL_RIGHT"
)

// IsKnown reports whether b is one of the defined Button values.
func (b Button) IsKnown() bool {
	switch b {
	case Button1, Button2, Button3, Button4,
		Button5, Button6, Button7, Button8,
		ButtonEnter, ButtonEsc,
		ButtonHighlightLeft, ButtonHighlightRight:
		return true
	}
	return false
}

// IsHighlight reports whether b is one of the two local navigation
// buttons that the broker consumes instead of forwarding.
func (b Button) IsHighlight() bool {
	return b == ButtonHighlightLeft || b == ButtonHighlightRight
}

// EventType is the kind of input event a device reports for a button.
type EventType string

const (
	EventPress     EventType = "PRESS"
	EventLongPress EventType = "LONG_PRESS"
	EventRelease   EventType = "RELEASE"
)

// IsKnown reports whether e is one of the defined EventType values.
func (e EventType) IsKnown() bool {
	switch e {
	case EventPress, EventLongPress, EventRelease:
		return true
	}
	return false
}

// PollAction is the broker's instruction to a polling device.
type PollAction string

const (
	// ActionNoop tells the device its current frame is up to date;
	// poll again after the normal interval.
	ActionNoop PollAction = "NOOP"

	// ActionFetchFrame tells the device a newer frame is available
	// for its active instance; fetch it by the accompanying frame ID.
	ActionFetchFrame PollAction = "FETCH_FRAME"

	// ActionSleep tells the device nothing is assigned to it; poll
	// again after the (longer) sleep interval to conserve battery.
	ActionSleep PollAction = "SLEEP"
)

// AuthStatus is the authorization state of a device. Transitions are
// admin-driven: pending → authorized | rejected, authorized → revoked,
// rejected/revoked → authorized (re-authorization). Devices are never
// deleted; these states are the whole lifecycle.
type AuthStatus string

const (
	AuthPending    AuthStatus = "pending"
	AuthAuthorized AuthStatus = "authorized"
	AuthRejected   AuthStatus = "rejected"
	AuthRevoked    AuthStatus = "revoked"
)

// IsKnown reports whether s is one of the defined AuthStatus values.
func (s AuthStatus) IsKnown() bool {
	switch s {
	case AuthPending, AuthAuthorized, AuthRejected, AuthRevoked:
		return true
	}
	return false
}

// Lifecycle is the initialization state of an HLSS instance.
//
// pending → initializing on the first Initialize call. A successful
// init handshake moves to ready, or to needs_configuration when the
// backend wants user setup first (needs_configuration → ready happens
// only via an explicit status refresh). A failed handshake leaves the
// instance in initializing with the error recorded; re-initialization
// is always safe.
type Lifecycle string

const (
	LifecyclePending      Lifecycle = "pending"
	LifecycleInitializing Lifecycle = "initializing"
	LifecycleNeedsConfig  Lifecycle = "needs_configuration"
	LifecycleReady        Lifecycle = "ready"
)

// IsKnown reports whether l is one of the defined Lifecycle values.
func (l Lifecycle) IsKnown() bool {
	switch l {
	case LifecyclePending, LifecycleInitializing, LifecycleNeedsConfig, LifecycleReady:
		return true
	}
	return false
}

// Capabilities describes a display panel: pixel geometry, grayscale
// depth, and whether the panel supports partial refresh (updating a
// sub-region without a full flash cycle). Devices declare capabilities
// at registration; backends receive them during instance init so
// rendered frames match the panel.
type Capabilities struct {
	// Width and Height are the panel dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// BitDepth is bits per pixel (1 for pure black/white panels,
	// 4 for 16-level grayscale).
	BitDepth int `json:"bit_depth"`

	// PartialRefresh reports whether the panel can update a band of
	// rows without refreshing the whole screen. Devices without it
	// always receive full frames.
	PartialRefresh bool `json:"partial_refresh"`
}

// DefaultCapabilities is the fallback panel geometry used when neither
// an instance nor its HLSS type declares one: the common 7.5" e-paper
// module.
var DefaultCapabilities = Capabilities{
	Width:    800,
	Height:   480,
	BitDepth: 4,
}

// Validate checks that the capability values describe a representable
// panel.
func (c Capabilities) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("display: dimensions %dx%d must be positive", c.Width, c.Height)
	}
	switch c.BitDepth {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("display: bit depth %d not supported (want 1, 2, 4, or 8)", c.BitDepth)
	}
	return nil
}
