// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "testing"

func TestButtonIsKnown(t *testing.T) {
	known := []Button{
		Button1, Button2, Button3, Button4,
		Button5, Button6, Button7, Button8,
		ButtonEnter, ButtonEsc,
		ButtonHighlightLeft, ButtonHighlightRight,
	}
	for _, button := range known {
		if !button.IsKnown() {
			t.Errorf("Button(%q).IsKnown() = false, want true", button)
		}
	}
	if Button("BTN_9").IsKnown() {
		t.Error(`Button("BTN_9").IsKnown() = true, want false`)
	}
	if Button("").IsKnown() {
		t.Error(`Button("").IsKnown() = true, want false`)
	}
}

func TestButtonIsHighlight(t *testing.T) {
	if !ButtonHighlightLeft.IsHighlight() || !ButtonHighlightRight.IsHighlight() {
		t.Error("highlight buttons not reported as highlight")
	}
	for _, button := range []Button{Button1, ButtonEnter, ButtonEsc} {
		if button.IsHighlight() {
			t.Errorf("Button(%q).IsHighlight() = true, want false", button)
		}
	}
}

func TestEventTypeIsKnown(t *testing.T) {
	for _, event := range []EventType{EventPress, EventLongPress, EventRelease} {
		if !event.IsKnown() {
			t.Errorf("EventType(%q).IsKnown() = false, want true", event)
		}
	}
	if EventType("DOUBLE_PRESS").IsKnown() {
		t.Error(`EventType("DOUBLE_PRESS").IsKnown() = true, want false`)
	}
}

func TestAuthStatusIsKnown(t *testing.T) {
	for _, status := range []AuthStatus{
		AuthPending, AuthAuthorized, AuthRejected, AuthRevoked,
	} {
		if !status.IsKnown() {
			t.Errorf("AuthStatus(%q).IsKnown() = false, want true", status)
		}
	}
	if AuthStatus("banned").IsKnown() {
		t.Error(`AuthStatus("banned").IsKnown() = true, want false`)
	}
}

func TestLifecycleIsKnown(t *testing.T) {
	for _, state := range []Lifecycle{
		LifecyclePending, LifecycleInitializing, LifecycleNeedsConfig, LifecycleReady,
	} {
		if !state.IsKnown() {
			t.Errorf("Lifecycle(%q).IsKnown() = false, want true", state)
		}
	}
	if Lifecycle("error").IsKnown() {
		t.Error(`Lifecycle("error").IsKnown() = true, want false`)
	}
}

func TestCapabilitiesValidate(t *testing.T) {
	tests := []struct {
		name    string
		caps    Capabilities
		wantErr bool
	}{
		{"default", DefaultCapabilities, false},
		{"mono panel", Capabilities{Width: 296, Height: 128, BitDepth: 1}, false},
		{"zero width", Capabilities{Width: 0, Height: 480, BitDepth: 4}, true},
		{"negative height", Capabilities{Width: 800, Height: -1, BitDepth: 4}, true},
		{"odd bit depth", Capabilities{Width: 800, Height: 480, BitDepth: 3}, true},
		{"zero bit depth", Capabilities{Width: 800, Height: 480, BitDepth: 0}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.caps.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}
