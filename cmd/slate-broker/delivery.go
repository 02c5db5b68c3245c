// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/framediff"
	"github.com/slateworks/slate/lib/framestore"
	"github.com/slateworks/slate/lib/hlss"
	"github.com/slateworks/slate/lib/schema/display"
)

// PollResult is the broker's answer to a device poll.
type PollResult struct {
	Action display.PollAction `json:"action"`

	// FrameID is the frame to fetch. Set only on FETCH_FRAME.
	FrameID string `json:"frame_id,omitempty"`

	// ActiveInstanceID tells the device whose content it is about to
	// show. Set only on FETCH_FRAME.
	ActiveInstanceID string `json:"active_instance_id,omitempty"`

	// DeltaAvailable hints that fetching with the acknowledged frame
	// as base will likely yield a partial update.
	DeltaAvailable bool `json:"delta_available,omitempty"`

	// PollAfterMS is when to poll again, in milliseconds.
	PollAfterMS int `json:"poll_after_ms"`
}

// Poll is the heart of the delivery loop. The device reports the last
// frame it fully displayed (its ack — empty on the first poll after
// boot); the broker advances delivery state and answers with what to do
// next. Repeating a poll without an intervening submission or ack
// returns the same answer, so devices can retry freely.
func (e *Engine) Poll(ctx context.Context, deviceID, lastFrameID string) (PollResult, error) {
	// The ack becomes the device's stored diff base, so reject garbage
	// before it persists.
	if lastFrameID != "" && !frame.ValidID(frame.FrameIDPrefix, lastFrameID) {
		return PollResult{}, fmt.Errorf("%w: malformed frame id %q", ErrInvalidRequest, lastFrameID)
	}

	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()

	device, found, err := e.store.DeviceByID(ctx, deviceID)
	if err != nil {
		return PollResult{}, err
	}
	if !found {
		return PollResult{}, fmt.Errorf("device %q: %w", deviceID, ErrNotFound)
	}

	// The ack is the only thing that advances delivery state. Devices
	// send it on the poll after displaying a frame, so delivery is
	// at-least-once: a crash between fetch and ack re-delivers.
	if err := e.store.RecordDevicePoll(ctx, deviceID, lastFrameID); err != nil {
		return PollResult{}, err
	}
	currentFrameID := device.CurrentFrameID
	if lastFrameID != "" {
		currentFrameID = lastFrameID
	}

	assignments, err := e.store.AssignmentsForDevice(ctx, deviceID)
	if err != nil {
		return PollResult{}, err
	}
	if len(assignments) == 0 {
		return PollResult{Action: display.ActionSleep, PollAfterMS: e.sleepIntervalMS}, nil
	}

	noop := PollResult{Action: display.ActionNoop, PollAfterMS: e.pollIntervalMS}
	if device.ActiveInstanceID == "" {
		return noop, nil
	}

	latest, ok, err := e.frames.Latest(ctx, device.ActiveInstanceID)
	if err != nil {
		return PollResult{}, err
	}
	if !ok || latest.FrameID == currentFrameID {
		return noop, nil
	}

	return PollResult{
		Action:           display.ActionFetchFrame,
		FrameID:          latest.FrameID,
		ActiveInstanceID: device.ActiveInstanceID,
		DeltaAvailable:   e.deltaAvailable(ctx, device, currentFrameID, latest),
		PollAfterMS:      e.pollIntervalMS,
	}, nil
}

// deltaAvailable reports whether fetching latest with the device's
// current frame as base can be served as a partial update: the device
// must support partial refresh and the base must be a stored frame of
// the same instance and geometry.
func (e *Engine) deltaAvailable(ctx context.Context, device Device, baseFrameID string, latest framestore.Frame) bool {
	if !device.Display.PartialRefresh || baseFrameID == "" {
		return false
	}
	base, ok, err := e.frames.Get(ctx, baseFrameID)
	if err != nil || !ok {
		return false
	}
	return base.InstanceID == latest.InstanceID && base.Geometry == latest.Geometry
}

// FrameDelivery is a frame ready to send to a device: either the full
// framebuffer or an encoded delta envelope against a base the device
// already holds.
type FrameDelivery struct {
	FrameID string
	Delta   bool
	Data    []byte
}

// FetchFrame returns frame bytes for a device. When the device is
// partial-refresh capable and baseFrameID names a stored frame of the
// same instance and geometry, the result is a delta envelope — but only
// if the encoded delta is actually smaller than the full framebuffer;
// otherwise the full bytes win.
//
// A frame whose instance is not assigned to the device is ErrNotFound,
// same as a frame that does not exist.
func (e *Engine) FetchFrame(ctx context.Context, deviceID, frameID, baseFrameID string) (FrameDelivery, error) {
	device, found, err := e.store.DeviceByID(ctx, deviceID)
	if err != nil {
		return FrameDelivery{}, err
	}
	if !found {
		return FrameDelivery{}, fmt.Errorf("device %q: %w", deviceID, ErrNotFound)
	}

	target, data, err := e.frames.Data(ctx, frameID)
	if err != nil {
		if errors.Is(err, framestore.ErrNotFound) {
			return FrameDelivery{}, fmt.Errorf("frame %q: %w", frameID, ErrNotFound)
		}
		return FrameDelivery{}, err
	}

	assigned, err := e.instanceAssigned(ctx, deviceID, target.InstanceID)
	if err != nil {
		return FrameDelivery{}, err
	}
	if !assigned {
		return FrameDelivery{}, fmt.Errorf("frame %q: %w", frameID, ErrNotFound)
	}

	full := FrameDelivery{FrameID: frameID, Data: data}
	if !device.Display.PartialRefresh || baseFrameID == "" || baseFrameID == frameID {
		return full, nil
	}

	base, baseData, err := e.frames.Data(ctx, baseFrameID)
	if err != nil {
		// Base gone (swept or never existed): fall back to full.
		if errors.Is(err, framestore.ErrNotFound) {
			return full, nil
		}
		return FrameDelivery{}, err
	}
	if base.InstanceID != target.InstanceID || base.Geometry != target.Geometry {
		return full, nil
	}

	delta := framediff.Compute(baseData, data, target.Geometry, true)
	if delta.Kind != framediff.KindPartial {
		return full, nil
	}
	encoded, err := framediff.Encode(delta)
	if err != nil || len(encoded) >= len(data) {
		return full, nil
	}
	return FrameDelivery{FrameID: frameID, Delta: true, Data: encoded}, nil
}

// instanceAssigned reports whether instanceID is in the device's
// assignment set.
func (e *Engine) instanceAssigned(ctx context.Context, deviceID, instanceID string) (bool, error) {
	assignments, err := e.store.AssignmentsForDevice(ctx, deviceID)
	if err != nil {
		return false, err
	}
	for _, assignment := range assignments {
		if assignment.InstanceID == instanceID {
			return true, nil
		}
	}
	return false, nil
}

// InputResult tells the device what happened to its button event.
type InputResult struct {
	// RoutedTo is the instance the event was forwarded to, empty for
	// local or unrouted events.
	RoutedTo string `json:"routed_to,omitempty"`

	// Cycled is true when a highlight press switched the active
	// instance; ActiveInstanceID is the result.
	Cycled           bool   `json:"cycled,omitempty"`
	ActiveInstanceID string `json:"active_instance_id,omitempty"`

	// Warning reports a forwarding failure. The event was still
	// accepted and logged; the backend just never saw it.
	Warning string `json:"warning,omitempty"`
}

// HandleInput processes one button event from a device.
//
// Highlight buttons never reach a backend: a PRESS cycles the active
// assignment (HL_RIGHT forward, HL_LEFT backward), other event types
// are recorded and dropped. Everything else forwards to the active
// instance's backend, fire-and-forget: a forwarding failure is recorded
// and reported as a warning, never as a request failure. Every event
// lands in the input log exactly once, with the final forwarding
// outcome.
func (e *Engine) HandleInput(ctx context.Context, deviceID string, button display.Button, eventType display.EventType, timestamp time.Time) (InputResult, error) {
	if !button.IsKnown() {
		return InputResult{}, fmt.Errorf("%w: unknown button %q", ErrInvalidRequest, button)
	}
	if !eventType.IsKnown() {
		return InputResult{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidRequest, eventType)
	}
	if timestamp.IsZero() {
		// Devices without a clock may omit the timestamp.
		timestamp = e.clock.Now()
	}

	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()

	device, found, err := e.store.DeviceByID(ctx, deviceID)
	if err != nil {
		return InputResult{}, err
	}
	if !found {
		return InputResult{}, fmt.Errorf("device %q: %w", deviceID, ErrNotFound)
	}

	event := InputEvent{
		DeviceID:       deviceID,
		Button:         button,
		EventType:      eventType,
		EventTimestamp: timestamp,
	}

	if button.IsHighlight() {
		result := InputResult{ActiveInstanceID: device.ActiveInstanceID}
		if eventType == display.EventPress {
			direction := 1
			if button == display.ButtonHighlightLeft {
				direction = -1
			}
			active, cycled, err := e.store.CycleActive(ctx, deviceID, direction)
			if err != nil {
				return InputResult{}, err
			}
			result.Cycled = cycled
			result.ActiveInstanceID = active
			if cycled {
				e.logger.Info("active instance cycled",
					"device_id", deviceID,
					"active_instance_id", active)
			}
		}
		if _, err := e.store.RecordInputEvent(ctx, event); err != nil {
			return InputResult{}, err
		}
		return result, nil
	}

	if device.ActiveInstanceID == "" {
		if _, err := e.store.RecordInputEvent(ctx, event); err != nil {
			return InputResult{}, err
		}
		return InputResult{}, nil
	}

	event.InstanceID = device.ActiveInstanceID
	result := InputResult{RoutedTo: device.ActiveInstanceID, ActiveInstanceID: device.ActiveInstanceID}

	forwardErr := e.forwardInput(ctx, device.ActiveInstanceID, hlss.InputEvent{
		Button:    button,
		EventType: eventType,
		Timestamp: timestamp,
	})
	event.Forwarded = forwardErr == nil
	if forwardErr != nil {
		event.ForwardError = forwardErr.Error()
		result.Warning = fmt.Sprintf("input not delivered to backend: %v", forwardErr)
		e.logger.Warn("input forward failed",
			"device_id", deviceID,
			"instance_id", device.ActiveInstanceID,
			"button", button,
			"error", forwardErr)
	}

	if _, err := e.store.RecordInputEvent(ctx, event); err != nil {
		return InputResult{}, err
	}
	return result, nil
}

func (e *Engine) forwardInput(ctx context.Context, instanceID string, event hlss.InputEvent) error {
	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}
	client, err := e.backendClientForInstance(ctx, instance)
	if err != nil {
		return err
	}
	return client.ForwardInput(ctx, instanceID, event)
}

// --- Assignment operations ---
//
// Thin wrappers over the store that take the device lock, so
// admin-driven assignment changes serialize with polls and input
// handling for the same device.

// AssignInstance adds an instance to a device's rotation. Idempotent;
// the first assignment becomes active automatically.
func (e *Engine) AssignInstance(ctx context.Context, deviceID, instanceID string) (AssignResult, error) {
	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()
	result, err := e.store.Assign(ctx, deviceID, instanceID)
	if err != nil {
		return AssignResult{}, err
	}
	if result.Created {
		e.logger.Info("instance assigned",
			"device_id", deviceID,
			"instance_id", instanceID,
			"became_active", result.BecameActive)
	}
	return result, nil
}

// UnassignInstance removes an instance from a device's rotation and
// returns the resulting active instance ID (empty when none remain).
func (e *Engine) UnassignInstance(ctx context.Context, deviceID, instanceID string) (string, error) {
	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()
	active, err := e.store.Unassign(ctx, deviceID, instanceID)
	if err != nil {
		return "", err
	}
	e.logger.Info("instance unassigned",
		"device_id", deviceID,
		"instance_id", instanceID,
		"active_instance_id", active)
	return active, nil
}

// SetActiveInstance makes an already-assigned instance the one the
// device displays.
func (e *Engine) SetActiveInstance(ctx context.Context, deviceID, instanceID string) error {
	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()
	return e.store.SetActiveInstance(ctx, deviceID, instanceID)
}

// CycleActiveInstance rotates the device's active instance through its
// assignments in position order. direction is +1 for next, -1 for
// previous. Returns the resulting active instance ID and whether
// anything changed.
func (e *Engine) CycleActiveInstance(ctx context.Context, deviceID string, direction int) (string, bool, error) {
	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()
	return e.store.CycleActive(ctx, deviceID, direction)
}
