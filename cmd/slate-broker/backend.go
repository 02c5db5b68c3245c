// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/framestore"
	"github.com/slateworks/slate/lib/hlss"
	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/service"
)

// geometryFor translates panel capabilities into the frame geometry
// submissions must match.
func geometryFor(capabilities display.Capabilities) frame.Geometry {
	return frame.Geometry{
		Width:        capabilities.Width,
		Height:       capabilities.Height,
		BitsPerPixel: capabilities.BitDepth,
	}
}

// NewInstanceParams are the engine-level inputs for creating an
// instance. The access token is generated here, never supplied.
type NewInstanceParams struct {
	Name            string
	TypeID          string
	DisplayWidth    int
	DisplayHeight   int
	DisplayBitDepth int

	// AutoInitialize runs the backend init handshake immediately
	// after creation. A failed handshake does not fail creation; the
	// instance is left initializing with last_error set, same as an
	// explicit initialize would.
	AutoInitialize bool
}

// CreateInstance creates an instance with a fresh access token and
// optionally runs the init handshake.
func (e *Engine) CreateInstance(ctx context.Context, params NewInstanceParams) (Instance, error) {
	token, err := generateSecret()
	if err != nil {
		return Instance{}, err
	}

	instance, err := e.store.CreateInstance(ctx, CreateInstanceParams{
		Name:            params.Name,
		TypeID:          params.TypeID,
		AccessToken:     token,
		DisplayWidth:    params.DisplayWidth,
		DisplayHeight:   params.DisplayHeight,
		DisplayBitDepth: params.DisplayBitDepth,
	})
	if err != nil {
		return Instance{}, err
	}
	e.logger.Info("instance created",
		"instance_id", instance.InstanceID,
		"type_id", instance.TypeID,
		"name", instance.Name)

	if params.AutoInitialize {
		initialized, err := e.InitializeInstance(ctx, instance.InstanceID)
		if err != nil {
			e.logger.Warn("auto-initialize failed",
				"instance_id", instance.InstanceID,
				"error", err)
			// Creation succeeded; report the instance in whatever
			// state the failed handshake left it.
			current, found, lookupErr := e.store.InstanceByID(ctx, instance.InstanceID)
			if lookupErr == nil && found {
				return current, nil
			}
			return instance, nil
		}
		return initialized, nil
	}
	return instance, nil
}

// InitializeInstance runs the init handshake with the instance's
// backend: the backend learns the instance ID, the broker callback
// URLs, and the panel geometry to render for.
//
// On success the lifecycle lands on ready or needs_configuration. On
// failure it stays initializing with last_error set, and the error
// wraps ErrBackendUnavailable. Safe to repeat in any state.
func (e *Engine) InitializeInstance(ctx context.Context, instanceID string) (Instance, error) {
	unlock := e.instanceLocks.acquire(instanceID)
	defer unlock()

	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}
	hlssType, found, err := e.store.HLSSTypeByID(ctx, instance.TypeID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("hlss type %q: %w", instance.TypeID, ErrNotFound)
	}

	if err := e.store.MarkInstanceInitializing(ctx, instanceID); err != nil {
		return Instance{}, err
	}

	client, err := e.backendClient(hlssType)
	if err != nil {
		return Instance{}, err
	}
	result, err := client.Initialize(ctx, instanceID, resolveDisplay(instance, hlssType))
	if err != nil {
		if failErr := e.store.FailInstanceInit(ctx, instanceID, err.Error()); failErr != nil {
			e.logger.Error("recording init failure", "instance_id", instanceID, "error", failErr)
		}
		e.logger.Warn("instance init failed",
			"instance_id", instanceID,
			"type_id", instance.TypeID,
			"error", err)
		return Instance{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.store.CompleteInstanceInit(ctx, instanceID, result.NeedsConfiguration, result.ConfigurationURL); err != nil {
		return Instance{}, err
	}
	e.logger.Info("instance initialized",
		"instance_id", instanceID,
		"needs_configuration", result.NeedsConfiguration)

	instance, _, err = e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return Instance{}, err
	}
	return instance, nil
}

// RefreshInstanceStatus reads the backend's view of an instance and
// folds it into the registry. This is the only path that moves an
// instance from needs_configuration to ready.
func (e *Engine) RefreshInstanceStatus(ctx context.Context, instanceID string) (Instance, error) {
	unlock := e.instanceLocks.acquire(instanceID)
	defer unlock()

	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}

	client, err := e.backendClientForInstance(ctx, instance)
	if err != nil {
		return Instance{}, err
	}
	status, err := client.Status(ctx, instanceID)
	if err != nil {
		return Instance{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return e.store.UpdateInstanceBackendStatus(ctx, instanceID,
		status.Ready, status.NeedsConfiguration, status.ConfigurationURL, status.ActiveScreen)
}

// DeleteInstance tears an instance down: the backend is told
// best-effort, every stored frame goes, and the registry cascades
// (assignments removed, device active/current pointers cleared).
//
// Frames are deleted before the registry row so a failure partway
// leaves a retryable state rather than orphaned frames.
func (e *Engine) DeleteInstance(ctx context.Context, instanceID string) error {
	unlock := e.instanceLocks.acquire(instanceID)
	defer unlock()

	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}

	if client, err := e.backendClientForInstance(ctx, instance); err == nil {
		if err := client.Delete(ctx, instanceID); err != nil {
			e.logger.Warn("backend delete failed",
				"instance_id", instanceID,
				"error", err)
		}
	} else {
		e.logger.Warn("backend delete skipped",
			"instance_id", instanceID,
			"error", err)
	}

	frameIDs, err := e.frames.FrameIDs(ctx, instanceID)
	if err != nil {
		return err
	}
	if _, err := e.frames.DeleteInstance(ctx, instanceID); err != nil {
		return err
	}
	if err := e.store.DeleteInstance(ctx, instanceID, frameIDs); err != nil {
		return err
	}

	e.logger.Info("instance deleted",
		"instance_id", instanceID,
		"frames_deleted", len(frameIDs))
	return nil
}

// SubmitFrame accepts a rendered framebuffer from an instance's
// backend. The bearer must match the instance's access token; the data
// must match the instance's resolved geometry exactly. Content-
// addressed: resubmitting the current latest bytes returns the existing
// frame with created false.
//
// Submission never pushes to devices — they pick the frame up on their
// next poll.
func (e *Engine) SubmitFrame(ctx context.Context, instanceID, bearer string, data []byte) (framestore.Frame, bool, error) {
	unlock := e.instanceLocks.acquire(instanceID)
	defer unlock()

	instance, hlssType, err := e.authenticateInstance(ctx, instanceID, bearer)
	if err != nil {
		return framestore.Frame{}, false, err
	}

	geometry := geometryFor(resolveDisplay(instance, hlssType))
	if len(data) != geometry.Size() {
		return framestore.Frame{}, false, fmt.Errorf("%w: %d bytes for geometry %s (want %d)",
			ErrInvalidFrame, len(data), geometry, geometry.Size())
	}

	stored, created, err := e.frames.Put(ctx, instanceID, data, geometry)
	if err != nil {
		return framestore.Frame{}, false, err
	}
	if err := e.store.SetInstanceDirty(ctx, instanceID, false); err != nil {
		return framestore.Frame{}, false, err
	}

	if created {
		e.logger.Info("frame stored",
			"instance_id", instanceID,
			"frame_id", stored.FrameID,
			"size", stored.Size)
	} else {
		e.logger.Debug("frame submission deduplicated",
			"instance_id", instanceID,
			"frame_id", stored.FrameID)
	}
	return stored, created, nil
}

// Notify records that an instance's backend has new content: the
// instance is marked dirty and a frame-send request is queued so the
// backend gets asked to submit through the normal frames callback. The
// queue is bounded; under pressure the notification is dropped, which
// is safe — the dirty flag survives and the backend can always submit
// unprompted.
func (e *Engine) Notify(ctx context.Context, instanceID, bearer string) error {
	if _, _, err := e.authenticateInstance(ctx, instanceID, bearer); err != nil {
		return err
	}
	if err := e.store.SetInstanceDirty(ctx, instanceID, true); err != nil {
		return err
	}

	select {
	case e.notifyQueue <- instanceID:
	default:
		e.logger.Warn("notify queue full, dropping frame-send request",
			"instance_id", instanceID)
	}
	return nil
}

// authenticateInstance resolves an instance and checks the presented
// bearer against its access token in constant time. Returns the type
// alongside because every authenticated caller needs the geometry or a
// backend client next.
func (e *Engine) authenticateInstance(ctx context.Context, instanceID, bearer string) (Instance, HLSSType, error) {
	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return Instance{}, HLSSType{}, err
	}
	if !found {
		return Instance{}, HLSSType{}, fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}
	if err := service.VerifyBearerToken(instance.AccessToken, bearer); err != nil {
		return Instance{}, HLSSType{}, unauthorized("instance credentials rejected")
	}
	hlssType, found, err := e.store.HLSSTypeByID(ctx, instance.TypeID)
	if err != nil {
		return Instance{}, HLSSType{}, err
	}
	if !found {
		return Instance{}, HLSSType{}, fmt.Errorf("hlss type %q: %w", instance.TypeID, ErrNotFound)
	}
	return instance, hlssType, nil
}

// FrameSyncResult compares the broker's newest stored frame for an
// instance against what its backend claims to hold.
type FrameSyncResult struct {
	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`

	BrokerHasFrame  bool   `json:"broker_has_frame"`
	BrokerFrameHash string `json:"broker_frame_hash,omitempty"`

	BackendHasFrame  bool   `json:"backend_has_frame"`
	BackendFrameHash string `json:"backend_frame_hash,omitempty"`

	// InSync is true when both sides agree: same hash, or no frame on
	// either side.
	InSync bool `json:"in_sync"`

	// ActionTaken describes what SyncFrame did, when anything.
	ActionTaken string `json:"action_taken,omitempty"`

	// Error carries a backend failure. The comparison is still
	// returned with what the broker knows; InSync is false.
	Error string `json:"error,omitempty"`
}

// FrameSyncStatus reports whether the broker and the backend hold the
// same frame for an instance. A backend failure is folded into the
// result (Error set, InSync false) rather than failing the call — the
// broker side of the comparison is still useful.
func (e *Engine) FrameSyncStatus(ctx context.Context, instanceID string) (FrameSyncResult, error) {
	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return FrameSyncResult{}, err
	}
	if !found {
		return FrameSyncResult{}, fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}
	result, _ := e.frameSyncState(ctx, instance)
	return result, nil
}

// SyncFrame brings the broker up to date when the backend holds a frame
// the broker lacks: after the same comparison FrameSyncStatus makes, an
// out-of-sync instance gets a frame-send request. The backend submits
// through the normal frames callback, so the result reports the request
// outcome, not the eventual arrival.
func (e *Engine) SyncFrame(ctx context.Context, instanceID string) (FrameSyncResult, error) {
	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil {
		return FrameSyncResult{}, err
	}
	if !found {
		return FrameSyncResult{}, fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}

	result, ok := e.frameSyncState(ctx, instance)
	if !ok {
		return result, nil
	}
	if result.InSync {
		if result.BrokerHasFrame {
			result.ActionTaken = "frames already in sync"
		} else {
			result.ActionTaken = "no frames exist on either side"
		}
		return result, nil
	}

	client, err := e.backendClientForInstance(ctx, instance)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	sendResult, err := client.RequestFrameSend(ctx, instanceID)
	if err != nil {
		result.Error = fmt.Sprintf("frame send request failed: %v", err)
		return result, nil
	}

	action := fmt.Sprintf("requested frame from backend: status=%s", sendResult.Status)
	if sendResult.FrameID != "" {
		action += fmt.Sprintf(", frame_id=%s", sendResult.FrameID)
	}

	// A backend with nothing rendered has nothing to send; ask it to
	// render so content eventually exists. Its notify callback closes
	// the loop when the frame is ready.
	if sendResult.Status == hlss.FrameSendNoFrame {
		if err := client.TriggerRender(ctx, instanceID); err != nil {
			result.Error = fmt.Sprintf("render request failed: %v", err)
		} else {
			action += ", render requested"
		}
	}
	result.ActionTaken = action
	return result, nil
}

// frameSyncState builds the two-sided comparison. ok is false when the
// backend could not be asked; the result then carries Error and only
// the broker side.
func (e *Engine) frameSyncState(ctx context.Context, instance Instance) (FrameSyncResult, bool) {
	result := FrameSyncResult{
		InstanceID:   instance.InstanceID,
		InstanceName: instance.Name,
	}

	latest, ok, err := e.frames.Latest(ctx, instance.InstanceID)
	if err != nil {
		result.Error = err.Error()
		return result, false
	}
	if ok {
		result.BrokerHasFrame = true
		result.BrokerFrameHash = latest.Hash.String()
	}

	client, err := e.backendClientForInstance(ctx, instance)
	if err != nil {
		result.Error = err.Error()
		return result, false
	}
	metadata, err := client.FrameMetadata(ctx, instance.InstanceID)
	if err != nil {
		result.Error = fmt.Sprintf("backend frame status unavailable: %v", err)
		return result, false
	}

	result.BackendHasFrame = metadata.HasFrame
	result.BackendFrameHash = metadata.FrameHash

	switch {
	case !result.BrokerHasFrame && !result.BackendHasFrame:
		result.InSync = true
	case result.BrokerHasFrame && result.BackendHasFrame &&
		result.BrokerFrameHash == result.BackendFrameHash:
		result.InSync = true
	}
	return result, true
}
