// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package brokerclient

import (
	"time"

	"github.com/slateworks/slate/lib/schema/display"
)

// Device is a display device as the admin API reports it.
type Device struct {
	DeviceID         string               `json:"device_id"`
	HardwareID       string               `json:"hardware_id"`
	FirmwareVersion  string               `json:"firmware_version,omitempty"`
	Display          display.Capabilities `json:"display"`
	AuthStatus       display.AuthStatus   `json:"auth_status"`
	ActiveInstanceID string               `json:"active_instance_id,omitempty"`
	CurrentFrameID   string               `json:"current_frame_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	AuthorizedAt     *time.Time           `json:"authorized_at,omitempty"`
	LastSeenAt       *time.Time           `json:"last_seen_at,omitempty"`
}

// Assignment is one entry in a device's instance rotation, ordered by
// Position.
type Assignment struct {
	InstanceID string `json:"instance_id"`
	Position   int64  `json:"position"`
}

// DeviceDetail is a device together with its assignment list.
type DeviceDetail struct {
	Device
	Assignments []Assignment `json:"assignments"`
}

// Instance is an HLSS instance as the admin API reports it.
// AccessToken is set only in the create response; every other read
// returns it empty.
type Instance struct {
	InstanceID         string            `json:"instance_id"`
	Name               string            `json:"name"`
	TypeID             string            `json:"type_id"`
	AccessToken        string            `json:"access_token,omitempty"`
	Lifecycle          display.Lifecycle `json:"lifecycle"`
	NeedsConfiguration bool              `json:"needs_configuration"`
	ConfigurationURL   string            `json:"configuration_url,omitempty"`
	ActiveScreen       string            `json:"active_screen,omitempty"`
	LastError          string            `json:"last_error,omitempty"`
	DisplayWidth       int               `json:"display_width,omitempty"`
	DisplayHeight      int               `json:"display_height,omitempty"`
	DisplayBitDepth    int               `json:"display_bit_depth,omitempty"`
	Dirty              bool              `json:"dirty"`
	CreatedAt          time.Time         `json:"created_at"`
	InitializedAt      *time.Time        `json:"initialized_at,omitempty"`
}

// HLSSType is a backend service type as the admin API reports it. The
// auth token never appears in responses.
type HLSSType struct {
	TypeID          string    `json:"type_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	BaseURL         string    `json:"base_url"`
	DefaultWidth    int       `json:"default_width,omitempty"`
	DefaultHeight   int       `json:"default_height,omitempty"`
	DefaultBitDepth int       `json:"default_bit_depth,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateHLSSTypeRequest registers a new backend service type. TypeID,
// Name, and BaseURL are required. IsActive defaults to true when nil.
type CreateHLSSTypeRequest struct {
	TypeID          string `json:"type_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	BaseURL         string `json:"base_url"`
	AuthToken       string `json:"auth_token,omitempty"`
	DefaultWidth    int    `json:"default_width,omitempty"`
	DefaultHeight   int    `json:"default_height,omitempty"`
	DefaultBitDepth int    `json:"default_bit_depth,omitempty"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

// UpdateHLSSTypeRequest patches an HLSS type. Nil fields are left
// unchanged.
type UpdateHLSSTypeRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	BaseURL         *string `json:"base_url,omitempty"`
	AuthToken       *string `json:"auth_token,omitempty"`
	DefaultWidth    *int    `json:"default_width,omitempty"`
	DefaultHeight   *int    `json:"default_height,omitempty"`
	DefaultBitDepth *int    `json:"default_bit_depth,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// CreateInstanceRequest creates an instance of an HLSS type. Name and
// TypeID are required; the display fields override the type's default
// geometry; AutoInitialize runs the init handshake immediately after
// creation.
type CreateInstanceRequest struct {
	Name            string `json:"name"`
	TypeID          string `json:"type_id"`
	DisplayWidth    int    `json:"display_width,omitempty"`
	DisplayHeight   int    `json:"display_height,omitempty"`
	DisplayBitDepth int    `json:"display_bit_depth,omitempty"`
	AutoInitialize  bool   `json:"auto_initialize,omitempty"`
}

// UpdateInstanceRequest patches an instance. Nil fields are left
// unchanged.
type UpdateInstanceRequest struct {
	Name            *string `json:"name,omitempty"`
	DisplayWidth    *int    `json:"display_width,omitempty"`
	DisplayHeight   *int    `json:"display_height,omitempty"`
	DisplayBitDepth *int    `json:"display_bit_depth,omitempty"`
}

// RegistryCounts groups the broker's device, instance, and input event
// totals.
type RegistryCounts struct {
	DevicesByStatus      map[string]int64 `json:"devices_by_status"`
	InstancesByLifecycle map[string]int64 `json:"instances_by_lifecycle"`
	InputEvents          int64            `json:"input_events"`
}

// FrameStats is the frame store's size summary.
type FrameStats struct {
	FrameCount  int64 `json:"frame_count"`
	TotalBytes  int64 `json:"total_bytes"`
	StoredBytes int64 `json:"stored_bytes"`
}

// BrokerStatus is the admin status snapshot.
type BrokerStatus struct {
	Version  string         `json:"version"`
	Uptime   string         `json:"uptime"`
	Registry RegistryCounts `json:"registry"`
	Frames   FrameStats     `json:"frames"`
}

// FrameSync is the two-sided frame comparison for one instance: what
// the broker holds against what the backend claims.
type FrameSync struct {
	InstanceID   string `json:"instance_id"`
	InstanceName string `json:"instance_name"`

	BrokerHasFrame  bool   `json:"broker_has_frame"`
	BrokerFrameHash string `json:"broker_frame_hash,omitempty"`

	BackendHasFrame  bool   `json:"backend_has_frame"`
	BackendFrameHash string `json:"backend_frame_hash,omitempty"`

	InSync      bool   `json:"in_sync"`
	ActionTaken string `json:"action_taken,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AssignResult is the outcome of an assign-instance call.
type AssignResult struct {
	// Created is false when the instance was already assigned.
	Created bool `json:"created"`

	// BecameActive is true when this assignment became the device's
	// active instance (the first assignment always does).
	BecameActive bool `json:"became_active"`
}

// CycleResult is the outcome of a cycle call.
type CycleResult struct {
	// Cycled is false when the device has fewer than two assignments.
	Cycled bool `json:"cycled"`

	// ActiveInstanceID is the active instance after the call.
	ActiveInstanceID string `json:"active_instance_id,omitempty"`
}
