// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/schema/display"
)

// HLSSType describes one backend service the broker can host instances
// of. The type ID is operator-chosen (e.g. "weather", "ticker") and
// stable across environments so seed files can reference it.
type HLSSType struct {
	TypeID      string
	Name        string
	Description string

	// BaseURL is the backend's root; the broker appends
	// /instances/... to it.
	BaseURL string

	// AuthToken, when set, is sent as a bearer token on every
	// broker→backend call for instances of this type.
	AuthToken string

	// Default display geometry for instances of this type. Zero means
	// unset; resolution falls through to the device fleet default.
	DefaultWidth    int
	DefaultHeight   int
	DefaultBitDepth int

	// IsActive gates new instance creation. Deactivated types keep
	// serving their existing instances.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HLSSTypePatch carries a partial update. Nil fields are left alone.
type HLSSTypePatch struct {
	Name            *string
	Description     *string
	BaseURL         *string
	AuthToken       *string
	DefaultWidth    *int
	DefaultHeight   *int
	DefaultBitDepth *int
	IsActive        *bool
}

// Instance is one session of a backend service, displayable on any
// number of devices.
type Instance struct {
	InstanceID string
	Name       string
	TypeID     string

	// AccessToken is the opaque bearer secret the backend must
	// present on inbound calls (frame submit, notify).
	AccessToken string

	Lifecycle          display.Lifecycle
	NeedsConfiguration bool
	ConfigurationURL   string
	ActiveScreen       string

	// LastError records why the most recent initialization attempt
	// failed. Cleared on success.
	LastError string

	// Display geometry overrides. Zero means inherit the type
	// default.
	DisplayWidth    int
	DisplayHeight   int
	DisplayBitDepth int

	// Dirty is set by backend notify and cleared by frame
	// submission; it tells the delivery side new content is pending.
	Dirty bool

	CreatedAt     time.Time
	UpdatedAt     time.Time
	InitializedAt time.Time // zero until the first successful init
}

// InstancePatch carries a partial update. Nil fields are left alone.
type InstancePatch struct {
	Name            *string
	DisplayWidth    *int
	DisplayHeight   *int
	DisplayBitDepth *int
}

// --- HLSS types ---

const hlssTypeColumns = `type_id, name, description, base_url, auth_token,
	default_width, default_height, default_bit_depth, is_active,
	created_at, updated_at`

// CreateHLSSType registers a backend type. Returns ErrConflictingState
// (wrapped) when the type ID is taken.
func (s *Store) CreateHLSSType(ctx context.Context, t HLSSType) (HLSSType, error) {
	if t.TypeID == "" {
		return HLSSType{}, fmt.Errorf("registry: create hlss type: type id is required")
	}
	if t.BaseURL == "" {
		return HLSSType{}, fmt.Errorf("registry: create hlss type: base url is required")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: create hlss type: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var taken bool
	err = sqlitex.Execute(conn, `SELECT 1 FROM hlss_types WHERE type_id = ?`,
		&sqlitex.ExecOptions{
			Args:       []any{t.TypeID},
			ResultFunc: func(*sqlite.Stmt) error { taken = true; return nil },
		})
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: checking type id: %w", err)
	}
	if taken {
		return HLSSType{}, fmt.Errorf("hlss type %q already exists: %w", t.TypeID, ErrConflictingState)
	}

	now := s.clock.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	err = sqlitex.Execute(conn, `INSERT INTO hlss_types
		(type_id, name, description, base_url, auth_token,
		 default_width, default_height, default_bit_depth, is_active,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			t.TypeID, t.Name, t.Description, t.BaseURL, t.AuthToken,
			intOrNull(t.DefaultWidth), intOrNull(t.DefaultHeight), intOrNull(t.DefaultBitDepth),
			boolToInt(t.IsActive),
			now.Unix(), now.Unix(),
		},
	})
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: insert hlss type: %w", err)
	}

	s.logger.Info("hlss type created", "type", t.TypeID, "base_url", t.BaseURL)
	return t, nil
}

// HLSSTypeByID fetches a backend type.
func (s *Store) HLSSTypeByID(ctx context.Context, typeID string) (HLSSType, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return HLSSType{}, false, fmt.Errorf("registry: hlss type lookup: %w", err)
	}
	defer s.pool.Put(conn)
	return hlssTypeLocked(conn, typeID)
}

func hlssTypeLocked(conn *sqlite.Conn, typeID string) (HLSSType, bool, error) {
	var t HLSSType
	var found bool
	err := sqlitex.Execute(conn,
		`SELECT `+hlssTypeColumns+` FROM hlss_types WHERE type_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{typeID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				t = scanHLSSType(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return HLSSType{}, false, fmt.Errorf("registry: hlss type lookup: %w", err)
	}
	return t, found, nil
}

// ListHLSSTypes returns all backend types ordered by creation time.
func (s *Store) ListHLSSTypes(ctx context.Context) ([]HLSSType, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list hlss types: %w", err)
	}
	defer s.pool.Put(conn)

	var types []HLSSType
	err = sqlitex.Execute(conn,
		`SELECT `+hlssTypeColumns+` FROM hlss_types ORDER BY created_at, type_id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				types = append(types, scanHLSSType(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: list hlss types: %w", err)
	}
	return types, nil
}

// UpdateHLSSType applies a partial update and returns the result.
func (s *Store) UpdateHLSSType(ctx context.Context, typeID string, patch HLSSTypePatch) (HLSSType, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: update hlss type: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	t, found, err := hlssTypeLocked(conn, typeID)
	if err != nil {
		return HLSSType{}, err
	}
	if !found {
		return HLSSType{}, fmt.Errorf("hlss type %s: %w", typeID, ErrNotFound)
	}

	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.BaseURL != nil {
		t.BaseURL = *patch.BaseURL
	}
	if patch.AuthToken != nil {
		t.AuthToken = *patch.AuthToken
	}
	if patch.DefaultWidth != nil {
		t.DefaultWidth = *patch.DefaultWidth
	}
	if patch.DefaultHeight != nil {
		t.DefaultHeight = *patch.DefaultHeight
	}
	if patch.DefaultBitDepth != nil {
		t.DefaultBitDepth = *patch.DefaultBitDepth
	}
	if patch.IsActive != nil {
		t.IsActive = *patch.IsActive
	}
	t.UpdatedAt = s.clock.Now()

	err = sqlitex.Execute(conn, `UPDATE hlss_types SET
		name = ?, description = ?, base_url = ?, auth_token = ?,
		default_width = ?, default_height = ?, default_bit_depth = ?,
		is_active = ?, updated_at = ?
		WHERE type_id = ?`, &sqlitex.ExecOptions{
		Args: []any{
			t.Name, t.Description, t.BaseURL, t.AuthToken,
			intOrNull(t.DefaultWidth), intOrNull(t.DefaultHeight), intOrNull(t.DefaultBitDepth),
			boolToInt(t.IsActive), t.UpdatedAt.Unix(),
			typeID,
		},
	})
	if err != nil {
		return HLSSType{}, fmt.Errorf("registry: update hlss type: %w", err)
	}
	return t, nil
}

// DeleteHLSSType removes a backend type. Returns ErrConflictingState
// (wrapped) while instances still reference it.
func (s *Store) DeleteHLSSType(ctx context.Context, typeID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: delete hlss type: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var inUse int64
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM instances WHERE type_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{typeID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				inUse = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("registry: counting instances: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("hlss type %s has %d instances: %w", typeID, inUse, ErrConflictingState)
	}

	err = sqlitex.Execute(conn, `DELETE FROM hlss_types WHERE type_id = ?`,
		&sqlitex.ExecOptions{Args: []any{typeID}})
	if err != nil {
		return fmt.Errorf("registry: delete hlss type: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("hlss type %s: %w", typeID, ErrNotFound)
	}

	s.logger.Info("hlss type deleted", "type", typeID)
	return nil
}

func scanHLSSType(stmt *sqlite.Stmt) HLSSType {
	return HLSSType{
		TypeID:          stmt.ColumnText(0),
		Name:            stmt.ColumnText(1),
		Description:     stmt.ColumnText(2),
		BaseURL:         stmt.ColumnText(3),
		AuthToken:       stmt.ColumnText(4),
		DefaultWidth:    stmt.ColumnInt(5),
		DefaultHeight:   stmt.ColumnInt(6),
		DefaultBitDepth: stmt.ColumnInt(7),
		IsActive:        stmt.ColumnInt(8) != 0,
		CreatedAt:       time.Unix(stmt.ColumnInt64(9), 0).UTC(),
		UpdatedAt:       time.Unix(stmt.ColumnInt64(10), 0).UTC(),
	}
}

// --- Instances ---

const instanceColumns = `instance_id, name, type_id, access_token, lifecycle,
	needs_configuration, configuration_url, active_screen, last_error,
	display_width, display_height, display_bit_depth, dirty,
	created_at, updated_at, initialized_at`

// CreateInstanceParams are the inputs for creating an instance. The
// access token is generated by the caller so credential policy stays
// out of the storage layer.
type CreateInstanceParams struct {
	Name        string
	TypeID      string
	AccessToken string

	// Optional display overrides; zero inherits the type default.
	DisplayWidth    int
	DisplayHeight   int
	DisplayBitDepth int
}

// CreateInstance creates an instance in the pending state. Returns
// ErrNotFound when the type does not exist and ErrConflictingState when
// the type is deactivated.
func (s *Store) CreateInstance(ctx context.Context, params CreateInstanceParams) (Instance, error) {
	if params.Name == "" {
		return Instance{}, fmt.Errorf("registry: create instance: name is required")
	}
	if params.AccessToken == "" {
		return Instance{}, fmt.Errorf("registry: create instance: access token is required")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: create instance: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	hlssType, found, err := hlssTypeLocked(conn, params.TypeID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("hlss type %s: %w", params.TypeID, ErrNotFound)
	}
	if !hlssType.IsActive {
		return Instance{}, fmt.Errorf("hlss type %s is not active: %w", params.TypeID, ErrConflictingState)
	}

	now := s.clock.Now()
	instance := Instance{
		InstanceID:      frame.NewInstanceID(),
		Name:            params.Name,
		TypeID:          params.TypeID,
		AccessToken:     params.AccessToken,
		Lifecycle:       display.LifecyclePending,
		DisplayWidth:    params.DisplayWidth,
		DisplayHeight:   params.DisplayHeight,
		DisplayBitDepth: params.DisplayBitDepth,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = sqlitex.Execute(conn, `INSERT INTO instances
		(instance_id, name, type_id, access_token, lifecycle,
		 display_width, display_height, display_bit_depth,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			instance.InstanceID, instance.Name, instance.TypeID,
			instance.AccessToken, string(instance.Lifecycle),
			intOrNull(instance.DisplayWidth), intOrNull(instance.DisplayHeight), intOrNull(instance.DisplayBitDepth),
			now.Unix(), now.Unix(),
		},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("registry: insert instance: %w", err)
	}

	s.logger.Info("instance created",
		"instance", instance.InstanceID,
		"name", instance.Name,
		"type", instance.TypeID,
	)
	return instance, nil
}

// InstanceByID fetches an instance.
func (s *Store) InstanceByID(ctx context.Context, instanceID string) (Instance, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Instance{}, false, fmt.Errorf("registry: instance lookup: %w", err)
	}
	defer s.pool.Put(conn)
	return instanceLocked(conn, instanceID)
}

func instanceLocked(conn *sqlite.Conn, instanceID string) (Instance, bool, error) {
	var instance Instance
	var found bool
	err := sqlitex.Execute(conn,
		`SELECT `+instanceColumns+` FROM instances WHERE instance_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{instanceID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				instance = scanInstance(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Instance{}, false, fmt.Errorf("registry: instance lookup: %w", err)
	}
	return instance, found, nil
}

// ListInstances returns all instances, optionally filtered by type
// (empty typeID means all), ordered by creation time.
func (s *Store) ListInstances(ctx context.Context, typeID string) ([]Instance, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list instances: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	if typeID != "" {
		query += ` WHERE type_id = ?`
		args = append(args, typeID)
	}
	query += ` ORDER BY created_at, instance_id`

	var instances []Instance
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			instances = append(instances, scanInstance(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: list instances: %w", err)
	}
	return instances, nil
}

// UpdateInstance applies a partial update and returns the result.
func (s *Store) UpdateInstance(ctx context.Context, instanceID string, patch InstancePatch) (Instance, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: update instance: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	instance, found, err := instanceLocked(conn, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}

	if patch.Name != nil {
		instance.Name = *patch.Name
	}
	if patch.DisplayWidth != nil {
		instance.DisplayWidth = *patch.DisplayWidth
	}
	if patch.DisplayHeight != nil {
		instance.DisplayHeight = *patch.DisplayHeight
	}
	if patch.DisplayBitDepth != nil {
		instance.DisplayBitDepth = *patch.DisplayBitDepth
	}
	instance.UpdatedAt = s.clock.Now()

	err = sqlitex.Execute(conn, `UPDATE instances SET
		name = ?, display_width = ?, display_height = ?, display_bit_depth = ?,
		updated_at = ?
		WHERE instance_id = ?`, &sqlitex.ExecOptions{
		Args: []any{
			instance.Name,
			intOrNull(instance.DisplayWidth), intOrNull(instance.DisplayHeight), intOrNull(instance.DisplayBitDepth),
			instance.UpdatedAt.Unix(),
			instanceID,
		},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("registry: update instance: %w", err)
	}
	return instance, nil
}

// MarkInstanceInitializing moves an instance into the initializing
// state ahead of the backend init call. Safe from any state; explicit
// re-initialization is always allowed.
func (s *Store) MarkInstanceInitializing(ctx context.Context, instanceID string) error {
	return s.updateInstanceState(ctx, instanceID, "mark initializing",
		`UPDATE instances SET lifecycle = ?, updated_at = ? WHERE instance_id = ?`,
		string(display.LifecycleInitializing))
}

// CompleteInstanceInit records a successful backend initialization:
// lifecycle becomes needs_configuration or ready, initialized_at is
// stamped, and any previous init error is cleared.
func (s *Store) CompleteInstanceInit(ctx context.Context, instanceID string, needsConfiguration bool, configurationURL string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: complete init: %w", err)
	}
	defer s.pool.Put(conn)

	lifecycle := display.LifecycleReady
	if needsConfiguration {
		lifecycle = display.LifecycleNeedsConfig
	}
	now := s.clock.Now().Unix()

	err = sqlitex.Execute(conn, `UPDATE instances SET
		lifecycle = ?, needs_configuration = ?, configuration_url = ?,
		last_error = NULL, initialized_at = ?, updated_at = ?
		WHERE instance_id = ?`, &sqlitex.ExecOptions{
		Args: []any{
			string(lifecycle), boolToInt(needsConfiguration), textOrNull(configurationURL),
			now, now,
			instanceID,
		},
	})
	if err != nil {
		return fmt.Errorf("registry: complete init: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}

	s.logger.Info("instance initialized", "instance", instanceID, "lifecycle", string(lifecycle))
	return nil
}

// FailInstanceInit records an initialization failure. The instance
// stays in the initializing state so the failure is visible and a
// retry is the obvious next step.
func (s *Store) FailInstanceInit(ctx context.Context, instanceID, cause string) error {
	return s.updateInstanceState(ctx, instanceID, "fail init",
		`UPDATE instances SET last_error = ?, updated_at = ? WHERE instance_id = ?`,
		cause)
}

// UpdateInstanceBackendStatus applies the result of a backend status
// poll. Ready flips the lifecycle to ready (the only way out of
// needs_configuration); a not-ready, not-configuring report leaves the
// lifecycle alone since the backend is still working.
func (s *Store) UpdateInstanceBackendStatus(ctx context.Context, instanceID string, ready, needsConfiguration bool, configurationURL, activeScreen string) (Instance, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: update backend status: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Instance{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	instance, found, err := instanceLocked(conn, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if !found {
		return Instance{}, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}

	instance.NeedsConfiguration = needsConfiguration
	instance.ConfigurationURL = configurationURL
	instance.ActiveScreen = activeScreen
	switch {
	case ready:
		instance.Lifecycle = display.LifecycleReady
	case needsConfiguration:
		instance.Lifecycle = display.LifecycleNeedsConfig
	}
	instance.UpdatedAt = s.clock.Now()

	err = sqlitex.Execute(conn, `UPDATE instances SET
		lifecycle = ?, needs_configuration = ?, configuration_url = ?,
		active_screen = ?, updated_at = ?
		WHERE instance_id = ?`, &sqlitex.ExecOptions{
		Args: []any{
			string(instance.Lifecycle), boolToInt(instance.NeedsConfiguration),
			textOrNull(instance.ConfigurationURL), textOrNull(instance.ActiveScreen),
			instance.UpdatedAt.Unix(),
			instanceID,
		},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("registry: update backend status: %w", err)
	}
	return instance, nil
}

// SetInstanceDirty sets or clears the pending-content marker.
func (s *Store) SetInstanceDirty(ctx context.Context, instanceID string, dirty bool) error {
	return s.updateInstanceState(ctx, instanceID, "set dirty",
		`UPDATE instances SET dirty = ?, updated_at = ? WHERE instance_id = ?`,
		boolToInt(dirty))
}

// updateInstanceState runs a single-column instance update of the shape
// `UPDATE instances SET <col> = ?, updated_at = ? WHERE instance_id = ?`.
func (s *Store) updateInstanceState(ctx context.Context, instanceID, op, query string, value any) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: %s: %w", op, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{value, s.clock.Now().Unix(), instanceID},
	})
	if err != nil {
		return fmt.Errorf("registry: %s: %w", op, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}
	return nil
}

// DeleteInstance removes an instance and everything hanging off it:
// its assignments, any device active pointers to it, and — given the
// instance's frame IDs from the frame store — any device current-frame
// pointers into its frame history. Frame rows themselves live in the
// frame store and are deleted by the engine.
func (s *Store) DeleteInstance(ctx context.Context, instanceID string, frameIDs []string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: delete instance: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `DELETE FROM instances WHERE instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{instanceID}})
	if err != nil {
		return fmt.Errorf("registry: delete instance: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}

	err = sqlitex.Execute(conn, `DELETE FROM assignments WHERE instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{instanceID}})
	if err != nil {
		return fmt.Errorf("registry: delete assignments: %w", err)
	}

	err = sqlitex.Execute(conn,
		`UPDATE devices SET active_instance_id = NULL, updated_at = ? WHERE active_instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{s.clock.Now().Unix(), instanceID}})
	if err != nil {
		return fmt.Errorf("registry: clear active pointers: %w", err)
	}

	if len(frameIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(frameIDs)), ", ")
		args := make([]any, 0, len(frameIDs)+1)
		args = append(args, s.clock.Now().Unix())
		for _, id := range frameIDs {
			args = append(args, id)
		}
		err = sqlitex.Execute(conn,
			`UPDATE devices SET current_frame_id = NULL, updated_at = ?
			 WHERE current_frame_id IN (`+placeholders+`)`,
			&sqlitex.ExecOptions{Args: args})
		if err != nil {
			return fmt.Errorf("registry: clear frame pointers: %w", err)
		}
	}

	s.logger.Info("instance deleted", "instance", instanceID)
	return nil
}

func scanInstance(stmt *sqlite.Stmt) Instance {
	return Instance{
		InstanceID:         stmt.ColumnText(0),
		Name:               stmt.ColumnText(1),
		TypeID:             stmt.ColumnText(2),
		AccessToken:        stmt.ColumnText(3),
		Lifecycle:          display.Lifecycle(stmt.ColumnText(4)),
		NeedsConfiguration: stmt.ColumnInt(5) != 0,
		ConfigurationURL:   stmt.ColumnText(6),
		ActiveScreen:       stmt.ColumnText(7),
		LastError:          stmt.ColumnText(8),
		DisplayWidth:       stmt.ColumnInt(9),
		DisplayHeight:      stmt.ColumnInt(10),
		DisplayBitDepth:    stmt.ColumnInt(11),
		Dirty:              stmt.ColumnInt(12) != 0,
		CreatedAt:          time.Unix(stmt.ColumnInt64(13), 0).UTC(),
		UpdatedAt:          time.Unix(stmt.ColumnInt64(14), 0).UTC(),
		InitializedAt:      unixOrZero(stmt, 15),
	}
}

// intOrNull maps zero to NULL for nullable integer columns.
func intOrNull(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
