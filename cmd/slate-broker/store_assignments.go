// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Assignment is one edge of the device↔instance relation. Position is
// a per-device counter in creation order; cycling walks it.
type Assignment struct {
	DeviceID   string
	InstanceID string
	Position   int64
	CreatedAt  time.Time
}

// AssignResult reports what Assign changed.
type AssignResult struct {
	// Created is false when the pair already existed (idempotent
	// re-assign).
	Created bool

	// BecameActive is true when this was the device's first
	// assignment and it was activated automatically.
	BecameActive bool
}

// Assign links an instance to a device. The device's first assignment
// becomes active automatically; re-assigning an existing pair is a
// no-op. Returns ErrNotFound when either side is missing.
func (s *Store) Assign(ctx context.Context, deviceID, instanceID string) (AssignResult, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return AssignResult{}, fmt.Errorf("registry: assign: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return AssignResult{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	device, found, err := s.deviceWhereLocked(conn, "device_id", deviceID)
	if err != nil {
		return AssignResult{}, err
	}
	if !found {
		return AssignResult{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if _, found, err = instanceLocked(conn, instanceID); err != nil {
		return AssignResult{}, err
	} else if !found {
		return AssignResult{}, fmt.Errorf("instance %s: %w", instanceID, ErrNotFound)
	}

	assignments, err := assignmentsLocked(conn, deviceID)
	if err != nil {
		return AssignResult{}, err
	}
	for _, a := range assignments {
		if a.InstanceID == instanceID {
			return AssignResult{}, nil
		}
	}

	var position int64 = 1
	if n := len(assignments); n > 0 {
		position = assignments[n-1].Position + 1
	}
	now := s.clock.Now().Unix()

	err = sqlitex.Execute(conn, `INSERT INTO assignments
		(device_id, instance_id, position, created_at) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{deviceID, instanceID, position, now}})
	if err != nil {
		return AssignResult{}, fmt.Errorf("registry: insert assignment: %w", err)
	}

	result := AssignResult{Created: true}
	if len(assignments) == 0 && device.ActiveInstanceID == "" {
		if err = setActiveLocked(conn, deviceID, instanceID, now); err != nil {
			return AssignResult{}, err
		}
		result.BecameActive = true
	}

	s.logger.Info("instance assigned",
		"device", deviceID,
		"instance", instanceID,
		"active", result.BecameActive,
	)
	return result, nil
}

// Unassign removes a device↔instance pair. When the unassigned
// instance was active, the next remaining assignment in creation order
// is promoted (or the active pointer clears). Returns the device's
// resulting active instance ID, and ErrInvalidAssignment when the pair
// does not exist.
func (s *Store) Unassign(ctx context.Context, deviceID, instanceID string) (string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("registry: unassign: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`DELETE FROM assignments WHERE device_id = ? AND instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{deviceID, instanceID}})
	if err != nil {
		return "", fmt.Errorf("registry: delete assignment: %w", err)
	}
	if conn.Changes() == 0 {
		return "", fmt.Errorf("instance %s not assigned to device %s: %w", instanceID, deviceID, ErrInvalidAssignment)
	}

	device, found, err := s.deviceWhereLocked(conn, "device_id", deviceID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if device.ActiveInstanceID != instanceID {
		return device.ActiveInstanceID, nil
	}

	// The active instance went away; promote the oldest survivor.
	remaining, err := assignmentsLocked(conn, deviceID)
	if err != nil {
		return "", err
	}
	next := ""
	if len(remaining) > 0 {
		next = remaining[0].InstanceID
	}
	if err = setActiveLocked(conn, deviceID, next, s.clock.Now().Unix()); err != nil {
		return "", err
	}

	s.logger.Info("instance unassigned",
		"device", deviceID,
		"instance", instanceID,
		"promoted", next,
	)
	return next, nil
}

// SetActiveInstance makes an assigned instance the one the device
// displays. Returns ErrInvalidAssignment when the pair does not exist.
func (s *Store) SetActiveInstance(ctx context.Context, deviceID, instanceID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: set active: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var assigned bool
	err = sqlitex.Execute(conn,
		`SELECT 1 FROM assignments WHERE device_id = ? AND instance_id = ?`,
		&sqlitex.ExecOptions{
			Args:       []any{deviceID, instanceID},
			ResultFunc: func(*sqlite.Stmt) error { assigned = true; return nil },
		})
	if err != nil {
		return fmt.Errorf("registry: checking assignment: %w", err)
	}
	if !assigned {
		return fmt.Errorf("instance %s not assigned to device %s: %w", instanceID, deviceID, ErrInvalidAssignment)
	}

	err = setActiveLocked(conn, deviceID, instanceID, s.clock.Now().Unix())
	return err
}

// CycleActive moves the device's active pointer through its
// assignments in position order, wrapping at the ends. Direction is +1
// for next, -1 for previous. A device with fewer than two assignments
// keeps its current state (cycled=false). A device whose active
// pointer is unset lands on its first assignment.
func (s *Store) CycleActive(ctx context.Context, deviceID string, direction int) (string, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", false, fmt.Errorf("registry: cycle: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", false, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	device, found, err := s.deviceWhereLocked(conn, "device_id", deviceID)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	assignments, err := assignmentsLocked(conn, deviceID)
	if err != nil {
		return "", false, err
	}
	if len(assignments) == 0 {
		return "", false, nil
	}
	if len(assignments) == 1 {
		// Self-heal a missing active pointer, otherwise no-op.
		if device.ActiveInstanceID == "" {
			only := assignments[0].InstanceID
			if err = setActiveLocked(conn, deviceID, only, s.clock.Now().Unix()); err != nil {
				return "", false, err
			}
			return only, true, nil
		}
		return device.ActiveInstanceID, false, nil
	}

	current := -1
	for i, a := range assignments {
		if a.InstanceID == device.ActiveInstanceID {
			current = i
			break
		}
	}
	var next int
	if current < 0 {
		next = 0
	} else {
		n := len(assignments)
		next = (current + direction%n + n) % n
	}

	target := assignments[next].InstanceID
	if err = setActiveLocked(conn, deviceID, target, s.clock.Now().Unix()); err != nil {
		return "", false, err
	}

	s.logger.Info("active instance cycled",
		"device", deviceID,
		"direction", direction,
		"active", target,
	)
	return target, true, nil
}

// AssignmentsForDevice returns a device's assignments in position
// order.
func (s *Store) AssignmentsForDevice(ctx context.Context, deviceID string) ([]Assignment, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list assignments: %w", err)
	}
	defer s.pool.Put(conn)
	return assignmentsLocked(conn, deviceID)
}

func assignmentsLocked(conn *sqlite.Conn, deviceID string) ([]Assignment, error) {
	var assignments []Assignment
	err := sqlitex.Execute(conn, `SELECT device_id, instance_id, position, created_at
		FROM assignments WHERE device_id = ? ORDER BY position`,
		&sqlitex.ExecOptions{
			Args: []any{deviceID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				assignments = append(assignments, Assignment{
					DeviceID:   stmt.ColumnText(0),
					InstanceID: stmt.ColumnText(1),
					Position:   stmt.ColumnInt64(2),
					CreatedAt:  time.Unix(stmt.ColumnInt64(3), 0).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: list assignments: %w", err)
	}
	return assignments, nil
}

// setActiveLocked writes the device's active pointer on an already-held
// transaction connection. An empty instanceID clears it.
func setActiveLocked(conn *sqlite.Conn, deviceID, instanceID string, now int64) error {
	err := sqlitex.Execute(conn,
		`UPDATE devices SET active_instance_id = ?, updated_at = ? WHERE device_id = ?`,
		&sqlitex.ExecOptions{Args: []any{textOrNull(instanceID), now, deviceID}})
	if err != nil {
		return fmt.Errorf("registry: set active pointer: %w", err)
	}
	return nil
}
