// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/sqlitepool"
)

// registrySchema is applied to every connection on open. All timestamps
// are unix seconds; NULL integer timestamps mean "never".
const registrySchema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id               TEXT PRIMARY KEY,
	hardware_id             TEXT NOT NULL UNIQUE,
	device_secret           TEXT NOT NULL,
	firmware_version        TEXT NOT NULL DEFAULT '',
	display_width           INTEGER NOT NULL,
	display_height          INTEGER NOT NULL,
	display_bit_depth       INTEGER NOT NULL,
	display_partial_refresh INTEGER NOT NULL DEFAULT 0,
	auth_status             TEXT NOT NULL,
	current_refresh_jti     TEXT,
	active_instance_id      TEXT,
	current_frame_id        TEXT,
	created_at              INTEGER NOT NULL,
	updated_at              INTEGER NOT NULL,
	authorized_at           INTEGER,
	last_seen_at            INTEGER
);

CREATE TABLE IF NOT EXISTS hlss_types (
	type_id           TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	base_url          TEXT NOT NULL,
	auth_token        TEXT NOT NULL DEFAULT '',
	default_width     INTEGER,
	default_height    INTEGER,
	default_bit_depth INTEGER,
	is_active         INTEGER NOT NULL DEFAULT 1,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS instances (
	instance_id         TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	type_id             TEXT NOT NULL,
	access_token        TEXT NOT NULL,
	lifecycle           TEXT NOT NULL,
	needs_configuration INTEGER NOT NULL DEFAULT 0,
	configuration_url   TEXT,
	active_screen       TEXT,
	last_error          TEXT,
	display_width       INTEGER,
	display_height      INTEGER,
	display_bit_depth   INTEGER,
	dirty               INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL,
	updated_at          INTEGER NOT NULL,
	initialized_at      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_instances_type ON instances(type_id);

CREATE TABLE IF NOT EXISTS assignments (
	device_id   TEXT NOT NULL,
	instance_id TEXT NOT NULL,
	position    INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (device_id, instance_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_instance ON assignments(instance_id);

CREATE TABLE IF NOT EXISTS input_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id       TEXT NOT NULL,
	instance_id     TEXT,
	button          TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	event_timestamp INTEGER NOT NULL,
	created_at      INTEGER NOT NULL,
	forwarded       INTEGER NOT NULL DEFAULT 0,
	forward_error   TEXT
);
CREATE INDEX IF NOT EXISTS idx_input_events_device ON input_events(device_id, created_at);
CREATE INDEX IF NOT EXISTS idx_input_events_created ON input_events(created_at);
`

// Store is the broker's registry: devices, HLSS types, instances, the
// device↔instance assignment relation, and the input event log. Frame
// payloads live in their own database (lib/framestore) so bulk frame
// writes never contend with registry transactions.
//
// Every read-modify-write runs in an IMMEDIATE transaction. The store
// does not serialize callers beyond that — the engine's per-device and
// per-instance lock maps do.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// StoreConfig holds the parameters for opening the registry store.
type StoreConfig struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides the current time for every timestamp column.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// OpenStore opens the registry store, creating the database and schema
// if needed.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("registry store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("registry store: Logger is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, registrySchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry store: %w", err)
	}

	return &Store{pool: pool, clock: cfg.Clock, logger: cfg.Logger}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// --- Devices ---

// Device is a registered e-paper display device.
type Device struct {
	DeviceID        string
	HardwareID      string
	DeviceSecret    string
	FirmwareVersion string
	Display         display.Capabilities
	AuthStatus      display.AuthStatus

	// CurrentRefreshJTI is the session ID of the only valid refresh
	// token. Empty means no refresh session (new, revoked, or
	// rejected device).
	CurrentRefreshJTI string

	// ActiveInstanceID is the assigned instance whose frames this
	// device currently displays. Empty when nothing is active.
	ActiveInstanceID string

	// CurrentFrameID is the last frame the device acknowledged — the
	// diff base for its next delta. Empty until the first ack.
	CurrentFrameID string

	CreatedAt    time.Time
	UpdatedAt    time.Time
	AuthorizedAt time.Time // zero = never authorized
	LastSeenAt   time.Time // zero = never polled
}

// CreateDeviceParams are the inputs for registering a device.
type CreateDeviceParams struct {
	HardwareID      string
	DeviceSecret    string
	FirmwareVersion string
	Display         display.Capabilities
}

// CreateDevice registers a new device in the pending state. Returns
// ErrConflictingState (wrapped) when the hardware ID is already
// registered.
func (s *Store) CreateDevice(ctx context.Context, params CreateDeviceParams) (Device, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("registry: create device: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Device{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var taken bool
	err = sqlitex.Execute(conn, `SELECT 1 FROM devices WHERE hardware_id = ?`,
		&sqlitex.ExecOptions{
			Args:       []any{params.HardwareID},
			ResultFunc: func(*sqlite.Stmt) error { taken = true; return nil },
		})
	if err != nil {
		return Device{}, fmt.Errorf("registry: checking hardware id: %w", err)
	}
	if taken {
		return Device{}, fmt.Errorf("hardware id %q already registered: %w", params.HardwareID, ErrConflictingState)
	}

	now := s.clock.Now()
	device := Device{
		DeviceID:        frame.NewDeviceID(),
		HardwareID:      params.HardwareID,
		DeviceSecret:    params.DeviceSecret,
		FirmwareVersion: params.FirmwareVersion,
		Display:         params.Display,
		AuthStatus:      display.AuthPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = sqlitex.Execute(conn, `INSERT INTO devices
		(device_id, hardware_id, device_secret, firmware_version,
		 display_width, display_height, display_bit_depth, display_partial_refresh,
		 auth_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			device.DeviceID,
			device.HardwareID,
			device.DeviceSecret,
			device.FirmwareVersion,
			device.Display.Width,
			device.Display.Height,
			device.Display.BitDepth,
			boolToInt(device.Display.PartialRefresh),
			string(device.AuthStatus),
			now.Unix(),
			now.Unix(),
		},
	})
	if err != nil {
		return Device{}, fmt.Errorf("registry: insert device: %w", err)
	}

	s.logger.Info("device registered",
		"device", device.DeviceID,
		"hardware", device.HardwareID,
		"display", fmt.Sprintf("%dx%d@%d", device.Display.Width, device.Display.Height, device.Display.BitDepth),
	)
	return device, nil
}

const deviceColumns = `device_id, hardware_id, device_secret, firmware_version,
	display_width, display_height, display_bit_depth, display_partial_refresh,
	auth_status, current_refresh_jti, active_instance_id, current_frame_id,
	created_at, updated_at, authorized_at, last_seen_at`

// DeviceByID fetches a device by its broker-assigned ID.
func (s *Store) DeviceByID(ctx context.Context, deviceID string) (Device, bool, error) {
	return s.deviceWhere(ctx, "device_id", deviceID)
}

// DeviceByHardwareID fetches a device by its hardware identifier.
func (s *Store) DeviceByHardwareID(ctx context.Context, hardwareID string) (Device, bool, error) {
	return s.deviceWhere(ctx, "hardware_id", hardwareID)
}

func (s *Store) deviceWhere(ctx context.Context, column, value string) (Device, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Device{}, false, fmt.Errorf("registry: device lookup: %w", err)
	}
	defer s.pool.Put(conn)

	var device Device
	var found bool
	err = sqlitex.Execute(conn,
		`SELECT `+deviceColumns+` FROM devices WHERE `+column+` = ?`,
		&sqlitex.ExecOptions{
			Args: []any{value},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				device = scanDevice(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Device{}, false, fmt.Errorf("registry: device lookup: %w", err)
	}
	return device, found, nil
}

// ListDevices returns all devices, optionally filtered by auth status
// (empty status means all), ordered by creation time.
func (s *Store) ListDevices(ctx context.Context, status display.AuthStatus) ([]Device, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list devices: %w", err)
	}
	defer s.pool.Put(conn)

	query := `SELECT ` + deviceColumns + ` FROM devices`
	var args []any
	if status != "" {
		query += ` WHERE auth_status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, device_id`

	var devices []Device
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			devices = append(devices, scanDevice(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: list devices: %w", err)
	}
	return devices, nil
}

// SetDeviceAuthStatus transitions a device's authorization state.
// Authorizing stamps authorized_at; revoking or rejecting clears the
// stored refresh session so outstanding refresh tokens die immediately.
func (s *Store) SetDeviceAuthStatus(ctx context.Context, deviceID string, status display.AuthStatus) (Device, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("registry: set auth status: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Device{}, fmt.Errorf("registry: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	now := s.clock.Now()
	query := `UPDATE devices SET auth_status = ?, updated_at = ?`
	args := []any{string(status), now.Unix()}
	switch status {
	case display.AuthAuthorized:
		query += `, authorized_at = ?`
		args = append(args, now.Unix())
	case display.AuthRevoked, display.AuthRejected:
		query += `, current_refresh_jti = NULL`
	}
	query += ` WHERE device_id = ?`
	args = append(args, deviceID)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return Device{}, fmt.Errorf("registry: set auth status: %w", err)
	}
	if conn.Changes() == 0 {
		return Device{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	device, _, err := s.deviceWhereLocked(conn, "device_id", deviceID)
	if err != nil {
		return Device{}, err
	}

	s.logger.Info("device auth status changed", "device", deviceID, "status", string(status))
	return device, nil
}

// deviceWhereLocked reads a device on an already-held connection
// (inside a transaction).
func (s *Store) deviceWhereLocked(conn *sqlite.Conn, column, value string) (Device, bool, error) {
	var device Device
	var found bool
	err := sqlitex.Execute(conn,
		`SELECT `+deviceColumns+` FROM devices WHERE `+column+` = ?`,
		&sqlitex.ExecOptions{
			Args: []any{value},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				device = scanDevice(stmt)
				found = true
				return nil
			},
		})
	if err != nil {
		return Device{}, false, fmt.Errorf("registry: device lookup: %w", err)
	}
	return device, found, nil
}

// SetDeviceRefreshSession stores the session ID of the newly minted
// refresh token, invalidating any previous refresh token. An empty
// session ID clears the session (revocation).
func (s *Store) SetDeviceRefreshSession(ctx context.Context, deviceID, sessionID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: set refresh session: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE devices SET current_refresh_jti = ?, updated_at = ? WHERE device_id = ?`,
		&sqlitex.ExecOptions{Args: []any{textOrNull(sessionID), s.clock.Now().Unix(), deviceID}})
	if err != nil {
		return fmt.Errorf("registry: set refresh session: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// UpdateDeviceFirmware records a firmware version change.
func (s *Store) UpdateDeviceFirmware(ctx context.Context, deviceID, firmwareVersion string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: update firmware: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`UPDATE devices SET firmware_version = ?, updated_at = ? WHERE device_id = ?`,
		&sqlitex.ExecOptions{Args: []any{firmwareVersion, s.clock.Now().Unix(), deviceID}})
	if err != nil {
		return fmt.Errorf("registry: update firmware: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// RecordDevicePoll stamps last_seen_at and, when the device
// acknowledges a frame, advances current_frame_id. The ack is the only
// way delivery state moves forward (at-least-once delivery).
func (s *Store) RecordDevicePoll(ctx context.Context, deviceID, ackFrameID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registry: record poll: %w", err)
	}
	defer s.pool.Put(conn)

	now := s.clock.Now().Unix()
	if ackFrameID != "" {
		err = sqlitex.Execute(conn,
			`UPDATE devices SET last_seen_at = ?, current_frame_id = ? WHERE device_id = ?`,
			&sqlitex.ExecOptions{Args: []any{now, ackFrameID, deviceID}})
	} else {
		err = sqlitex.Execute(conn,
			`UPDATE devices SET last_seen_at = ? WHERE device_id = ?`,
			&sqlitex.ExecOptions{Args: []any{now, deviceID}})
	}
	if err != nil {
		return fmt.Errorf("registry: record poll: %w", err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	return nil
}

// ProtectedFrameIDs returns the set of frames any device currently
// acknowledges. The retention sweep must not delete these — they are
// the diff bases for the devices' next deltas.
func (s *Store) ProtectedFrameIDs(ctx context.Context) (map[string]struct{}, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: protected frames: %w", err)
	}
	defer s.pool.Put(conn)

	protected := make(map[string]struct{})
	err = sqlitex.Execute(conn,
		`SELECT DISTINCT current_frame_id FROM devices WHERE current_frame_id IS NOT NULL`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				protected[stmt.ColumnText(0)] = struct{}{}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("registry: protected frames: %w", err)
	}
	return protected, nil
}

func scanDevice(stmt *sqlite.Stmt) Device {
	return Device{
		DeviceID:        stmt.ColumnText(0),
		HardwareID:      stmt.ColumnText(1),
		DeviceSecret:    stmt.ColumnText(2),
		FirmwareVersion: stmt.ColumnText(3),
		Display: display.Capabilities{
			Width:          stmt.ColumnInt(4),
			Height:         stmt.ColumnInt(5),
			BitDepth:       stmt.ColumnInt(6),
			PartialRefresh: stmt.ColumnInt(7) != 0,
		},
		AuthStatus:        display.AuthStatus(stmt.ColumnText(8)),
		CurrentRefreshJTI: stmt.ColumnText(9),
		ActiveInstanceID:  stmt.ColumnText(10),
		CurrentFrameID:    stmt.ColumnText(11),
		CreatedAt:         time.Unix(stmt.ColumnInt64(12), 0).UTC(),
		UpdatedAt:         time.Unix(stmt.ColumnInt64(13), 0).UTC(),
		AuthorizedAt:      unixOrZero(stmt, 14),
		LastSeenAt:        unixOrZero(stmt, 15),
	}
}

// --- Input events ---

// InputEvent is one row of the append-only input log. InstanceID is
// empty for events the broker consumed locally (highlight buttons) or
// recorded while no instance was active.
type InputEvent struct {
	ID             int64
	DeviceID       string
	InstanceID     string
	Button         display.Button
	EventType      display.EventType
	EventTimestamp time.Time
	CreatedAt      time.Time
	Forwarded      bool
	ForwardError   string
}

// RecordInputEvent appends an event to the input log. The event is
// recorded after any forwarding attempt, so Forwarded and ForwardError
// carry the final outcome.
func (s *Store) RecordInputEvent(ctx context.Context, event InputEvent) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("registry: record input: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO input_events
		(device_id, instance_id, button, event_type, event_timestamp,
		 created_at, forwarded, forward_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			event.DeviceID,
			textOrNull(event.InstanceID),
			string(event.Button),
			string(event.EventType),
			event.EventTimestamp.Unix(),
			s.clock.Now().Unix(),
			boolToInt(event.Forwarded),
			textOrNull(event.ForwardError),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("registry: record input: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

// InputEventsForDevice returns a device's most recent input events,
// newest first.
func (s *Store) InputEventsForDevice(ctx context.Context, deviceID string, limit int) ([]InputEvent, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list inputs: %w", err)
	}
	defer s.pool.Put(conn)

	if limit <= 0 {
		limit = 100
	}

	var events []InputEvent
	err = sqlitex.Execute(conn, `SELECT
		id, device_id, instance_id, button, event_type, event_timestamp,
		created_at, forwarded, forward_error
		FROM input_events WHERE device_id = ?
		ORDER BY id DESC LIMIT ?`, &sqlitex.ExecOptions{
		Args: []any{deviceID, limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			events = append(events, InputEvent{
				ID:             stmt.ColumnInt64(0),
				DeviceID:       stmt.ColumnText(1),
				InstanceID:     stmt.ColumnText(2),
				Button:         display.Button(stmt.ColumnText(3)),
				EventType:      display.EventType(stmt.ColumnText(4)),
				EventTimestamp: time.Unix(stmt.ColumnInt64(5), 0).UTC(),
				CreatedAt:      time.Unix(stmt.ColumnInt64(6), 0).UTC(),
				Forwarded:      stmt.ColumnInt(7) != 0,
				ForwardError:   stmt.ColumnText(8),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registry: list inputs: %w", err)
	}
	return events, nil
}

// PurgeInputEvents deletes input events created before the cutoff.
// Returns the number of rows deleted.
func (s *Store) PurgeInputEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("registry: purge inputs: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM input_events WHERE created_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff.Unix()}})
	if err != nil {
		return 0, fmt.Errorf("registry: purge inputs: %w", err)
	}
	deleted := int64(conn.Changes())
	if deleted > 0 {
		s.logger.Info("input event retention sweep", "deleted", deleted)
	}
	return deleted, nil
}

// --- Counts ---

// Counts summarizes the registry for the admin status endpoint.
type Counts struct {
	DevicesByStatus      map[string]int64 `json:"devices_by_status"`
	InstancesByLifecycle map[string]int64 `json:"instances_by_lifecycle"`
	InputEvents          int64            `json:"input_events"`
}

// Counts reports device, instance, and input event totals.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("registry: counts: %w", err)
	}
	defer s.pool.Put(conn)

	counts := Counts{
		DevicesByStatus:      make(map[string]int64),
		InstancesByLifecycle: make(map[string]int64),
	}

	err = sqlitex.Execute(conn, `SELECT auth_status, COUNT(*) FROM devices GROUP BY auth_status`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts.DevicesByStatus[stmt.ColumnText(0)] = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return Counts{}, fmt.Errorf("registry: device counts: %w", err)
	}

	err = sqlitex.Execute(conn, `SELECT lifecycle, COUNT(*) FROM instances GROUP BY lifecycle`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts.InstancesByLifecycle[stmt.ColumnText(0)] = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return Counts{}, fmt.Errorf("registry: instance counts: %w", err)
	}

	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM input_events`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				counts.InputEvents = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return Counts{}, fmt.Errorf("registry: input event count: %w", err)
	}

	return counts, nil
}

// --- Scan helpers ---

// unixOrZero reads a nullable unix-seconds column as a time, zero when
// NULL.
func unixOrZero(stmt *sqlite.Stmt, column int) time.Time {
	if stmt.ColumnType(column) == sqlite.TypeNull {
		return time.Time{}
	}
	return time.Unix(stmt.ColumnInt64(column), 0).UTC()
}

// textOrNull maps an empty string to NULL for nullable text columns.
func textOrNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
