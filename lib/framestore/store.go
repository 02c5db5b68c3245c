// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/secret"
	"github.com/slateworks/slate/lib/sqlitepool"
)

// ErrNotFound is returned when a frame ID names no stored frame.
var ErrNotFound = errors.New("framestore: frame not found")

// Frame is the stored metadata of one immutable rendered frame. The
// framebuffer bytes are fetched separately via Data — the poll path
// needs only metadata.
type Frame struct {
	FrameID    string
	InstanceID string
	Hash       frame.Hash
	Geometry   frame.Geometry
	Size       int
	CreatedAt  time.Time
}

// Config holds the parameters for opening a frame store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. Required.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to 4
	// if zero or negative.
	PoolSize int

	// Clock provides creation timestamps and retention decisions.
	// Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger

	// EncryptionKey enables at-rest encryption when set: every stored
	// frame payload is sealed under a key derived from this master key
	// and the frame's content hash. Must be exactly KeySize bytes. The
	// store borrows the buffer for its lifetime and does not close it.
	EncryptionKey *secret.Buffer
}

// Store is content-addressed storage of rendered frames, keyed by
// instance. Frames are immutable once written; resubmitting the bytes
// currently latest for an instance is a no-op returning the existing
// row, which absorbs backend retry storms without duplicate storage or
// duplicate diff work downstream.
//
// Writes for one instance are atomic: the frame insert and the latest-
// pointer flip happen in a single IMMEDIATE transaction, so Latest
// never observes a frame that is mid-supersession.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
	key    *secret.Buffer
}

const schema = `
CREATE TABLE IF NOT EXISTS frames (
	frame_id       TEXT PRIMARY KEY,
	instance_id    TEXT NOT NULL,
	content_hash   BLOB NOT NULL,
	width          INTEGER NOT NULL,
	height         INTEGER NOT NULL,
	bits_per_pixel INTEGER NOT NULL,
	size           INTEGER NOT NULL,
	compression    INTEGER NOT NULL,
	encrypted      INTEGER NOT NULL,
	data           BLOB NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_instance ON frames(instance_id, created_at);

CREATE TABLE IF NOT EXISTS instance_latest (
	instance_id TEXT PRIMARY KEY,
	frame_id    TEXT NOT NULL REFERENCES frames(frame_id)
);
`

// Open creates a frame store backed by SQLite. The database file is
// created if it does not exist.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("framestore: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("framestore: Logger is required")
	}
	if cfg.EncryptionKey != nil && cfg.EncryptionKey.Len() != KeySize {
		return nil, fmt.Errorf("framestore: encryption key must be %d bytes, got %d",
			KeySize, cfg.EncryptionKey.Len())
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
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("framestore: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		key:    cfg.EncryptionKey,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Put stores a framebuffer for an instance and makes it the instance's
// latest frame. Content-addressed: when data hashes to the same value
// as the instance's current latest frame, nothing is written and the
// existing frame is returned with created == false.
//
// data must match geom exactly (len(data) == geom.Size()).
func (s *Store) Put(ctx context.Context, instanceID string, data []byte, geom frame.Geometry) (Frame, bool, error) {
	if err := geom.Validate(); err != nil {
		return Frame{}, false, err
	}
	if len(data) != geom.Size() {
		return Frame{}, false, fmt.Errorf("framestore: frame is %d bytes, geometry %s needs %d",
			len(data), geom, geom.Size())
	}

	contentHash := frame.HashContent(data)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: put: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	// Dedup against the current latest inside the transaction, so a
	// concurrent Put of different bytes cannot interleave between the
	// read and the write.
	latest, found, err := s.latestLocked(conn, instanceID)
	if err != nil {
		return Frame{}, false, err
	}
	if found && latest.Hash == contentHash {
		return latest, false, nil
	}

	stored, tag := compressFrame(data)
	encrypted := false
	if s.key != nil {
		stored, err = encryptFrame(stored, s.key, contentHash)
		if err != nil {
			return Frame{}, false, err
		}
		encrypted = true
	}

	newFrame := Frame{
		FrameID:    frame.NewFrameID(),
		InstanceID: instanceID,
		Hash:       contentHash,
		Geometry:   geom,
		Size:       len(data),
		CreatedAt:  s.clock.Now(),
	}

	err = sqlitex.Execute(conn, `INSERT INTO frames
		(frame_id, instance_id, content_hash, width, height, bits_per_pixel,
		 size, compression, encrypted, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			newFrame.FrameID,
			instanceID,
			newFrame.Hash[:],
			geom.Width,
			geom.Height,
			geom.BitsPerPixel,
			newFrame.Size,
			int(tag),
			boolToInt(encrypted),
			stored,
			newFrame.CreatedAt.Unix(),
		},
	})
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: insert frame: %w", err)
	}

	err = sqlitex.Execute(conn, `INSERT INTO instance_latest (instance_id, frame_id)
		VALUES (?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET frame_id = excluded.frame_id`,
		&sqlitex.ExecOptions{Args: []any{instanceID, newFrame.FrameID}})
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: update latest pointer: %w", err)
	}

	s.logger.Debug("frame stored",
		"frame", newFrame.FrameID,
		"instance", instanceID,
		"geometry", geom.String(),
		"size", newFrame.Size,
		"stored_size", len(stored),
		"compression", tag.String(),
		"encrypted", encrypted,
	)

	return newFrame, true, nil
}

// Latest returns the metadata of an instance's most recent frame.
// found is false when the instance has never stored a frame.
func (s *Store) Latest(ctx context.Context, instanceID string) (Frame, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: latest: %w", err)
	}
	defer s.pool.Put(conn)

	return s.latestLocked(conn, instanceID)
}

// latestLocked reads the latest-frame metadata on an already-held
// connection. Used inside Put's transaction and by Latest.
func (s *Store) latestLocked(conn *sqlite.Conn, instanceID string) (Frame, bool, error) {
	var result Frame
	var found bool

	err := sqlitex.Execute(conn, `SELECT f.frame_id, f.instance_id, f.content_hash,
		f.width, f.height, f.bits_per_pixel, f.size, f.created_at
		FROM instance_latest il JOIN frames f ON f.frame_id = il.frame_id
		WHERE il.instance_id = ?`, &sqlitex.ExecOptions{
		Args: []any{instanceID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = scanFrame(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: query latest: %w", err)
	}
	return result, found, nil
}

// Get returns the metadata of a frame by ID. found is false for an
// unknown ID.
func (s *Store) Get(ctx context.Context, frameID string) (Frame, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: get: %w", err)
	}
	defer s.pool.Put(conn)

	var result Frame
	var found bool

	err = sqlitex.Execute(conn, `SELECT frame_id, instance_id, content_hash,
		width, height, bits_per_pixel, size, created_at
		FROM frames WHERE frame_id = ?`, &sqlitex.ExecOptions{
		Args: []any{frameID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = scanFrame(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return Frame{}, false, fmt.Errorf("framestore: query frame: %w", err)
	}
	return result, found, nil
}

// Data returns a frame's metadata and its decoded framebuffer bytes.
// The stored payload is decrypted (when at-rest encryption is on),
// decompressed, and verified against the stored content hash before
// being returned — a corrupted row surfaces as an error here, never as
// wrong pixels on a panel. Returns ErrNotFound for an unknown ID.
func (s *Store) Data(ctx context.Context, frameID string) (Frame, []byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("framestore: data: %w", err)
	}
	defer s.pool.Put(conn)

	var result Frame
	var stored []byte
	var tag CompressionTag
	var encrypted bool
	var found bool

	err = sqlitex.Execute(conn, `SELECT frame_id, instance_id, content_hash,
		width, height, bits_per_pixel, size, created_at, compression, encrypted, data
		FROM frames WHERE frame_id = ?`, &sqlitex.ExecOptions{
		Args: []any{frameID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = scanFrame(stmt)
			tag = CompressionTag(stmt.ColumnInt(8))
			encrypted = stmt.ColumnInt(9) != 0
			stored = make([]byte, stmt.ColumnLen(10))
			stmt.ColumnBytes(10, stored)
			found = true
			return nil
		},
	})
	if err != nil {
		return Frame{}, nil, fmt.Errorf("framestore: query frame data: %w", err)
	}
	if !found {
		return Frame{}, nil, fmt.Errorf("%w: %s", ErrNotFound, frameID)
	}

	if encrypted {
		if s.key == nil {
			return Frame{}, nil, fmt.Errorf("framestore: frame %s is encrypted but no encryption key is configured", frameID)
		}
		stored, err = decryptFrame(stored, s.key, result.Hash)
		if err != nil {
			return Frame{}, nil, err
		}
	}

	data, err := decompressFrame(stored, tag, result.Size)
	if err != nil {
		return Frame{}, nil, err
	}

	if frame.HashContent(data) != result.Hash {
		return Frame{}, nil, fmt.Errorf("framestore: frame %s content hash mismatch after decode", frameID)
	}

	return result, data, nil
}

// FrameIDs returns the IDs of every frame stored for an instance.
// Callers tearing an instance down use this to find dangling
// references (device current-frame pointers) before DeleteInstance.
func (s *Store) FrameIDs(ctx context.Context, instanceID string) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("framestore: frame ids: %w", err)
	}
	defer s.pool.Put(conn)

	var ids []string
	err = sqlitex.Execute(conn, `SELECT frame_id FROM frames WHERE instance_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{instanceID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("framestore: frame ids: %w", err)
	}
	return ids, nil
}

// DeleteInstance removes every frame stored for an instance, including
// its latest pointer. Returns the number of frames removed. Called
// when an admin destroys the instance.
func (s *Store) DeleteInstance(ctx context.Context, instanceID string) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("framestore: delete instance: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("framestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `DELETE FROM instance_latest WHERE instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{instanceID}})
	if err != nil {
		return 0, fmt.Errorf("framestore: delete latest pointer: %w", err)
	}

	err = sqlitex.Execute(conn, `DELETE FROM frames WHERE instance_id = ?`,
		&sqlitex.ExecOptions{Args: []any{instanceID}})
	if err != nil {
		return 0, fmt.Errorf("framestore: delete frames: %w", err)
	}
	deleted := int64(conn.Changes())

	if deleted > 0 {
		s.logger.Info("instance frames deleted", "instance", instanceID, "count", deleted)
	}
	return deleted, nil
}

// Sweep deletes superseded frames older than cutoff. A frame survives
// when it is an instance's latest (the next poll needs it) or when its
// ID is in protected (a device's acknowledged frame — still the diff
// base for that device's next delta). Returns the number of frames
// deleted.
func (s *Store) Sweep(ctx context.Context, cutoff time.Time, protected map[string]struct{}) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("framestore: sweep: %w", err)
	}
	defer s.pool.Put(conn)

	// Collect candidates first, filter against the protected set in
	// Go, then delete by ID. The set is device-count sized; inlining
	// it into SQL would mean building a variable-width IN list.
	var candidates []string
	err = sqlitex.Execute(conn, `SELECT frame_id FROM frames
		WHERE created_at < ?
		AND frame_id NOT IN (SELECT frame_id FROM instance_latest)`,
		&sqlitex.ExecOptions{
			Args: []any{cutoff.Unix()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				candidates = append(candidates, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("framestore: sweep query: %w", err)
	}

	var deleted int64
	for _, frameID := range candidates {
		if _, keep := protected[frameID]; keep {
			continue
		}
		err = sqlitex.Execute(conn, `DELETE FROM frames WHERE frame_id = ?`,
			&sqlitex.ExecOptions{Args: []any{frameID}})
		if err != nil {
			return deleted, fmt.Errorf("framestore: sweep delete %s: %w", frameID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("frame retention sweep", "deleted", deleted, "cutoff", cutoff.UTC().Format(time.RFC3339))
	}
	return deleted, nil
}

// Stats summarizes stored frames for the admin status endpoint.
type Stats struct {
	FrameCount  int64 `json:"frame_count"`
	TotalBytes  int64 `json:"total_bytes"`
	StoredBytes int64 `json:"stored_bytes"`
}

// Stats returns frame counts and byte totals (original vs. at-rest).
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("framestore: stats: %w", err)
	}
	defer s.pool.Put(conn)

	var stats Stats
	err = sqlitex.Execute(conn,
		`SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(LENGTH(data)), 0) FROM frames`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.FrameCount = stmt.ColumnInt64(0)
				stats.TotalBytes = stmt.ColumnInt64(1)
				stats.StoredBytes = stmt.ColumnInt64(2)
				return nil
			},
		})
	if err != nil {
		return Stats{}, fmt.Errorf("framestore: stats query: %w", err)
	}
	return stats, nil
}

// scanFrame reads the common metadata columns. Column order must match
// the SELECT lists above: frame_id(0), instance_id(1), content_hash(2),
// width(3), height(4), bits_per_pixel(5), size(6), created_at(7).
func scanFrame(stmt *sqlite.Stmt) Frame {
	var result Frame
	result.FrameID = stmt.ColumnText(0)
	result.InstanceID = stmt.ColumnText(1)
	stmt.ColumnBytes(2, result.Hash[:])
	result.Geometry = frame.Geometry{
		Width:        stmt.ColumnInt(3),
		Height:       stmt.ColumnInt(4),
		BitsPerPixel: stmt.ColumnInt(5),
	}
	result.Size = stmt.ColumnInt(6)
	result.CreatedAt = time.Unix(stmt.ColumnInt64(7), 0).UTC()
	return result
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
