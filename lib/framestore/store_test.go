// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package framestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/secret"
)

var testGeom = frame.Geometry{Width: 64, Height: 32, BitsPerPixel: 1}

// openTestStore opens a store in a temp directory with a fake clock.
func openTestStore(t *testing.T, key *secret.Buffer) (*Store, *clock.FakeClock) {
	t.Helper()

	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store, err := Open(Config{
		Path:          filepath.Join(t.TempDir(), "frames.db"),
		PoolSize:      2,
		Clock:         fakeClock,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		EncryptionKey: key,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, fakeClock
}

// textFrame builds a compressible geometry-sized buffer (long runs).
func textFrame(fill byte) []byte {
	data := make([]byte, testGeom.Size())
	for i := range data {
		data[i] = fill
	}
	return data
}

// noiseFrame builds an incompressible geometry-sized buffer.
func noiseFrame(seed int64) []byte {
	data := make([]byte, testGeom.Size())
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func TestPutAndData(t *testing.T) {
	store, _ := openTestStore(t, nil)
	ctx := context.Background()

	data := noiseFrame(1)
	stored, created, err := store.Put(ctx, "inst_000000000001", data, testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !created {
		t.Error("first Put reported created = false")
	}
	if stored.Hash != frame.HashContent(data) {
		t.Error("stored hash does not match content hash")
	}
	if stored.Size != len(data) {
		t.Errorf("stored size = %d, want %d", stored.Size, len(data))
	}

	meta, got, err := store.Data(ctx, stored.FrameID)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Data returned different bytes than Put stored")
	}
	if meta.FrameID != stored.FrameID || meta.InstanceID != "inst_000000000001" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
}

func TestPutContentAddressing(t *testing.T) {
	store, _ := openTestStore(t, nil)
	ctx := context.Background()

	data := textFrame(0xAB)
	first, created, err := store.Put(ctx, "inst_000000000001", data, testGeom)
	if err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if !created {
		t.Fatal("first Put reported created = false")
	}

	// Identical bytes: same frame ID, nothing new stored.
	second, created, err := store.Put(ctx, "inst_000000000001", data, testGeom)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if created {
		t.Error("identical resubmission reported created = true")
	}
	if second.FrameID != first.FrameID {
		t.Errorf("resubmission frame ID %s != original %s", second.FrameID, first.FrameID)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.FrameCount != 1 {
		t.Errorf("frame count = %d after dedup, want 1", stats.FrameCount)
	}
}

func TestPutSameBytesDifferentInstances(t *testing.T) {
	store, _ := openTestStore(t, nil)
	ctx := context.Background()

	data := textFrame(0x11)
	first, _, err := store.Put(ctx, "inst_000000000001", data, testGeom)
	if err != nil {
		t.Fatalf("Put inst 1: %v", err)
	}
	// Dedup is per-instance: a different instance gets its own row.
	second, created, err := store.Put(ctx, "inst_000000000002", data, testGeom)
	if err != nil {
		t.Fatalf("Put inst 2: %v", err)
	}
	if !created {
		t.Error("different instance dedup'd against another instance's frame")
	}
	if second.FrameID == first.FrameID {
		t.Error("two instances share a frame ID")
	}
}

func TestLatestTracksNewestFrame(t *testing.T) {
	store, fakeClock := openTestStore(t, nil)
	ctx := context.Background()

	if _, found, err := store.Latest(ctx, "inst_000000000001"); err != nil || found {
		t.Fatalf("Latest on empty instance = found %v, err %v", found, err)
	}

	first, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(1), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	second, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(2), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	latest, found, err := store.Latest(ctx, "inst_000000000001")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !found {
		t.Fatal("Latest found nothing after two Puts")
	}
	if latest.FrameID != second.FrameID {
		t.Errorf("Latest = %s, want %s (not %s)", latest.FrameID, second.FrameID, first.FrameID)
	}

	// The superseded frame is still fetchable by ID (it may be a
	// device's diff base).
	if _, _, err := store.Data(ctx, first.FrameID); err != nil {
		t.Errorf("superseded frame unreadable: %v", err)
	}
}

func TestPutRejectsGeometryMismatch(t *testing.T) {
	store, _ := openTestStore(t, nil)
	ctx := context.Background()

	short := make([]byte, testGeom.Size()-1)
	if _, _, err := store.Put(ctx, "inst_000000000001", short, testGeom); err == nil {
		t.Error("Put accepted a buffer shorter than the geometry")
	}

	bad := frame.Geometry{Width: 0, Height: 32, BitsPerPixel: 1}
	if _, _, err := store.Put(ctx, "inst_000000000001", nil, bad); err == nil {
		t.Error("Put accepted an invalid geometry")
	}
}

func TestDataNotFound(t *testing.T) {
	store, _ := openTestStore(t, nil)

	_, _, err := store.Data(context.Background(), "frm_000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Data for unknown frame = %v, want ErrNotFound", err)
	}

	if _, found, err := store.Get(context.Background(), "frm_000000000000"); err != nil || found {
		t.Errorf("Get for unknown frame = found %v, err %v", found, err)
	}
}

func TestCompressionRoundTrips(t *testing.T) {
	store, _ := openTestStore(t, nil)
	ctx := context.Background()

	// One highly compressible frame, one incompressible; both must
	// round trip regardless of which codec the probe picked.
	for name, data := range map[string][]byte{
		"uniform": textFrame(0x00),
		"noise":   noiseFrame(7),
	} {
		stored, _, err := store.Put(ctx, "inst_000000000001", data, testGeom)
		if err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		_, got, err := store.Data(ctx, stored.FrameID)
		if err != nil {
			t.Fatalf("%s: Data: %v", name, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%s: decoded bytes differ from input", name)
		}
	}

	// The uniform frame should have compressed well.
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.StoredBytes >= stats.TotalBytes {
		t.Errorf("stored bytes %d not smaller than original %d despite compressible input",
			stats.StoredBytes, stats.TotalBytes)
	}
}

func TestFrameIDs(t *testing.T) {
	store, fakeClock := openTestStore(t, nil)
	ctx := context.Background()

	first, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(1), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	second, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(2), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := store.Put(ctx, "inst_000000000002", noiseFrame(3), testGeom); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ids, err := store.FrameIDs(ctx, "inst_000000000001")
	if err != nil {
		t.Fatalf("FrameIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("FrameIDs returned %d ids, want 2", len(ids))
	}
	got := map[string]bool{ids[0]: true, ids[1]: true}
	if !got[first.FrameID] || !got[second.FrameID] {
		t.Errorf("FrameIDs = %v, want %s and %s", ids, first.FrameID, second.FrameID)
	}

	empty, err := store.FrameIDs(ctx, "inst_000000000009")
	if err != nil {
		t.Fatalf("FrameIDs(empty): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown instance returned %d frame ids", len(empty))
	}
}

func TestDeleteInstance(t *testing.T) {
	store, fakeClock := openTestStore(t, nil)
	ctx := context.Background()

	if _, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(1), testGeom); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	keep, _, err := store.Put(ctx, "inst_000000000002", noiseFrame(2), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	if _, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(3), testGeom); err != nil {
		t.Fatalf("Put: %v", err)
	}

	deleted, err := store.DeleteInstance(ctx, "inst_000000000001")
	if err != nil {
		t.Fatalf("DeleteInstance: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d frames, want 2", deleted)
	}

	if _, found, err := store.Latest(ctx, "inst_000000000001"); err != nil || found {
		t.Errorf("deleted instance still has a latest frame (found %v, err %v)", found, err)
	}
	if _, found, err := store.Latest(ctx, "inst_000000000002"); err != nil || !found {
		t.Errorf("unrelated instance lost its latest frame (found %v, err %v)", found, err)
	} else if _, _, err := store.Data(ctx, keep.FrameID); err != nil {
		t.Errorf("unrelated instance's frame unreadable: %v", err)
	}
}

func TestSweepPreservesLatestAndProtected(t *testing.T) {
	store, fakeClock := openTestStore(t, nil)
	ctx := context.Background()

	old1, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(1), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	old2, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(2), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	latest, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(3), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Cutoff after everything; old2 is a device's acknowledged frame.
	fakeClock.Advance(time.Hour)
	protected := map[string]struct{}{old2.FrameID: {}}
	deleted, err := store.Sweep(ctx, fakeClock.Now(), protected)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if deleted != 1 {
		t.Errorf("swept %d frames, want 1", deleted)
	}

	if _, _, err := store.Data(ctx, old1.FrameID); !errors.Is(err, ErrNotFound) {
		t.Errorf("unprotected superseded frame survived sweep: %v", err)
	}
	if _, _, err := store.Data(ctx, old2.FrameID); err != nil {
		t.Errorf("protected frame swept: %v", err)
	}
	if _, _, err := store.Data(ctx, latest.FrameID); err != nil {
		t.Errorf("latest frame swept: %v", err)
	}
}

func TestSweepHonorsCutoff(t *testing.T) {
	store, fakeClock := openTestStore(t, nil)
	ctx := context.Background()

	if _, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(1), testGeom); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fakeClock.Advance(time.Second)
	if _, _, err := store.Put(ctx, "inst_000000000001", noiseFrame(2), testGeom); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Cutoff before the first frame: nothing is old enough.
	deleted, err := store.Sweep(ctx, fakeClock.Now().Add(-time.Hour), nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if deleted != 0 {
		t.Errorf("swept %d frames with a cutoff before creation, want 0", deleted)
	}
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store, _ := openTestStore(t, testMasterKey(t, 0x42))
	ctx := context.Background()

	data := textFrame(0x5A)
	stored, _, err := store.Put(ctx, "inst_000000000001", data, testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, got, err := store.Data(ctx, stored.FrameID)
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("encrypted round trip returned different bytes")
	}
}

func TestEncryptedStoreWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fakeClock := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	first, err := Open(Config{
		Path:          path,
		PoolSize:      1,
		Clock:         fakeClock,
		Logger:        logger,
		EncryptionKey: testMasterKey(t, 0x42),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stored, _, err := first.Put(context.Background(), "inst_000000000001", noiseFrame(5), testGeom)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(Config{
		Path:          path,
		PoolSize:      1,
		Clock:         fakeClock,
		Logger:        logger,
		EncryptionKey: testMasterKey(t, 0x43),
	})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	// Metadata is readable, the payload is not.
	if _, found, err := second.Get(context.Background(), stored.FrameID); err != nil || !found {
		t.Errorf("Get under wrong key = found %v, err %v", found, err)
	}
	if _, _, err := second.Data(context.Background(), stored.FrameID); err == nil {
		t.Error("Data decrypted a frame under the wrong master key")
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fakeClock := clock.Fake(time.Unix(0, 0))
	path := filepath.Join(t.TempDir(), "frames.db")

	if _, err := Open(Config{Path: path, Logger: logger}); err == nil {
		t.Error("Open accepted a config without a clock")
	}
	if _, err := Open(Config{Path: path, Clock: fakeClock}); err == nil {
		t.Error("Open accepted a config without a logger")
	}

	shortKey, err := secret.NewFromBytes(make([]byte, 16))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	defer shortKey.Close()
	if _, err := Open(Config{Path: path, Clock: fakeClock, Logger: logger, EncryptionKey: shortKey}); err == nil {
		t.Error("Open accepted a 16-byte encryption key")
	}
}
