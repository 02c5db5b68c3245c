// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/devicetoken"
	"github.com/slateworks/slate/lib/framestore"
	"github.com/slateworks/slate/lib/hlss"
	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/version"
)

// lockMap hands out one mutex per key. Engine operations that
// read-modify-write state for a device or instance across the registry
// and the frame store hold that entity's lock for the duration, so two
// concurrent polls (or a poll racing an admin assignment change) always
// see each other's writes. Locks are never removed; the population is
// bounded by the fleet size.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock function.
func (m *lockMap) acquire(key string) func() {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// secretBytes is the entropy of generated credentials: device secrets
// and instance access tokens.
const secretBytes = 32

// generateSecret returns a fresh opaque bearer credential,
// base64url-encoded without padding.
func generateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// constantTimeEqual compares two secrets without leaking timing. Both
// are hashed first so length differences reject in the same time.
func constantTimeEqual(expected, presented string) bool {
	expectedDigest := sha256.Sum256([]byte(expected))
	presentedDigest := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(expectedDigest[:], presentedDigest[:]) == 1
}

// EngineConfig configures the broker engine.
type EngineConfig struct {
	// Store is the registry database. Required.
	Store *Store

	// Frames is the frame store. Required.
	Frames *framestore.Store

	// Authority signs and verifies device tokens. Required.
	Authority *devicetoken.Authority

	// Clock provides time for token minting, retention, and
	// timestamps. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger

	// BrokerBaseURL is this broker's externally reachable root, used
	// for the callback URLs handed to backends. Required.
	BrokerBaseURL string

	// HTTPClient is used for all backend calls. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// HLSSTimeout bounds every backend call. Defaults to 30s.
	HLSSTimeout time.Duration

	// AccessTokenTTL and RefreshTokenTTL are device token lifetimes.
	// Default 24h and 720h.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// PollIntervalMS and SleepIntervalMS are the poll-again hints for
	// devices with and without assignments. Default 5000 and 60000.
	PollIntervalMS  int
	SleepIntervalMS int

	// InputEventRetention and FrameRetention are the retention
	// windows enforced by Run's sweeper; RetentionInterval is how
	// often it fires. Defaults 720h, 24h, 1h.
	InputEventRetention time.Duration
	FrameRetention      time.Duration
	RetentionInterval   time.Duration

	// NotifyWorkers is the number of goroutines servicing the notify
	// queue; NotifyQueueSize is the queue's capacity. Defaults 2 and
	// 64.
	NotifyWorkers   int
	NotifyQueueSize int
}

// Engine is the broker core: device sessions, frame delivery, input
// routing, and instance lifecycle. The HTTP layer translates requests
// into Engine calls and Engine results into responses; all state
// decisions live here.
type Engine struct {
	store     *Store
	frames    *framestore.Store
	authority *devicetoken.Authority
	clock     clock.Clock
	logger    *slog.Logger

	brokerBaseURL string
	httpClient    *http.Client
	hlssTimeout   time.Duration

	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	pollIntervalMS  int
	sleepIntervalMS int

	inputEventRetention time.Duration
	frameRetention      time.Duration
	retentionInterval   time.Duration

	deviceLocks   *lockMap
	instanceLocks *lockMap

	notifyQueue   chan string
	notifyWorkers int

	startedAt time.Time
}

// NewEngine creates the broker engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: Store is required")
	}
	if cfg.Frames == nil {
		return nil, fmt.Errorf("engine: Frames is required")
	}
	if cfg.Authority == nil {
		return nil, fmt.Errorf("engine: Authority is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("engine: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("engine: Logger is required")
	}
	if cfg.BrokerBaseURL == "" {
		return nil, fmt.Errorf("engine: BrokerBaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	hlssTimeout := cfg.HLSSTimeout
	if hlssTimeout <= 0 {
		hlssTimeout = 30 * time.Second
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}
	pollMS := cfg.PollIntervalMS
	if pollMS <= 0 {
		pollMS = 5000
	}
	sleepMS := cfg.SleepIntervalMS
	if sleepMS <= 0 {
		sleepMS = 60000
	}
	eventRetention := cfg.InputEventRetention
	if eventRetention <= 0 {
		eventRetention = 720 * time.Hour
	}
	frameRetention := cfg.FrameRetention
	if frameRetention <= 0 {
		frameRetention = 24 * time.Hour
	}
	retentionInterval := cfg.RetentionInterval
	if retentionInterval <= 0 {
		retentionInterval = time.Hour
	}
	workers := cfg.NotifyWorkers
	if workers <= 0 {
		workers = 2
	}
	queueSize := cfg.NotifyQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Engine{
		store:               cfg.Store,
		frames:              cfg.Frames,
		authority:           cfg.Authority,
		clock:               cfg.Clock,
		logger:              cfg.Logger,
		brokerBaseURL:       cfg.BrokerBaseURL,
		httpClient:          httpClient,
		hlssTimeout:         hlssTimeout,
		accessTokenTTL:      accessTTL,
		refreshTokenTTL:     refreshTTL,
		pollIntervalMS:      pollMS,
		sleepIntervalMS:     sleepMS,
		inputEventRetention: eventRetention,
		frameRetention:      frameRetention,
		retentionInterval:   retentionInterval,
		deviceLocks:         newLockMap(),
		instanceLocks:       newLockMap(),
		notifyQueue:         make(chan string, queueSize),
		notifyWorkers:       workers,
		startedAt:           cfg.Clock.Now(),
	}, nil
}

// --- Device registration and tokens ---

// RegisterParams are the inputs a device sends when it introduces
// itself.
type RegisterParams struct {
	HardwareID      string
	FirmwareVersion string
	Display         display.Capabilities
}

// RegisterDevice explicitly registers a device: a fresh secret is
// generated and returned exactly once (in Device.DeviceSecret). The
// device starts pending and cannot obtain tokens until an operator
// authorizes it. A duplicate hardware ID is ErrConflictingState.
func (e *Engine) RegisterDevice(ctx context.Context, params RegisterParams) (Device, error) {
	if params.HardwareID == "" {
		return Device{}, fmt.Errorf("%w: hardware_id is required", ErrInvalidRequest)
	}

	secret, err := generateSecret()
	if err != nil {
		return Device{}, err
	}

	device, err := e.store.CreateDevice(ctx, CreateDeviceParams{
		HardwareID:      params.HardwareID,
		DeviceSecret:    secret,
		FirmwareVersion: params.FirmwareVersion,
		Display:         params.Display,
	})
	if err != nil {
		return Device{}, err
	}

	e.logger.Info("device registered",
		"device_id", device.DeviceID,
		"hardware_id", device.HardwareID)
	return device, nil
}

// TokenRequest is a device's credential presentation: its hardware
// identity and shared secret, plus current firmware and panel geometry
// so the registry stays accurate across fleet updates.
type TokenRequest struct {
	HardwareID      string
	DeviceSecret    string
	FirmwareVersion string
	Display         display.Capabilities
}

// TokenGrant is the outcome of a token request. RefreshToken is empty
// while the device is pending.
type TokenGrant struct {
	DeviceID     string
	AuthStatus   display.AuthStatus
	RefreshToken string
	ExpiresIn    time.Duration
	Message      string
}

// RequestDeviceToken authenticates a device by hardware ID + secret and
// issues a refresh token when it is authorized.
//
// Unknown hardware is auto-registered as pending with the presented
// secret, so a device fresh from the factory needs no separate register
// call: it polls this endpoint with its own generated secret until an
// operator approves it. Pending devices get a grant without a token;
// rejected and revoked devices get a 403.
//
// Issuing a refresh token overwrites the stored session ID, which kills
// any previously issued refresh token for the device.
func (e *Engine) RequestDeviceToken(ctx context.Context, req TokenRequest) (TokenGrant, error) {
	if req.HardwareID == "" || req.DeviceSecret == "" {
		return TokenGrant{}, fmt.Errorf("%w: hardware_id and device_secret are required", ErrInvalidRequest)
	}

	device, found, err := e.store.DeviceByHardwareID(ctx, req.HardwareID)
	if err != nil {
		return TokenGrant{}, err
	}
	if !found {
		device, err = e.store.CreateDevice(ctx, CreateDeviceParams{
			HardwareID:      req.HardwareID,
			DeviceSecret:    req.DeviceSecret,
			FirmwareVersion: req.FirmwareVersion,
			Display:         req.Display,
		})
		if err != nil {
			// Lost a race with a concurrent first contact from the
			// same hardware. Re-read and fall through to the normal
			// secret check.
			if errors.Is(err, ErrConflictingState) {
				device, found, err = e.store.DeviceByHardwareID(ctx, req.HardwareID)
				if err != nil {
					return TokenGrant{}, err
				}
				if !found {
					return TokenGrant{}, fmt.Errorf("device %q vanished during registration", req.HardwareID)
				}
			} else {
				return TokenGrant{}, err
			}
		} else {
			e.logger.Info("device auto-registered pending approval",
				"device_id", device.DeviceID,
				"hardware_id", device.HardwareID)
			return TokenGrant{
				DeviceID:   device.DeviceID,
				AuthStatus: device.AuthStatus,
				Message:    "device registered, awaiting authorization",
			}, nil
		}
	}

	if !constantTimeEqual(device.DeviceSecret, req.DeviceSecret) {
		return TokenGrant{}, unauthorized("invalid device credentials")
	}

	if req.FirmwareVersion != "" && req.FirmwareVersion != device.FirmwareVersion {
		if err := e.store.UpdateDeviceFirmware(ctx, device.DeviceID, req.FirmwareVersion); err != nil {
			return TokenGrant{}, err
		}
	}

	switch device.AuthStatus {
	case display.AuthPending:
		return TokenGrant{
			DeviceID:   device.DeviceID,
			AuthStatus: device.AuthStatus,
			Message:    "device awaiting authorization",
		}, nil
	case display.AuthRejected:
		return TokenGrant{}, forbidden("device has been rejected")
	case display.AuthRevoked:
		return TokenGrant{}, forbidden("device authorization has been revoked")
	case display.AuthAuthorized:
		// Fall through to token issue.
	default:
		return TokenGrant{}, fmt.Errorf("device %s has unknown auth status %q", device.DeviceID, device.AuthStatus)
	}

	tokenString, token, err := e.authority.MintAt(device.DeviceID, devicetoken.KindRefresh, e.refreshTokenTTL, e.clock.Now())
	if err != nil {
		return TokenGrant{}, fmt.Errorf("minting refresh token: %w", err)
	}
	if err := e.store.SetDeviceRefreshSession(ctx, device.DeviceID, token.SessionID); err != nil {
		return TokenGrant{}, err
	}

	e.logger.Info("refresh token issued",
		"device_id", device.DeviceID,
		"session_id", token.SessionID)
	return TokenGrant{
		DeviceID:     device.DeviceID,
		AuthStatus:   device.AuthStatus,
		RefreshToken: tokenString,
		ExpiresIn:    e.refreshTokenTTL,
		Message:      "authorized",
	}, nil
}

// AccessGrant is a freshly minted access token.
type AccessGrant struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// RefreshAccessToken exchanges a refresh token for a short-lived access
// token. Beyond signature and expiry, the token's session ID must match
// the device's stored one: an older refresh token (superseded by
// renewal) or a revoked device (cleared session) fails here with 401.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (AccessGrant, error) {
	token, err := e.authority.VerifyAt(refreshToken, devicetoken.KindRefresh, e.clock.Now())
	if err != nil {
		return AccessGrant{}, unauthorized("invalid refresh token: %v", err)
	}

	device, found, err := e.store.DeviceByID(ctx, token.Subject)
	if err != nil {
		return AccessGrant{}, err
	}
	if !found {
		return AccessGrant{}, unauthorized("unknown device %s", token.Subject)
	}
	if device.CurrentRefreshJTI == "" || device.CurrentRefreshJTI != token.SessionID {
		return AccessGrant{}, unauthorized("%v", devicetoken.ErrSessionRevoked)
	}

	accessToken, _, err := e.authority.MintAt(device.DeviceID, devicetoken.KindAccess, e.accessTokenTTL, e.clock.Now())
	if err != nil {
		return AccessGrant{}, fmt.Errorf("minting access token: %w", err)
	}
	return AccessGrant{AccessToken: accessToken, ExpiresIn: e.accessTokenTTL}, nil
}

// RenewRefreshToken rotates a device's refresh session before the
// current refresh token expires. Authenticates with an access token;
// the new session ID replaces the stored one, invalidating the previous
// refresh token. Only authorized devices may renew — a revoked device
// holding a still-valid access token cannot extend its session.
func (e *Engine) RenewRefreshToken(ctx context.Context, accessToken string) (TokenGrant, error) {
	device, err := e.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return TokenGrant{}, err
	}
	if device.AuthStatus != display.AuthAuthorized {
		return TokenGrant{}, forbidden("device is %s", device.AuthStatus)
	}

	tokenString, token, err := e.authority.MintAt(device.DeviceID, devicetoken.KindRefresh, e.refreshTokenTTL, e.clock.Now())
	if err != nil {
		return TokenGrant{}, fmt.Errorf("minting refresh token: %w", err)
	}
	if err := e.store.SetDeviceRefreshSession(ctx, device.DeviceID, token.SessionID); err != nil {
		return TokenGrant{}, err
	}

	e.logger.Info("refresh session rotated",
		"device_id", device.DeviceID,
		"session_id", token.SessionID)
	return TokenGrant{
		DeviceID:     device.DeviceID,
		AuthStatus:   device.AuthStatus,
		RefreshToken: tokenString,
		ExpiresIn:    e.refreshTokenTTL,
	}, nil
}

// VerifyAccessToken authenticates a device request and returns the
// device. Access tokens are stateless: signature and expiry only, no
// registry check beyond the device existing. Revocation does not cut
// short already-issued access tokens; it stops the next refresh.
func (e *Engine) VerifyAccessToken(ctx context.Context, accessToken string) (Device, error) {
	token, err := e.authority.VerifyAt(accessToken, devicetoken.KindAccess, e.clock.Now())
	if err != nil {
		return Device{}, unauthorized("invalid access token: %v", err)
	}
	device, found, err := e.store.DeviceByID(ctx, token.Subject)
	if err != nil {
		return Device{}, err
	}
	if !found {
		return Device{}, unauthorized("unknown device %s", token.Subject)
	}
	return device, nil
}

// SetDeviceAuthStatus moves a device between authorization states
// (operator action). Revoke and reject clear the stored refresh
// session, which stops the next token refresh; outstanding access
// tokens live out their natural TTL.
func (e *Engine) SetDeviceAuthStatus(ctx context.Context, deviceID string, status display.AuthStatus) (Device, error) {
	unlock := e.deviceLocks.acquire(deviceID)
	defer unlock()

	device, err := e.store.SetDeviceAuthStatus(ctx, deviceID, status)
	if err != nil {
		return Device{}, err
	}
	e.logger.Info("device auth status changed",
		"device_id", deviceID,
		"auth_status", status)
	return device, nil
}

// --- Background work ---

// Run services the notify queue and the retention sweeper until ctx is
// cancelled. Call it once, in its own goroutine or errgroup.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < e.notifyWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.notifyWorker(ctx)
		}()
	}

	ticker := e.clock.NewTicker(e.retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

// sweep enforces retention: old input events are purged, and
// superseded frames older than the retention window are deleted unless
// a device still points at them.
func (e *Engine) sweep(ctx context.Context) {
	now := e.clock.Now()

	purged, err := e.store.PurgeInputEvents(ctx, now.Add(-e.inputEventRetention))
	if err != nil {
		e.logger.Error("input event purge failed", "error", err)
	} else if purged > 0 {
		e.logger.Info("input events purged", "count", purged)
	}

	protected, err := e.store.ProtectedFrameIDs(ctx)
	if err != nil {
		e.logger.Error("protected frame lookup failed", "error", err)
		return
	}
	swept, err := e.frames.Sweep(ctx, now.Add(-e.frameRetention), protected)
	if err != nil {
		e.logger.Error("frame sweep failed", "error", err)
	} else if swept > 0 {
		e.logger.Info("superseded frames swept", "count", swept)
	}
}

// notifyWorker drains the notify queue: for each dirty instance it asks
// the backend to submit its current frame through the normal frames
// callback. Failures are logged and dropped; the instance stays dirty
// and the content arrives whenever the backend next submits.
func (e *Engine) notifyWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case instanceID := <-e.notifyQueue:
			e.requestFrameSend(ctx, instanceID)
		}
	}
}

func (e *Engine) requestFrameSend(ctx context.Context, instanceID string) {
	instance, found, err := e.store.InstanceByID(ctx, instanceID)
	if err != nil || !found {
		if err != nil {
			e.logger.Error("notify: instance lookup failed", "instance_id", instanceID, "error", err)
		}
		return
	}
	client, err := e.backendClientForInstance(ctx, instance)
	if err != nil {
		e.logger.Warn("notify: no backend client", "instance_id", instanceID, "error", err)
		return
	}
	result, err := client.RequestFrameSend(ctx, instanceID)
	if err != nil {
		e.logger.Warn("notify: frame send request failed", "instance_id", instanceID, "error", err)
		return
	}
	e.logger.Debug("notify: frame send requested",
		"instance_id", instanceID,
		"status", result.Status,
		"frame_id", result.FrameID)
}

// --- Status ---

// BrokerStatus is the admin status snapshot.
type BrokerStatus struct {
	Version  string           `json:"version"`
	Uptime   string           `json:"uptime"`
	Registry Counts           `json:"registry"`
	Frames   framestore.Stats `json:"frames"`
}

// Status reports the broker version, registry counts, frame store
// totals, and uptime.
func (e *Engine) Status(ctx context.Context) (BrokerStatus, error) {
	counts, err := e.store.Counts(ctx)
	if err != nil {
		return BrokerStatus{}, err
	}
	stats, err := e.frames.Stats(ctx)
	if err != nil {
		return BrokerStatus{}, err
	}
	return BrokerStatus{
		Version:  version.Short(),
		Uptime:   e.clock.Now().Sub(e.startedAt).Round(time.Second).String(),
		Registry: counts,
		Frames:   stats,
	}, nil
}

// backendClientForInstance builds an HLSS client for the instance's
// type.
func (e *Engine) backendClientForInstance(ctx context.Context, instance Instance) (*hlss.Client, error) {
	hlssType, found, err := e.store.HLSSTypeByID(ctx, instance.TypeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("hlss type %q: %w", instance.TypeID, ErrNotFound)
	}
	return e.backendClient(hlssType)
}

func (e *Engine) backendClient(hlssType HLSSType) (*hlss.Client, error) {
	return hlss.NewClient(hlss.Config{
		BaseURL:       hlssType.BaseURL,
		BrokerBaseURL: e.brokerBaseURL,
		AuthToken:     hlssType.AuthToken,
		Timeout:       e.hlssTimeout,
		HTTPClient:    e.httpClient,
		Logger:        e.logger,
	})
}

// resolveDisplay returns the panel geometry an instance renders for:
// instance override, else type default, else the stock 800×480
// grayscale panel. Resolved at use time, so changing a type default
// takes effect on the next initialize.
func resolveDisplay(instance Instance, hlssType HLSSType) display.Capabilities {
	capabilities := display.DefaultCapabilities
	if hlssType.DefaultWidth > 0 && hlssType.DefaultHeight > 0 {
		capabilities.Width = hlssType.DefaultWidth
		capabilities.Height = hlssType.DefaultHeight
	}
	if hlssType.DefaultBitDepth > 0 {
		capabilities.BitDepth = hlssType.DefaultBitDepth
	}
	if instance.DisplayWidth > 0 && instance.DisplayHeight > 0 {
		capabilities.Width = instance.DisplayWidth
		capabilities.Height = instance.DisplayHeight
	}
	if instance.DisplayBitDepth > 0 {
		capabilities.BitDepth = instance.DisplayBitDepth
	}
	return capabilities
}
