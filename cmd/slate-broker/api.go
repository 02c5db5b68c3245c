// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/service"
)

// API is the broker's HTTP surface: device endpoints (token flow,
// polling, frame fetch, inputs), backend callbacks (frame submission,
// notify), and the admin API. It owns request parsing, auth extraction,
// and status mapping; every decision beyond that is the engine's.
type API struct {
	engine *Engine

	// store serves the plain CRUD reads and type/instance metadata
	// writes that need no locking or backend traffic. Everything else
	// goes through the engine.
	store *Store

	logger *slog.Logger

	// adminToken guards /api/v1/admin. Empty disables the admin
	// surface entirely.
	adminToken string

	// maxFrameBytes caps frame submission bodies.
	maxFrameBytes int64
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Engine        *Engine
	Store         *Store
	Logger        *slog.Logger
	AdminToken    string
	MaxFrameBytes int64
}

// NewAPI creates the HTTP surface.
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("api: Engine is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("api: Store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("api: Logger is required")
	}
	maxFrameBytes := cfg.MaxFrameBytes
	if maxFrameBytes <= 0 {
		maxFrameBytes = 8 << 20
	}
	return &API{
		engine:        cfg.Engine,
		store:         cfg.Store,
		logger:        cfg.Logger,
		adminToken:    cfg.AdminToken,
		maxFrameBytes: maxFrameBytes,
	}, nil
}

// Routes builds the broker's request router.
func (api *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", api.handleHealthz)

	// Device auth flow. No bearer on register/token — that is where
	// credentials come from.
	mux.HandleFunc("POST /api/v1/auth/devices/register", api.handleDeviceRegister)
	mux.HandleFunc("POST /api/v1/auth/devices/token", api.handleDeviceToken)
	mux.HandleFunc("POST /api/v1/auth/devices/refresh", api.handleDeviceRefresh)
	mux.HandleFunc("POST /api/v1/auth/devices/renew-refresh", api.handleDeviceRenewRefresh)
	mux.HandleFunc("GET /api/v1/auth/devices/status", api.device(api.handleDeviceAuthStatus))

	// Device delivery loop.
	mux.HandleFunc("GET /api/v1/devices/{device_id}/state", api.device(api.handleDeviceState))
	mux.HandleFunc("GET /api/v1/devices/{device_id}/frames/{frame_id}", api.device(api.handleDeviceFrame))
	mux.HandleFunc("POST /api/v1/devices/{device_id}/inputs", api.device(api.handleDeviceInputs))

	// Backend callbacks, authenticated per instance by the engine.
	mux.HandleFunc("POST /api/v1/instances/{instance_id}/frames", api.handleInstanceFrames)
	mux.HandleFunc("POST /api/v1/instances/{instance_id}/notify", api.handleInstanceNotify)
	mux.HandleFunc("POST /api/v1/instances/{instance_id}/inputs", api.handleInstanceInputs)

	// Admin surface.
	mux.HandleFunc("GET /api/v1/admin/status", api.admin(api.handleAdminStatus))

	mux.HandleFunc("GET /api/v1/admin/hlss-types", api.admin(api.handleAdminListTypes))
	mux.HandleFunc("POST /api/v1/admin/hlss-types", api.admin(api.handleAdminCreateType))
	mux.HandleFunc("GET /api/v1/admin/hlss-types/{type_id}", api.admin(api.handleAdminGetType))
	mux.HandleFunc("PATCH /api/v1/admin/hlss-types/{type_id}", api.admin(api.handleAdminUpdateType))
	mux.HandleFunc("DELETE /api/v1/admin/hlss-types/{type_id}", api.admin(api.handleAdminDeleteType))

	mux.HandleFunc("GET /api/v1/admin/instances", api.admin(api.handleAdminListInstances))
	mux.HandleFunc("POST /api/v1/admin/instances", api.admin(api.handleAdminCreateInstance))
	mux.HandleFunc("GET /api/v1/admin/instances/{instance_id}", api.admin(api.handleAdminGetInstance))
	mux.HandleFunc("PATCH /api/v1/admin/instances/{instance_id}", api.admin(api.handleAdminUpdateInstance))
	mux.HandleFunc("DELETE /api/v1/admin/instances/{instance_id}", api.admin(api.handleAdminDeleteInstance))
	mux.HandleFunc("POST /api/v1/admin/instances/{instance_id}/initialize", api.admin(api.handleAdminInitializeInstance))
	mux.HandleFunc("POST /api/v1/admin/instances/{instance_id}/refresh-status", api.admin(api.handleAdminRefreshInstanceStatus))
	mux.HandleFunc("GET /api/v1/admin/instances/{instance_id}/frame-status", api.admin(api.handleAdminFrameStatus))
	mux.HandleFunc("POST /api/v1/admin/instances/{instance_id}/sync-frame", api.admin(api.handleAdminSyncFrame))

	mux.HandleFunc("GET /api/v1/admin/devices", api.admin(api.handleAdminListDevices))
	mux.HandleFunc("GET /api/v1/admin/devices/pending", api.admin(api.handleAdminPendingDevices))
	mux.HandleFunc("GET /api/v1/admin/devices/{device_id}", api.admin(api.handleAdminGetDevice))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/authorize", api.admin(api.handleAdminAuthorizeDevice))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/reject", api.admin(api.handleAdminRejectDevice))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/revoke", api.admin(api.handleAdminRevokeDevice))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/reauthorize", api.admin(api.handleAdminAuthorizeDevice))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/assign-instance", api.admin(api.handleAdminAssignInstance))
	mux.HandleFunc("DELETE /api/v1/admin/devices/{device_id}/instances/{instance_id}", api.admin(api.handleAdminUnassignInstance))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/set-active-instance", api.admin(api.handleAdminSetActiveInstance))
	mux.HandleFunc("POST /api/v1/admin/devices/{device_id}/cycle", api.admin(api.handleAdminCycleDevice))

	return mux
}

func (api *API) handleHealthz(writer http.ResponseWriter, request *http.Request) {
	api.writeJSON(writer, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Middleware ---

// admin requires the static admin bearer token. An unset token turns
// the whole admin surface into a 404.
func (api *API) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if api.adminToken == "" {
			api.sendError(writer, http.StatusNotFound, "admin API disabled")
			return
		}
		token, _ := service.BearerToken(request)
		if err := service.VerifyBearerToken(api.adminToken, token); err != nil {
			api.sendError(writer, http.StatusUnauthorized, "admin credentials rejected")
			return
		}
		next(writer, request)
	}
}

// device authenticates a device access token and hands the device to
// the handler. Handlers with a {device_id} path element must still
// check it against the authenticated device.
func (api *API) device(next func(http.ResponseWriter, *http.Request, Device)) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		token, ok := service.BearerToken(request)
		if !ok {
			api.sendError(writer, http.StatusUnauthorized, "missing bearer token")
			return
		}
		device, err := api.engine.VerifyAccessToken(request.Context(), token)
		if err != nil {
			api.fail(writer, err)
			return
		}
		next(writer, request, device)
	}
}

// --- Response helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func (api *API) sendError(writer http.ResponseWriter, status int, format string, args ...any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(errorResponse{Error: fmt.Sprintf(format, args...)}); err != nil {
		api.logger.Warn("writing JSON error response", "error", err, "status", status)
	}
}

func (api *API) writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		api.logger.Warn("writing JSON response", "error", err)
	}
}

// fail translates an engine error into an HTTP response.
func (api *API) fail(writer http.ResponseWriter, err error) {
	var authErr *AuthError
	switch {
	case errors.As(err, &authErr):
		api.sendError(writer, authErr.Status, "%s", authErr.Message)
	case errors.Is(err, ErrNotFound):
		api.sendError(writer, http.StatusNotFound, "%v", err)
	case errors.Is(err, ErrConflictingState):
		api.sendError(writer, http.StatusConflict, "%v", err)
	case errors.Is(err, ErrInvalidAssignment),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidFrame):
		api.sendError(writer, http.StatusBadRequest, "%v", err)
	case errors.Is(err, ErrBackendUnavailable):
		api.sendError(writer, http.StatusBadGateway, "%v", err)
	default:
		api.logger.Error("request failed", "error", err)
		api.sendError(writer, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON parses a JSON request body, translating failure into the
// 400 the caller sends.
func decodeJSON(request *http.Request, value any) error {
	if err := json.NewDecoder(request.Body).Decode(value); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// --- Wire representations ---
//
// The registry structs carry credentials and internal bookkeeping, so
// the API maps them to explicit wire shapes instead of tagging the
// store types. Secrets appear exactly once: device_secret on register,
// instance access_token on create.

type deviceJSON struct {
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

func deviceToJSON(device Device) deviceJSON {
	return deviceJSON{
		DeviceID:         device.DeviceID,
		HardwareID:       device.HardwareID,
		FirmwareVersion:  device.FirmwareVersion,
		Display:          device.Display,
		AuthStatus:       device.AuthStatus,
		ActiveInstanceID: device.ActiveInstanceID,
		CurrentFrameID:   device.CurrentFrameID,
		CreatedAt:        device.CreatedAt,
		AuthorizedAt:     timePtr(device.AuthorizedAt),
		LastSeenAt:       timePtr(device.LastSeenAt),
	}
}

type instanceJSON struct {
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

func instanceToJSON(instance Instance) instanceJSON {
	return instanceJSON{
		InstanceID:         instance.InstanceID,
		Name:               instance.Name,
		TypeID:             instance.TypeID,
		Lifecycle:          instance.Lifecycle,
		NeedsConfiguration: instance.NeedsConfiguration,
		ConfigurationURL:   instance.ConfigurationURL,
		ActiveScreen:       instance.ActiveScreen,
		LastError:          instance.LastError,
		DisplayWidth:       instance.DisplayWidth,
		DisplayHeight:      instance.DisplayHeight,
		DisplayBitDepth:    instance.DisplayBitDepth,
		Dirty:              instance.Dirty,
		CreatedAt:          instance.CreatedAt,
		InitializedAt:      timePtr(instance.InitializedAt),
	}
}

type hlssTypeJSON struct {
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

func hlssTypeToJSON(hlssType HLSSType) hlssTypeJSON {
	return hlssTypeJSON{
		TypeID:          hlssType.TypeID,
		Name:            hlssType.Name,
		Description:     hlssType.Description,
		BaseURL:         hlssType.BaseURL,
		DefaultWidth:    hlssType.DefaultWidth,
		DefaultHeight:   hlssType.DefaultHeight,
		DefaultBitDepth: hlssType.DefaultBitDepth,
		IsActive:        hlssType.IsActive,
		CreatedAt:       hlssType.CreatedAt,
		UpdatedAt:       hlssType.UpdatedAt,
	}
}

// timePtr maps the registry's zero-means-never convention to JSON
// null.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
