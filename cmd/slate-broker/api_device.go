// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"time"

	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/service"
)

// Device-facing endpoints: the auth flow (register, token, refresh,
// renew-refresh, status) and the delivery loop (state poll, frame
// fetch, input submission).
//
// Durations go on the wire as integer seconds so firmware never parses
// Go duration strings.

type registerRequest struct {
	HardwareID      string               `json:"hardware_id"`
	FirmwareVersion string               `json:"firmware_version"`
	Display         display.Capabilities `json:"display"`
}

type registerResponse struct {
	DeviceID     string             `json:"device_id"`
	DeviceSecret string             `json:"device_secret"`
	AuthStatus   display.AuthStatus `json:"auth_status"`
	Message      string             `json:"message"`
}

func (api *API) handleDeviceRegister(writer http.ResponseWriter, request *http.Request) {
	var req registerRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}

	device, err := api.engine.RegisterDevice(request.Context(), RegisterParams{
		HardwareID:      req.HardwareID,
		FirmwareVersion: req.FirmwareVersion,
		Display:         req.Display,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}

	api.writeJSON(writer, http.StatusCreated, registerResponse{
		DeviceID:     device.DeviceID,
		DeviceSecret: device.DeviceSecret,
		AuthStatus:   device.AuthStatus,
		Message:      "device registered, awaiting authorization",
	})
}

type tokenRequest struct {
	HardwareID      string               `json:"hardware_id"`
	DeviceSecret    string               `json:"device_secret"`
	FirmwareVersion string               `json:"firmware_version"`
	Display         display.Capabilities `json:"display"`
}

type tokenResponse struct {
	DeviceID              string             `json:"device_id"`
	AuthStatus            display.AuthStatus `json:"auth_status"`
	RefreshToken          string             `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64              `json:"refresh_token_expires_in,omitempty"`
	Message               string             `json:"message,omitempty"`
}

func (api *API) handleDeviceToken(writer http.ResponseWriter, request *http.Request) {
	var req tokenRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}

	grant, err := api.engine.RequestDeviceToken(request.Context(), TokenRequest{
		HardwareID:      req.HardwareID,
		DeviceSecret:    req.DeviceSecret,
		FirmwareVersion: req.FirmwareVersion,
		Display:         req.Display,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}

	api.writeJSON(writer, http.StatusOK, tokenResponse{
		DeviceID:              grant.DeviceID,
		AuthStatus:            grant.AuthStatus,
		RefreshToken:          grant.RefreshToken,
		RefreshTokenExpiresIn: int64(grant.ExpiresIn / time.Second),
		Message:               grant.Message,
	})
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (api *API) handleDeviceRefresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken, ok := service.BearerToken(request)
	if !ok {
		api.sendError(writer, http.StatusUnauthorized, "missing bearer token")
		return
	}

	grant, err := api.engine.RefreshAccessToken(request.Context(), refreshToken)
	if err != nil {
		api.fail(writer, err)
		return
	}

	api.writeJSON(writer, http.StatusOK, accessTokenResponse{
		AccessToken: grant.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(grant.ExpiresIn / time.Second),
	})
}

type refreshTokenResponse struct {
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (api *API) handleDeviceRenewRefresh(writer http.ResponseWriter, request *http.Request) {
	accessToken, ok := service.BearerToken(request)
	if !ok {
		api.sendError(writer, http.StatusUnauthorized, "missing bearer token")
		return
	}

	grant, err := api.engine.RenewRefreshToken(request.Context(), accessToken)
	if err != nil {
		api.fail(writer, err)
		return
	}

	api.writeJSON(writer, http.StatusOK, refreshTokenResponse{
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    int64(grant.ExpiresIn / time.Second),
	})
}

type authStatusResponse struct {
	DeviceID     string             `json:"device_id"`
	AuthStatus   display.AuthStatus `json:"auth_status"`
	AuthorizedAt *time.Time         `json:"authorized_at,omitempty"`
}

func (api *API) handleDeviceAuthStatus(writer http.ResponseWriter, request *http.Request, device Device) {
	api.writeJSON(writer, http.StatusOK, authStatusResponse{
		DeviceID:     device.DeviceID,
		AuthStatus:   device.AuthStatus,
		AuthorizedAt: timePtr(device.AuthorizedAt),
	})
}

// requireOwnDevice rejects a token presented against someone else's
// device path.
func (api *API) requireOwnDevice(writer http.ResponseWriter, request *http.Request, device Device) bool {
	if request.PathValue("device_id") != device.DeviceID {
		api.sendError(writer, http.StatusForbidden, "token does not match device")
		return false
	}
	return true
}

func (api *API) handleDeviceState(writer http.ResponseWriter, request *http.Request, device Device) {
	if !api.requireOwnDevice(writer, request, device) {
		return
	}

	result, err := api.engine.Poll(request.Context(), device.DeviceID, request.URL.Query().Get("last_frame_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, result)
}

func (api *API) handleDeviceFrame(writer http.ResponseWriter, request *http.Request, device Device) {
	if !api.requireOwnDevice(writer, request, device) {
		return
	}

	delivery, err := api.engine.FetchFrame(request.Context(),
		device.DeviceID,
		request.PathValue("frame_id"),
		request.URL.Query().Get("base"))
	if err != nil {
		api.fail(writer, err)
		return
	}

	writer.Header().Set("X-Slate-Frame-Id", delivery.FrameID)
	if delivery.Delta {
		writer.Header().Set("X-Slate-Frame-Encoding", "delta")
		writer.Header().Set("Content-Type", "application/cbor")
	} else {
		writer.Header().Set("X-Slate-Frame-Encoding", "full")
		writer.Header().Set("Content-Type", "application/octet-stream")
	}
	if _, err := writer.Write(delivery.Data); err != nil {
		api.logger.Warn("writing frame response", "error", err, "frame_id", delivery.FrameID)
	}
}

type inputRequest struct {
	Button    display.Button    `json:"button"`
	EventType display.EventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
}

func (api *API) handleDeviceInputs(writer http.ResponseWriter, request *http.Request, device Device) {
	if !api.requireOwnDevice(writer, request, device) {
		return
	}

	var req inputRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}

	result, err := api.engine.HandleInput(request.Context(), device.DeviceID, req.Button, req.EventType, req.Timestamp)
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusAccepted, result)
}
