// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/slateworks/slate/lib/schema/display"
)

// Admin endpoints: HLSS type and instance CRUD, device authorization,
// assignment management, and fleet status.

func (api *API) handleAdminStatus(writer http.ResponseWriter, request *http.Request) {
	status, err := api.engine.Status(request.Context())
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, status)
}

// --- HLSS types ---

func (api *API) handleAdminListTypes(writer http.ResponseWriter, request *http.Request) {
	types, err := api.store.ListHLSSTypes(request.Context())
	if err != nil {
		api.fail(writer, err)
		return
	}
	out := make([]hlssTypeJSON, 0, len(types))
	for _, t := range types {
		out = append(out, hlssTypeToJSON(t))
	}
	api.writeJSON(writer, http.StatusOK, out)
}

type createTypeRequest struct {
	TypeID          string `json:"type_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	BaseURL         string `json:"base_url"`
	AuthToken       string `json:"auth_token"`
	DefaultWidth    int    `json:"default_width"`
	DefaultHeight   int    `json:"default_height"`
	DefaultBitDepth int    `json:"default_bit_depth"`

	// IsActive defaults to true when omitted.
	IsActive *bool `json:"is_active"`
}

func (api *API) handleAdminCreateType(writer http.ResponseWriter, request *http.Request) {
	var req createTypeRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.TypeID == "" || req.Name == "" || req.BaseURL == "" {
		api.sendError(writer, http.StatusBadRequest, "type_id, name, and base_url are required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	created, err := api.store.CreateHLSSType(request.Context(), HLSSType{
		TypeID:          req.TypeID,
		Name:            req.Name,
		Description:     req.Description,
		BaseURL:         req.BaseURL,
		AuthToken:       req.AuthToken,
		DefaultWidth:    req.DefaultWidth,
		DefaultHeight:   req.DefaultHeight,
		DefaultBitDepth: req.DefaultBitDepth,
		IsActive:        isActive,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusCreated, hlssTypeToJSON(created))
}

func (api *API) handleAdminGetType(writer http.ResponseWriter, request *http.Request) {
	typeID := request.PathValue("type_id")
	hlssType, found, err := api.store.HLSSTypeByID(request.Context(), typeID)
	if err != nil {
		api.fail(writer, err)
		return
	}
	if !found {
		api.sendError(writer, http.StatusNotFound, "unknown hlss type: %s", typeID)
		return
	}
	api.writeJSON(writer, http.StatusOK, hlssTypeToJSON(hlssType))
}

type updateTypeRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	BaseURL         *string `json:"base_url"`
	AuthToken       *string `json:"auth_token"`
	DefaultWidth    *int    `json:"default_width"`
	DefaultHeight   *int    `json:"default_height"`
	DefaultBitDepth *int    `json:"default_bit_depth"`
	IsActive        *bool   `json:"is_active"`
}

func (api *API) handleAdminUpdateType(writer http.ResponseWriter, request *http.Request) {
	var req updateTypeRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.BaseURL != nil && *req.BaseURL == "" {
		api.sendError(writer, http.StatusBadRequest, "base_url cannot be cleared")
		return
	}

	updated, err := api.store.UpdateHLSSType(request.Context(), request.PathValue("type_id"), HLSSTypePatch{
		Name:            req.Name,
		Description:     req.Description,
		BaseURL:         req.BaseURL,
		AuthToken:       req.AuthToken,
		DefaultWidth:    req.DefaultWidth,
		DefaultHeight:   req.DefaultHeight,
		DefaultBitDepth: req.DefaultBitDepth,
		IsActive:        req.IsActive,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, hlssTypeToJSON(updated))
}

func (api *API) handleAdminDeleteType(writer http.ResponseWriter, request *http.Request) {
	typeID := request.PathValue("type_id")
	if err := api.store.DeleteHLSSType(request.Context(), typeID); err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, map[string]string{"status": "deleted", "type_id": typeID})
}

// --- Instances ---

func (api *API) handleAdminListInstances(writer http.ResponseWriter, request *http.Request) {
	instances, err := api.store.ListInstances(request.Context(), request.URL.Query().Get("type_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	out := make([]instanceJSON, 0, len(instances))
	for _, instance := range instances {
		out = append(out, instanceToJSON(instance))
	}
	api.writeJSON(writer, http.StatusOK, out)
}

type createInstanceRequest struct {
	Name            string `json:"name"`
	TypeID          string `json:"type_id"`
	DisplayWidth    int    `json:"display_width"`
	DisplayHeight   int    `json:"display_height"`
	DisplayBitDepth int    `json:"display_bit_depth"`
	AutoInitialize  bool   `json:"auto_initialize"`
}

func (api *API) handleAdminCreateInstance(writer http.ResponseWriter, request *http.Request) {
	var req createInstanceRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" || req.TypeID == "" {
		api.sendError(writer, http.StatusBadRequest, "name and type_id are required")
		return
	}

	instance, err := api.engine.CreateInstance(request.Context(), NewInstanceParams{
		Name:            req.Name,
		TypeID:          req.TypeID,
		DisplayWidth:    req.DisplayWidth,
		DisplayHeight:   req.DisplayHeight,
		DisplayBitDepth: req.DisplayBitDepth,
		AutoInitialize:  req.AutoInitialize,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}

	// The access token appears in this response and nowhere else.
	out := instanceToJSON(instance)
	out.AccessToken = instance.AccessToken
	api.writeJSON(writer, http.StatusCreated, out)
}

func (api *API) handleAdminGetInstance(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")
	instance, found, err := api.store.InstanceByID(request.Context(), instanceID)
	if err != nil {
		api.fail(writer, err)
		return
	}
	if !found {
		api.sendError(writer, http.StatusNotFound, "unknown instance: %s", instanceID)
		return
	}
	api.writeJSON(writer, http.StatusOK, instanceToJSON(instance))
}

type updateInstanceRequest struct {
	Name            *string `json:"name"`
	DisplayWidth    *int    `json:"display_width"`
	DisplayHeight   *int    `json:"display_height"`
	DisplayBitDepth *int    `json:"display_bit_depth"`
}

func (api *API) handleAdminUpdateInstance(writer http.ResponseWriter, request *http.Request) {
	var req updateInstanceRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name != nil && *req.Name == "" {
		api.sendError(writer, http.StatusBadRequest, "name cannot be cleared")
		return
	}

	updated, err := api.store.UpdateInstance(request.Context(), request.PathValue("instance_id"), InstancePatch{
		Name:            req.Name,
		DisplayWidth:    req.DisplayWidth,
		DisplayHeight:   req.DisplayHeight,
		DisplayBitDepth: req.DisplayBitDepth,
	})
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, instanceToJSON(updated))
}

func (api *API) handleAdminDeleteInstance(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")
	if err := api.engine.DeleteInstance(request.Context(), instanceID); err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, map[string]string{"status": "deleted", "instance_id": instanceID})
}

func (api *API) handleAdminInitializeInstance(writer http.ResponseWriter, request *http.Request) {
	instance, err := api.engine.InitializeInstance(request.Context(), request.PathValue("instance_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, instanceToJSON(instance))
}

func (api *API) handleAdminRefreshInstanceStatus(writer http.ResponseWriter, request *http.Request) {
	instance, err := api.engine.RefreshInstanceStatus(request.Context(), request.PathValue("instance_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, instanceToJSON(instance))
}

func (api *API) handleAdminFrameStatus(writer http.ResponseWriter, request *http.Request) {
	result, err := api.engine.FrameSyncStatus(request.Context(), request.PathValue("instance_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, result)
}

func (api *API) handleAdminSyncFrame(writer http.ResponseWriter, request *http.Request) {
	result, err := api.engine.SyncFrame(request.Context(), request.PathValue("instance_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, result)
}

// --- Devices ---

func (api *API) handleAdminListDevices(writer http.ResponseWriter, request *http.Request) {
	status := display.AuthStatus(request.URL.Query().Get("status"))
	if status != "" && !status.IsKnown() {
		api.sendError(writer, http.StatusBadRequest, "unknown auth status: %s", status)
		return
	}
	api.listDevices(writer, request, status)
}

func (api *API) handleAdminPendingDevices(writer http.ResponseWriter, request *http.Request) {
	api.listDevices(writer, request, display.AuthPending)
}

func (api *API) listDevices(writer http.ResponseWriter, request *http.Request, status display.AuthStatus) {
	devices, err := api.store.ListDevices(request.Context(), status)
	if err != nil {
		api.fail(writer, err)
		return
	}
	out := make([]deviceJSON, 0, len(devices))
	for _, device := range devices {
		out = append(out, deviceToJSON(device))
	}
	api.writeJSON(writer, http.StatusOK, out)
}

type assignmentJSON struct {
	InstanceID string `json:"instance_id"`
	Position   int64  `json:"position"`
}

type deviceDetailJSON struct {
	deviceJSON
	Assignments []assignmentJSON `json:"assignments"`
}

func (api *API) handleAdminGetDevice(writer http.ResponseWriter, request *http.Request) {
	deviceID := request.PathValue("device_id")
	device, found, err := api.store.DeviceByID(request.Context(), deviceID)
	if err != nil {
		api.fail(writer, err)
		return
	}
	if !found {
		api.sendError(writer, http.StatusNotFound, "unknown device: %s", deviceID)
		return
	}

	assignments, err := api.store.AssignmentsForDevice(request.Context(), deviceID)
	if err != nil {
		api.fail(writer, err)
		return
	}
	detail := deviceDetailJSON{
		deviceJSON:  deviceToJSON(device),
		Assignments: make([]assignmentJSON, 0, len(assignments)),
	}
	for _, assignment := range assignments {
		detail.Assignments = append(detail.Assignments, assignmentJSON{
			InstanceID: assignment.InstanceID,
			Position:   assignment.Position,
		})
	}
	api.writeJSON(writer, http.StatusOK, detail)
}

func (api *API) handleAdminAuthorizeDevice(writer http.ResponseWriter, request *http.Request) {
	api.setDeviceStatus(writer, request, display.AuthAuthorized)
}

func (api *API) handleAdminRejectDevice(writer http.ResponseWriter, request *http.Request) {
	api.setDeviceStatus(writer, request, display.AuthRejected)
}

func (api *API) handleAdminRevokeDevice(writer http.ResponseWriter, request *http.Request) {
	api.setDeviceStatus(writer, request, display.AuthRevoked)
}

func (api *API) setDeviceStatus(writer http.ResponseWriter, request *http.Request, status display.AuthStatus) {
	device, err := api.engine.SetDeviceAuthStatus(request.Context(), request.PathValue("device_id"), status)
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, deviceToJSON(device))
}

type assignInstanceRequest struct {
	InstanceID string `json:"instance_id"`
}

type assignInstanceResponse struct {
	Created      bool `json:"created"`
	BecameActive bool `json:"became_active"`
}

func (api *API) handleAdminAssignInstance(writer http.ResponseWriter, request *http.Request) {
	var req assignInstanceRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.InstanceID == "" {
		api.sendError(writer, http.StatusBadRequest, "instance_id is required")
		return
	}

	result, err := api.engine.AssignInstance(request.Context(), request.PathValue("device_id"), req.InstanceID)
	if err != nil {
		api.fail(writer, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	api.writeJSON(writer, status, assignInstanceResponse{
		Created:      result.Created,
		BecameActive: result.BecameActive,
	})
}

func (api *API) handleAdminUnassignInstance(writer http.ResponseWriter, request *http.Request) {
	active, err := api.engine.UnassignInstance(request.Context(),
		request.PathValue("device_id"), request.PathValue("instance_id"))
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, map[string]string{
		"status":             "unassigned",
		"active_instance_id": active,
	})
}

func (api *API) handleAdminSetActiveInstance(writer http.ResponseWriter, request *http.Request) {
	var req assignInstanceRequest
	if err := decodeJSON(request, &req); err != nil {
		api.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if req.InstanceID == "" {
		api.sendError(writer, http.StatusBadRequest, "instance_id is required")
		return
	}

	if err := api.engine.SetActiveInstance(request.Context(), request.PathValue("device_id"), req.InstanceID); err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, map[string]string{
		"status":             "ok",
		"active_instance_id": req.InstanceID,
	})
}

type cycleRequest struct {
	// Direction is "next" or "prev"; empty means next.
	Direction string `json:"direction"`
}

type cycleResponse struct {
	Cycled           bool   `json:"cycled"`
	ActiveInstanceID string `json:"active_instance_id,omitempty"`
}

func (api *API) handleAdminCycleDevice(writer http.ResponseWriter, request *http.Request) {
	// An empty body means "next".
	var req cycleRequest
	if err := json.NewDecoder(request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.sendError(writer, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	direction := 1
	switch req.Direction {
	case "", "next":
	case "prev":
		direction = -1
	default:
		api.sendError(writer, http.StatusBadRequest, "direction must be next or prev")
		return
	}

	active, cycled, err := api.engine.CycleActiveInstance(request.Context(), request.PathValue("device_id"), direction)
	if err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusOK, cycleResponse{
		Cycled:           cycled,
		ActiveInstanceID: active,
	})
}
