// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package brokerclient provides a typed HTTP client for the slate-broker
// admin API. The slate CLI and integration tooling use this client to
// manage HLSS types, instances, and devices.
//
// The client mirrors the broker's wire format with its own response
// types, avoiding an import dependency from admin tooling back into the
// broker implementation.
package brokerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slateworks/slate/lib/netutil"
)

// defaultTimeout bounds admin calls when the config does not set one.
const defaultTimeout = 30 * time.Second

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the broker's API root, e.g. "http://localhost:8080".
	// Required.
	BaseURL string

	// AdminToken is the bearer token for the admin surface. Required —
	// a broker without an admin token has no admin API to talk to.
	AdminToken string

	// Timeout bounds every call. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Client is a typed client for the broker admin API. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	adminToken string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Client from the given configuration.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("brokerclient: BaseURL is required")
	}
	if config.AdminToken == "" {
		return nil, fmt.Errorf("brokerclient: AdminToken is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		adminToken: config.AdminToken,
		timeout:    timeout,
		httpClient: httpClient,
	}, nil
}

// APIError is a non-success response from the broker, carrying the
// message from the broker's {"error": "..."} body. Transport failures
// are NOT APIErrors — those surface as wrapped errors from the HTTP
// client.
type APIError struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// Message is the broker's error text.
	Message string
}

func (err *APIError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("broker returned HTTP %d", err.StatusCode)
	}
	return fmt.Sprintf("broker returned HTTP %d: %s", err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a broker 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// Status reports registry counts, frame store totals, and broker
// uptime.
func (client *Client) Status(ctx context.Context) (*BrokerStatus, error) {
	var status BrokerStatus
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/status", nil, &status); err != nil {
		return nil, fmt.Errorf("broker status: %w", err)
	}
	return &status, nil
}

// --- HLSS types ---

// ListHLSSTypes returns every registered HLSS type.
func (client *Client) ListHLSSTypes(ctx context.Context) ([]HLSSType, error) {
	var types []HLSSType
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/hlss-types", nil, &types); err != nil {
		return nil, fmt.Errorf("list hlss types: %w", err)
	}
	return types, nil
}

// CreateHLSSType registers a new backend service type.
func (client *Client) CreateHLSSType(ctx context.Context, request CreateHLSSTypeRequest) (*HLSSType, error) {
	var created HLSSType
	if err := client.do(ctx, http.MethodPost, "/api/v1/admin/hlss-types", request, &created); err != nil {
		return nil, fmt.Errorf("create hlss type %q: %w", request.TypeID, err)
	}
	return &created, nil
}

// GetHLSSType returns one HLSS type by ID.
func (client *Client) GetHLSSType(ctx context.Context, typeID string) (*HLSSType, error) {
	var hlssType HLSSType
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/hlss-types/"+url.PathEscape(typeID), nil, &hlssType); err != nil {
		return nil, fmt.Errorf("get hlss type %q: %w", typeID, err)
	}
	return &hlssType, nil
}

// UpdateHLSSType patches an HLSS type. Nil request fields are left
// unchanged.
func (client *Client) UpdateHLSSType(ctx context.Context, typeID string, request UpdateHLSSTypeRequest) (*HLSSType, error) {
	var updated HLSSType
	if err := client.do(ctx, http.MethodPatch, "/api/v1/admin/hlss-types/"+url.PathEscape(typeID), request, &updated); err != nil {
		return nil, fmt.Errorf("update hlss type %q: %w", typeID, err)
	}
	return &updated, nil
}

// DeleteHLSSType removes an HLSS type. Fails with HTTP 409 while
// instances still reference it.
func (client *Client) DeleteHLSSType(ctx context.Context, typeID string) error {
	if err := client.do(ctx, http.MethodDelete, "/api/v1/admin/hlss-types/"+url.PathEscape(typeID), nil, nil); err != nil {
		return fmt.Errorf("delete hlss type %q: %w", typeID, err)
	}
	return nil
}

// --- Instances ---

// ListInstances returns instances, filtered to one HLSS type when
// typeID is non-empty.
func (client *Client) ListInstances(ctx context.Context, typeID string) ([]Instance, error) {
	path := "/api/v1/admin/instances"
	if typeID != "" {
		path += "?type_id=" + url.QueryEscape(typeID)
	}
	var instances []Instance
	if err := client.do(ctx, http.MethodGet, path, nil, &instances); err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return instances, nil
}

// CreateInstance creates an instance of an HLSS type. The response is
// the only place the instance's access token ever appears.
func (client *Client) CreateInstance(ctx context.Context, request CreateInstanceRequest) (*Instance, error) {
	var created Instance
	if err := client.do(ctx, http.MethodPost, "/api/v1/admin/instances", request, &created); err != nil {
		return nil, fmt.Errorf("create instance %q: %w", request.Name, err)
	}
	return &created, nil
}

// GetInstance returns one instance by ID.
func (client *Client) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	var instance Instance
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/instances/"+url.PathEscape(instanceID), nil, &instance); err != nil {
		return nil, fmt.Errorf("get instance %q: %w", instanceID, err)
	}
	return &instance, nil
}

// UpdateInstance patches an instance's name or display override. Nil
// request fields are left unchanged.
func (client *Client) UpdateInstance(ctx context.Context, instanceID string, request UpdateInstanceRequest) (*Instance, error) {
	var updated Instance
	if err := client.do(ctx, http.MethodPatch, "/api/v1/admin/instances/"+url.PathEscape(instanceID), request, &updated); err != nil {
		return nil, fmt.Errorf("update instance %q: %w", instanceID, err)
	}
	return &updated, nil
}

// DeleteInstance removes an instance, its assignments, and its stored
// frames, and tells its backend to release whatever it holds.
func (client *Client) DeleteInstance(ctx context.Context, instanceID string) error {
	if err := client.do(ctx, http.MethodDelete, "/api/v1/admin/instances/"+url.PathEscape(instanceID), nil, nil); err != nil {
		return fmt.Errorf("delete instance %q: %w", instanceID, err)
	}
	return nil
}

// InitializeInstance runs the backend init handshake for an instance.
func (client *Client) InitializeInstance(ctx context.Context, instanceID string) (*Instance, error) {
	var instance Instance
	if err := client.do(ctx, http.MethodPost, "/api/v1/admin/instances/"+url.PathEscape(instanceID)+"/initialize", nil, &instance); err != nil {
		return nil, fmt.Errorf("initialize instance %q: %w", instanceID, err)
	}
	return &instance, nil
}

// RefreshInstanceStatus re-reads the backend's view of an instance and
// folds it into the broker's lifecycle state.
func (client *Client) RefreshInstanceStatus(ctx context.Context, instanceID string) (*Instance, error) {
	var instance Instance
	if err := client.do(ctx, http.MethodPost, "/api/v1/admin/instances/"+url.PathEscape(instanceID)+"/refresh-status", nil, &instance); err != nil {
		return nil, fmt.Errorf("refresh instance %q: %w", instanceID, err)
	}
	return &instance, nil
}

// FrameStatus compares the broker's newest stored frame for an instance
// against what its backend claims to hold.
func (client *Client) FrameStatus(ctx context.Context, instanceID string) (*FrameSync, error) {
	var result FrameSync
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/instances/"+url.PathEscape(instanceID)+"/frame-status", nil, &result); err != nil {
		return nil, fmt.Errorf("frame status of instance %q: %w", instanceID, err)
	}
	return &result, nil
}

// SyncFrame asks an out-of-sync instance's backend to resubmit its
// current frame through the normal frames callback.
func (client *Client) SyncFrame(ctx context.Context, instanceID string) (*FrameSync, error) {
	var result FrameSync
	if err := client.do(ctx, http.MethodPost, "/api/v1/admin/instances/"+url.PathEscape(instanceID)+"/sync-frame", nil, &result); err != nil {
		return nil, fmt.Errorf("sync frame of instance %q: %w", instanceID, err)
	}
	return &result, nil
}

// --- Devices ---

// ListDevices returns devices, filtered to one auth status when status
// is non-empty.
func (client *Client) ListDevices(ctx context.Context, status string) ([]Device, error) {
	path := "/api/v1/admin/devices"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var devices []Device
	if err := client.do(ctx, http.MethodGet, path, nil, &devices); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

// PendingDevices returns devices awaiting authorization.
func (client *Client) PendingDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/devices/pending", nil, &devices); err != nil {
		return nil, fmt.Errorf("list pending devices: %w", err)
	}
	return devices, nil
}

// GetDevice returns one device with its assignment list.
func (client *Client) GetDevice(ctx context.Context, deviceID string) (*DeviceDetail, error) {
	var detail DeviceDetail
	if err := client.do(ctx, http.MethodGet, "/api/v1/admin/devices/"+url.PathEscape(deviceID), nil, &detail); err != nil {
		return nil, fmt.Errorf("get device %q: %w", deviceID, err)
	}
	return &detail, nil
}

// AuthorizeDevice approves a pending device. Its next token request
// issues credentials.
func (client *Client) AuthorizeDevice(ctx context.Context, deviceID string) (*Device, error) {
	return client.setDeviceStatus(ctx, deviceID, "authorize")
}

// RejectDevice marks a pending device rejected.
func (client *Client) RejectDevice(ctx context.Context, deviceID string) (*Device, error) {
	return client.setDeviceStatus(ctx, deviceID, "reject")
}

// RevokeDevice revokes an authorized device: its refresh session dies
// immediately, outstanding access tokens at their expiry.
func (client *Client) RevokeDevice(ctx context.Context, deviceID string) (*Device, error) {
	return client.setDeviceStatus(ctx, deviceID, "revoke")
}

// ReauthorizeDevice restores a rejected or revoked device to
// authorized.
func (client *Client) ReauthorizeDevice(ctx context.Context, deviceID string) (*Device, error) {
	return client.setDeviceStatus(ctx, deviceID, "reauthorize")
}

func (client *Client) setDeviceStatus(ctx context.Context, deviceID, action string) (*Device, error) {
	var device Device
	path := "/api/v1/admin/devices/" + url.PathEscape(deviceID) + "/" + action
	if err := client.do(ctx, http.MethodPost, path, nil, &device); err != nil {
		return nil, fmt.Errorf("%s device %q: %w", action, deviceID, err)
	}
	return &device, nil
}

// AssignInstance adds an instance to a device's rotation. Assigning an
// already-assigned instance is a no-op success.
func (client *Client) AssignInstance(ctx context.Context, deviceID, instanceID string) (*AssignResult, error) {
	request := struct {
		InstanceID string `json:"instance_id"`
	}{InstanceID: instanceID}

	var result AssignResult
	path := "/api/v1/admin/devices/" + url.PathEscape(deviceID) + "/assign-instance"
	if err := client.do(ctx, http.MethodPost, path, request, &result); err != nil {
		return nil, fmt.Errorf("assign instance %q to device %q: %w", instanceID, deviceID, err)
	}
	return &result, nil
}

// UnassignInstance removes an instance from a device's rotation and
// returns the device's active instance ID afterwards (empty when the
// rotation is now empty).
func (client *Client) UnassignInstance(ctx context.Context, deviceID, instanceID string) (string, error) {
	var result struct {
		ActiveInstanceID string `json:"active_instance_id"`
	}
	path := "/api/v1/admin/devices/" + url.PathEscape(deviceID) + "/instances/" + url.PathEscape(instanceID)
	if err := client.do(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return "", fmt.Errorf("unassign instance %q from device %q: %w", instanceID, deviceID, err)
	}
	return result.ActiveInstanceID, nil
}

// SetActiveInstance makes one of a device's assigned instances the
// active one.
func (client *Client) SetActiveInstance(ctx context.Context, deviceID, instanceID string) error {
	request := struct {
		InstanceID string `json:"instance_id"`
	}{InstanceID: instanceID}

	path := "/api/v1/admin/devices/" + url.PathEscape(deviceID) + "/set-active-instance"
	if err := client.do(ctx, http.MethodPost, path, request, nil); err != nil {
		return fmt.Errorf("set active instance %q on device %q: %w", instanceID, deviceID, err)
	}
	return nil
}

// Cycle rotates a device's active instance through its assignment
// list. direction is "next", "prev", or empty for next.
func (client *Client) Cycle(ctx context.Context, deviceID, direction string) (*CycleResult, error) {
	request := struct {
		Direction string `json:"direction,omitempty"`
	}{Direction: direction}

	var result CycleResult
	path := "/api/v1/admin/devices/" + url.PathEscape(deviceID) + "/cycle"
	if err := client.do(ctx, http.MethodPost, path, request, &result); err != nil {
		return nil, fmt.Errorf("cycle device %q: %w", deviceID, err)
	}
	return &result, nil
}

// do executes one admin call: applies the timeout, attaches the admin
// bearer token, JSON-encodes the request body (nil for none), and
// decodes a 2xx response into result (nil to discard). Non-2xx
// responses return a *APIError.
func (client *Client) do(ctx context.Context, method, path string, requestBody, result any) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Authorization", "Bearer "+client.adminToken)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := netutil.ReadResponse(response.Body)
		return apiError(response.StatusCode, body)
	}

	if result == nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(response.Body, netutil.MaxResponseSize))
		return nil
	}
	if err := netutil.DecodeResponse(response.Body, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError builds an APIError from a non-2xx response body, preferring
// the broker's structured {"error": "..."} message over the raw body.
func apiError(statusCode int, body []byte) *APIError {
	message := strings.TrimSpace(string(body))
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != "" {
		message = wire.Error
	}
	return &APIError{StatusCode: statusCode, Message: message}
}
