// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slateworks/slate/lib/clock"
	"github.com/slateworks/slate/lib/framediff"
	"github.com/slateworks/slate/lib/schema/display"
)

const testAdminToken = "admin-secret"

type testAPI struct {
	engine *Engine
	clock  *clock.FakeClock
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	engine, fc := newTestEngine(t)

	api, err := NewAPI(APIConfig{
		Engine:        engine,
		Store:         engine.store,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		AdminToken:    testAdminToken,
		MaxFrameBytes: 512,
	})
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}

	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)
	return &testAPI{engine: engine, clock: fc, server: server}
}

// do sends a request. A []byte body goes raw; anything else non-nil is
// JSON-encoded. token is sent as a bearer when non-empty.
func (ta *testAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	switch payload := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(payload)
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequest(method, ta.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return response
}

// decodeObject asserts the status code and returns the JSON object
// body.
func decodeObject(t *testing.T, response *http.Response, wantStatus int) map[string]any {
	t.Helper()
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	if response.StatusCode != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", response.StatusCode, wantStatus, raw)
	}

	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", raw, err)
		}
	}
	return decoded
}

// decodeList asserts the status code and returns the JSON array body.
func decodeList(t *testing.T, response *http.Response, wantStatus int) []any {
	t.Helper()
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	if response.StatusCode != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", response.StatusCode, wantStatus, raw)
	}

	var decoded []any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decoding response %q: %v", raw, err)
	}
	return decoded
}

func wantField(t *testing.T, object map[string]any, key, want string) {
	t.Helper()
	if got, _ := object[key].(string); got != want {
		t.Fatalf("%s = %q, want %q (object %v)", key, got, want, object)
	}
}

// deviceCredentials walks the device side of the token flow over HTTP:
// auto-register via /token, authorize via the admin API, then fetch a
// refresh and an access token.
func (ta *testAPI) deviceCredentials(t *testing.T, hardwareID string, partialRefresh bool) (deviceID, refreshToken, accessToken string) {
	t.Helper()

	tokenBody := map[string]any{
		"hardware_id":      hardwareID,
		"device_secret":    "secret-" + hardwareID,
		"firmware_version": "1.0.0",
		"display": display.Capabilities{
			Width: 64, Height: 32, BitDepth: 1, PartialRefresh: partialRefresh,
		},
	}

	pending := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/token", "", tokenBody), http.StatusOK)
	wantField(t, pending, "auth_status", "pending")
	deviceID, _ = pending["device_id"].(string)
	if deviceID == "" {
		t.Fatalf("token response has no device_id: %v", pending)
	}

	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/authorize", testAdminToken, nil), http.StatusOK)

	granted := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/token", "", tokenBody), http.StatusOK)
	wantField(t, granted, "auth_status", "authorized")
	refreshToken, _ = granted["refresh_token"].(string)
	if refreshToken == "" {
		t.Fatalf("authorized token response has no refresh_token: %v", granted)
	}
	if expiresIn, _ := granted["refresh_token_expires_in"].(float64); expiresIn <= 0 {
		t.Fatalf("refresh_token_expires_in = %v, want > 0", granted["refresh_token_expires_in"])
	}

	access := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/refresh", refreshToken, nil), http.StatusOK)
	wantField(t, access, "token_type", "bearer")
	accessToken, _ = access["access_token"].(string)
	if accessToken == "" {
		t.Fatalf("refresh response has no access_token: %v", access)
	}
	return deviceID, refreshToken, accessToken
}

// adminInstance creates a type backed by the test backend and one
// 64×32 instance of it over the admin API. Returns the instance ID and
// its access token.
func (ta *testAPI) adminInstance(t *testing.T, backend *testBackend, typeID, name string) (instanceID, instanceToken string) {
	t.Helper()

	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/hlss-types", testAdminToken, map[string]any{
		"type_id":  typeID,
		"name":     "Type " + typeID,
		"base_url": backend.server.URL,
	}), http.StatusCreated)

	created := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances", testAdminToken, map[string]any{
		"name":              name,
		"type_id":           typeID,
		"display_width":     64,
		"display_height":    32,
		"display_bit_depth": 1,
	}), http.StatusCreated)

	instanceID, _ = created["instance_id"].(string)
	instanceToken, _ = created["access_token"].(string)
	if instanceID == "" || instanceToken == "" {
		t.Fatalf("instance create response missing credentials: %v", created)
	}
	return instanceID, instanceToken
}

func (ta *testAPI) adminAssign(t *testing.T, deviceID, instanceID string, wantStatus int) {
	t.Helper()
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/assign-instance", testAdminToken,
		map[string]string{"instance_id": instanceID}), wantStatus)
}

func TestHealthzHTTP(t *testing.T) {
	ta := newTestAPI(t)
	body := decodeObject(t, ta.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
	wantField(t, body, "status", "ok")
}

func TestDeviceAuthFlowOverHTTP(t *testing.T) {
	ta := newTestAPI(t)

	registered := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/register", "", map[string]any{
		"hardware_id":      "hw-reg-1",
		"firmware_version": "1.0.0",
		"display":          display.Capabilities{Width: 800, Height: 480, BitDepth: 4},
	}), http.StatusCreated)
	wantField(t, registered, "auth_status", "pending")
	if secret, _ := registered["device_secret"].(string); secret == "" {
		t.Fatalf("register response has no device_secret: %v", registered)
	}

	// Same hardware again is a conflict.
	response := ta.do(t, http.MethodPost, "/api/v1/auth/devices/register", "", map[string]any{
		"hardware_id": "hw-reg-1",
		"display":     display.Capabilities{Width: 800, Height: 480, BitDepth: 4},
	})
	decodeObject(t, response, http.StatusConflict)

	deviceID, _, accessToken := ta.deviceCredentials(t, "hw-flow-1", false)

	status := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/auth/devices/status", accessToken, nil), http.StatusOK)
	wantField(t, status, "device_id", deviceID)
	wantField(t, status, "auth_status", "authorized")
	if status["authorized_at"] == nil {
		t.Fatalf("auth status has no authorized_at: %v", status)
	}

	// Renew the refresh token with the access token, then prove the
	// renewed one works.
	renewed := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/renew-refresh", accessToken, nil), http.StatusOK)
	newRefresh, _ := renewed["refresh_token"].(string)
	if newRefresh == "" {
		t.Fatalf("renew-refresh returned no refresh_token: %v", renewed)
	}
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/refresh", newRefresh, nil), http.StatusOK)

	// A wrong secret is a 401.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/token", "", map[string]any{
		"hardware_id":   "hw-flow-1",
		"device_secret": "wrong",
	}), http.StatusUnauthorized)
}

func TestDeviceEndpointsRequireAuth(t *testing.T) {
	ta := newTestAPI(t)
	deviceID, _, accessToken := ta.deviceCredentials(t, "hw-auth-1", false)

	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state", "", nil), http.StatusUnauthorized)
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state", "garbage", nil), http.StatusUnauthorized)

	// A valid token cannot be used against someone else's device path.
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/dev_000000000000/state", accessToken, nil), http.StatusForbidden)

	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/refresh", "garbage", nil), http.StatusUnauthorized)
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/renew-refresh", "", nil), http.StatusUnauthorized)
}

func TestDeliveryLoopOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)

	instanceID, instanceToken := ta.adminInstance(t, backend, "news", "Kitchen News")
	deviceID, _, accessToken := ta.deviceCredentials(t, "hw-loop-1", false)
	ta.adminAssign(t, deviceID, instanceID, http.StatusCreated)

	// Nothing stored yet: NOOP.
	state := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state", accessToken, nil), http.StatusOK)
	wantField(t, state, "action", string(display.ActionNoop))

	// Backend submits a frame.
	frameData := testFrame(256, 0xAA)
	submitted := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, frameData), http.StatusCreated)
	frameID, _ := submitted["frame_id"].(string)
	if frameID == "" {
		t.Fatalf("frame submission returned no frame_id: %v", submitted)
	}
	if hash, _ := submitted["hash"].(string); hash == "" {
		t.Fatalf("frame submission returned no hash: %v", submitted)
	}

	// Same bytes again dedup to the same frame with a 200.
	duplicate := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, frameData), http.StatusOK)
	wantField(t, duplicate, "frame_id", frameID)

	// The device is told to fetch.
	state = decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state", accessToken, nil), http.StatusOK)
	wantField(t, state, "action", string(display.ActionFetchFrame))
	wantField(t, state, "frame_id", frameID)
	wantField(t, state, "active_instance_id", instanceID)

	response := ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/frames/"+frameID, accessToken, nil)
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("frame fetch status = %d", response.StatusCode)
	}
	if got := response.Header.Get("X-Slate-Frame-Id"); got != frameID {
		t.Fatalf("X-Slate-Frame-Id = %q, want %q", got, frameID)
	}
	if got := response.Header.Get("X-Slate-Frame-Encoding"); got != "full" {
		t.Fatalf("X-Slate-Frame-Encoding = %q, want full", got)
	}
	if got := response.Header.Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("Content-Type = %q", got)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading frame body: %v", err)
	}
	if !bytes.Equal(body, frameData) {
		t.Fatalf("frame body does not match submitted data")
	}

	// Acking the frame settles the loop back to NOOP.
	state = decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state?last_frame_id="+frameID, accessToken, nil), http.StatusOK)
	wantField(t, state, "action", string(display.ActionNoop))
}

func TestFrameDeltaOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)

	instanceID, instanceToken := ta.adminInstance(t, backend, "clock", "Wall Clock")
	deviceID, _, accessToken := ta.deviceCredentials(t, "hw-delta-1", true)
	ta.adminAssign(t, deviceID, instanceID, http.StatusCreated)

	first := testFrame(256, 0x00)
	submitted := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, first), http.StatusCreated)
	firstID, _ := submitted["frame_id"].(string)

	// Ack the first frame so it becomes the diff base.
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state?last_frame_id="+firstID, accessToken, nil), http.StatusOK)

	second := testFrame(256, 0x00)
	copy(second[160:168], testFrame(8, 0xFF))
	submitted = decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, second), http.StatusCreated)
	secondID, _ := submitted["frame_id"].(string)

	state := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/state?last_frame_id="+firstID, accessToken, nil), http.StatusOK)
	wantField(t, state, "action", string(display.ActionFetchFrame))
	if available, _ := state["delta_available"].(bool); !available {
		t.Fatalf("delta_available = %v, want true (state %v)", state["delta_available"], state)
	}

	response := ta.do(t, http.MethodGet, "/api/v1/devices/"+deviceID+"/frames/"+secondID+"?base="+firstID, accessToken, nil)
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("delta fetch status = %d", response.StatusCode)
	}
	if got := response.Header.Get("X-Slate-Frame-Encoding"); got != "delta" {
		t.Fatalf("X-Slate-Frame-Encoding = %q, want delta", got)
	}
	if got := response.Header.Get("Content-Type"); got != "application/cbor" {
		t.Fatalf("Content-Type = %q, want application/cbor", got)
	}

	encoded, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading delta body: %v", err)
	}
	delta, err := framediff.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if delta.Kind != framediff.KindPartial {
		t.Fatalf("delta kind = %q, want partial", delta.Kind)
	}
	reconstructed, err := framediff.Apply(delta, first)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(reconstructed, second) {
		t.Fatalf("reconstructed frame does not match submitted frame")
	}
}

func TestFrameSubmissionErrorsOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)
	instanceID, instanceToken := ta.adminInstance(t, backend, "mail", "Mailbox")

	// Wrong credentials.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", "wrong", testFrame(256, 1)), http.StatusUnauthorized)

	// Over the configured size cap.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, testFrame(600, 1)), http.StatusRequestEntityTooLarge)

	// Under the cap but wrong for the instance geometry.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, testFrame(100, 1)), http.StatusBadRequest)

	// Unknown instance.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/inst_000000000000/frames", instanceToken, testFrame(256, 1)), http.StatusNotFound)
}

func TestInputAndNotifyOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)

	instanceID, instanceToken := ta.adminInstance(t, backend, "tasks", "Task Board")
	deviceID, _, accessToken := ta.deviceCredentials(t, "hw-input-1", false)
	ta.adminAssign(t, deviceID, instanceID, http.StatusCreated)

	// A content button forwards to the backend.
	routed := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/devices/"+deviceID+"/inputs", accessToken, map[string]string{
		"button":     "BTN_1",
		"event_type": "PRESS",
	}), http.StatusAccepted)
	wantField(t, routed, "routed_to", instanceID)
	if backend.inputCount() != 1 {
		t.Fatalf("backend received %d inputs, want 1", backend.inputCount())
	}

	// Unknown buttons are a 400.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/devices/"+deviceID+"/inputs", accessToken, map[string]string{
		"button":     "BTN_99",
		"event_type": "PRESS",
	}), http.StatusBadRequest)

	// The broker-side inputs URL in the callback set is not a real
	// sink.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/inputs", instanceToken, map[string]string{
		"button": "BTN_1",
	}), http.StatusMethodNotAllowed)

	// Notify needs the instance bearer and answers 202.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/notify", "", nil), http.StatusUnauthorized)
	accepted := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/notify", instanceToken, nil), http.StatusAccepted)
	wantField(t, accepted, "status", "accepted")
}

func TestAdminAuthOverHTTP(t *testing.T) {
	ta := newTestAPI(t)

	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/status", "", nil), http.StatusUnauthorized)
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/status", "wrong", nil), http.StatusUnauthorized)
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/status", testAdminToken, nil), http.StatusOK)

	// An API with no admin token hides the admin surface.
	disabled, err := NewAPI(APIConfig{
		Engine: ta.engine,
		Store:  ta.engine.store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}
	server := httptest.NewServer(disabled.Routes())
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/admin/status", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	request.Header.Set("Authorization", "Bearer "+testAdminToken)
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("GET /api/v1/admin/status: %v", err)
	}
	decodeObject(t, response, http.StatusNotFound)
}

func TestAdminTypeCRUDOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)

	created := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/hlss-types", testAdminToken, map[string]any{
		"type_id":        "weather",
		"name":           "Weather",
		"base_url":       backend.server.URL,
		"default_width":  64,
		"default_height": 32,
	}), http.StatusCreated)
	wantField(t, created, "type_id", "weather")
	if created["auth_token"] != nil {
		t.Fatalf("auth_token leaked into type response: %v", created)
	}

	// Required fields.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/hlss-types", testAdminToken, map[string]any{
		"type_id": "incomplete",
	}), http.StatusBadRequest)

	// Duplicate IDs conflict.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/hlss-types", testAdminToken, map[string]any{
		"type_id":  "weather",
		"name":     "Weather Again",
		"base_url": backend.server.URL,
	}), http.StatusConflict)

	types := decodeList(t, ta.do(t, http.MethodGet, "/api/v1/admin/hlss-types", testAdminToken, nil), http.StatusOK)
	if len(types) != 1 {
		t.Fatalf("listed %d types, want 1", len(types))
	}

	updated := decodeObject(t, ta.do(t, http.MethodPatch, "/api/v1/admin/hlss-types/weather", testAdminToken, map[string]any{
		"name":      "Weather Station",
		"is_active": false,
	}), http.StatusOK)
	wantField(t, updated, "name", "Weather Station")
	if active, _ := updated["is_active"].(bool); active {
		t.Fatalf("is_active = true after deactivation")
	}

	// Instances of a deactivated type cannot be created.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances", testAdminToken, map[string]any{
		"name":    "Hall Weather",
		"type_id": "weather",
	}), http.StatusConflict)

	// Reactivate, create an instance, and the type becomes
	// undeletable until the instance goes.
	decodeObject(t, ta.do(t, http.MethodPatch, "/api/v1/admin/hlss-types/weather", testAdminToken, map[string]any{
		"is_active": true,
	}), http.StatusOK)
	instance := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances", testAdminToken, map[string]any{
		"name":    "Hall Weather",
		"type_id": "weather",
	}), http.StatusCreated)
	instanceID, _ := instance["instance_id"].(string)

	decodeObject(t, ta.do(t, http.MethodDelete, "/api/v1/admin/hlss-types/weather", testAdminToken, nil), http.StatusConflict)
	decodeObject(t, ta.do(t, http.MethodDelete, "/api/v1/admin/instances/"+instanceID, testAdminToken, nil), http.StatusOK)
	decodeObject(t, ta.do(t, http.MethodDelete, "/api/v1/admin/hlss-types/weather", testAdminToken, nil), http.StatusOK)
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/hlss-types/weather", testAdminToken, nil), http.StatusNotFound)
}

func TestAdminInstanceOpsOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)
	backend.mu.Lock()
	backend.needsConfig = true
	backend.configURL = "http://backend.example/setup"
	backend.mu.Unlock()

	instanceID, instanceToken := ta.adminInstance(t, backend, "recipes", "Recipe Card")

	initialized := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances/"+instanceID+"/initialize", testAdminToken, nil), http.StatusOK)
	wantField(t, initialized, "lifecycle", "needs_configuration")
	wantField(t, initialized, "configuration_url", "http://backend.example/setup")
	if initialized["access_token"] != nil {
		t.Fatalf("access_token leaked outside create: %v", initialized)
	}

	backend.mu.Lock()
	backend.needsConfig = false
	backend.ready = true
	backend.activeScreen = "today"
	backend.mu.Unlock()

	refreshed := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances/"+instanceID+"/refresh-status", testAdminToken, nil), http.StatusOK)
	wantField(t, refreshed, "lifecycle", "ready")
	wantField(t, refreshed, "active_screen", "today")

	// Renaming and geometry updates go through PATCH.
	patched := decodeObject(t, ta.do(t, http.MethodPatch, "/api/v1/admin/instances/"+instanceID, testAdminToken, map[string]any{
		"name": "Dinner Recipes",
	}), http.StatusOK)
	wantField(t, patched, "name", "Dinner Recipes")

	// Frame status: no frames anywhere is in sync.
	status := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/instances/"+instanceID+"/frame-status", testAdminToken, nil), http.StatusOK)
	if inSync, _ := status["in_sync"].(bool); !inSync {
		t.Fatalf("in_sync = %v with no frames anywhere", status["in_sync"])
	}

	// Submit a frame the backend does not report: out of sync, and
	// sync-frame asks the backend to re-send.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/instances/"+instanceID+"/frames", instanceToken, testFrame(256, 0x3C)), http.StatusCreated)
	status = decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/instances/"+instanceID+"/frame-status", testAdminToken, nil), http.StatusOK)
	if inSync, _ := status["in_sync"].(bool); inSync {
		t.Fatalf("in_sync = true while backend has no frame")
	}

	synced := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances/"+instanceID+"/sync-frame", testAdminToken, nil), http.StatusOK)
	if action, _ := synced["action_taken"].(string); action == "" {
		t.Fatalf("sync-frame took no action: %v", synced)
	}
	if backend.sendCount() != 1 {
		t.Fatalf("backend saw %d frame-send requests, want 1", backend.sendCount())
	}
}

func TestAdminDeviceManagementOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	backend := newTestBackend(t)

	firstID, firstToken := ta.adminInstance(t, backend, "news", "Kitchen News")
	secondInstance := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/instances", testAdminToken, map[string]any{
		"name":              "Weather Panel",
		"type_id":           "news",
		"display_width":     64,
		"display_height":    32,
		"display_bit_depth": 1,
	}), http.StatusCreated)
	secondID, _ := secondInstance["instance_id"].(string)
	_ = firstToken

	deviceID, _, _ := ta.deviceCredentials(t, "hw-mgmt-1", false)

	pending := decodeList(t, ta.do(t, http.MethodGet, "/api/v1/admin/devices/pending", testAdminToken, nil), http.StatusOK)
	if len(pending) != 0 {
		t.Fatalf("%d pending devices after authorization, want 0", len(pending))
	}
	authorized := decodeList(t, ta.do(t, http.MethodGet, "/api/v1/admin/devices?status=authorized", testAdminToken, nil), http.StatusOK)
	if len(authorized) != 1 {
		t.Fatalf("%d authorized devices, want 1", len(authorized))
	}
	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/devices?status=bogus", testAdminToken, nil), http.StatusBadRequest)

	// Assignments: first one activates, repeats are idempotent.
	ta.adminAssign(t, deviceID, firstID, http.StatusCreated)
	ta.adminAssign(t, deviceID, firstID, http.StatusOK)
	ta.adminAssign(t, deviceID, secondID, http.StatusCreated)

	detail := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/devices/"+deviceID, testAdminToken, nil), http.StatusOK)
	wantField(t, detail, "active_instance_id", firstID)
	assignments, _ := detail["assignments"].([]any)
	if len(assignments) != 2 {
		t.Fatalf("device detail has %d assignments, want 2", len(assignments))
	}

	// Activating an unassigned instance is a 400.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/set-active-instance", testAdminToken,
		map[string]string{"instance_id": "inst_000000000000"}), http.StatusBadRequest)

	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/set-active-instance", testAdminToken,
		map[string]string{"instance_id": secondID}), http.StatusOK)

	// Cycle with no body steps forward and wraps.
	cycled := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/cycle", testAdminToken, nil), http.StatusOK)
	wantField(t, cycled, "active_instance_id", firstID)
	cycled = decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/cycle", testAdminToken,
		map[string]string{"direction": "prev"}), http.StatusOK)
	wantField(t, cycled, "active_instance_id", secondID)
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/cycle", testAdminToken,
		map[string]string{"direction": "sideways"}), http.StatusBadRequest)

	// Unassigning the active instance moves the pointer to a
	// remaining assignment.
	unassigned := decodeObject(t, ta.do(t, http.MethodDelete, "/api/v1/admin/devices/"+deviceID+"/instances/"+secondID, testAdminToken, nil), http.StatusOK)
	wantField(t, unassigned, "active_instance_id", firstID)

	// Revoke, and the device's next token request is refused.
	revoked := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/revoke", testAdminToken, nil), http.StatusOK)
	wantField(t, revoked, "auth_status", "revoked")
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/token", "", map[string]any{
		"hardware_id":   "hw-mgmt-1",
		"device_secret": "secret-hw-mgmt-1",
	}), http.StatusForbidden)

	// Reauthorize restores it.
	decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/admin/devices/"+deviceID+"/reauthorize", testAdminToken, nil), http.StatusOK)
	granted := decodeObject(t, ta.do(t, http.MethodPost, "/api/v1/auth/devices/token", "", map[string]any{
		"hardware_id":   "hw-mgmt-1",
		"device_secret": "secret-hw-mgmt-1",
	}), http.StatusOK)
	wantField(t, granted, "auth_status", "authorized")

	decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/devices/dev_000000000000", testAdminToken, nil), http.StatusNotFound)
}

func TestAdminStatusOverHTTP(t *testing.T) {
	ta := newTestAPI(t)
	ta.deviceCredentials(t, "hw-status-1", false)

	status := decodeObject(t, ta.do(t, http.MethodGet, "/api/v1/admin/status", testAdminToken, nil), http.StatusOK)
	if status["uptime"] == nil {
		t.Fatalf("status has no uptime: %v", status)
	}
	if version, _ := status["version"].(string); version == "" {
		t.Fatalf("status has no version: %v", status)
	}
	registry, _ := status["registry"].(map[string]any)
	if registry == nil {
		t.Fatalf("status has no registry counts: %v", status)
	}
	byStatus, _ := registry["devices_by_status"].(map[string]any)
	if got, _ := byStatus["authorized"].(float64); got != 1 {
		t.Fatalf("devices_by_status[authorized] = %v, want 1", byStatus["authorized"])
	}
}
