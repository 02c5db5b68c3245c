// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Slate-hlss-mock is a stand-in HLSS backend for integration tests and
// local development. It implements the whole backend contract the
// broker speaks — init handshake, status, frame metadata, frame send,
// input forwarding, render, delete — stores everything in memory, and
// renders deterministic test-pattern frames at whatever geometry the
// init handshake declares.
//
// Point an HLSS type's base_url at the mock and it behaves like a real
// backend: a render request produces a fresh frame followed by a notify
// callback, and a frame-send request submits the current frame through
// the broker's frames callback. The broker's frame-status and
// sync-frame admin operations converge against it without manual help.
//
// Callbacks authenticate with the instance's access token, which only
// the broker reveals at instance creation. Register it out of band:
//
//	curl -X PUT localhost:8090/control/instances/inst_e49a102b77c1/token \
//	    -d '{"access_token":"..."}'
//
// Beyond the backend contract the mock exposes:
//   - GET /status: operation counters for test assertions
//   - GET /control/instances: every instance the mock knows, with frame and input state
//   - GET /control/instances/{id}/inputs: the input events forwarded to an instance so far
//   - PUT /control/instances/{id}/token: register the instance access token
//   - POST /control/instances/{id}/screen: switch content, render, and notify the broker
//   - GET /configure/{id}: complete configuration when running with --needs-configuration
//
// Input events are recorded, not interpreted; tests assert on them
// through the control surface.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/slateworks/slate/lib/frame"
	"github.com/slateworks/slate/lib/hlss"
	"github.com/slateworks/slate/lib/netutil"
	"github.com/slateworks/slate/lib/schema/display"
	"github.com/slateworks/slate/lib/service"
	"github.com/slateworks/slate/lib/version"
)

// callbackTimeout bounds mock-to-broker callback calls.
const callbackTimeout = 10 * time.Second

// inputLogLimit caps the per-instance input event log.
const inputLogLimit = 256

// defaultScreen is the active screen before any screen change.
const defaultScreen = "default"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr  string
		baseURL     string
		authToken   string
		needsConfig bool
		showVersion bool
	)
	flag.StringVar(&listenAddr, "listen", ":8090", "TCP listen address")
	flag.StringVar(&baseURL, "base-url", "http://127.0.0.1:8090", "externally reachable root, used to build configuration URLs")
	flag.StringVar(&authToken, "auth-token", "", "bearer token the broker must present (empty disables auth)")
	flag.BoolVar(&needsConfig, "needs-configuration", false, "answer init handshakes with needs_configuration until the configuration URL is visited")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("slate-hlss-mock %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	mock := newHLSSMock(mockConfig{
		BaseURL:            baseURL,
		AuthToken:          authToken,
		NeedsConfiguration: needsConfig,
		Logger:             logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting slate-hlss-mock",
		"version", version.Info(),
		"listen_addr", listenAddr,
		"authenticated", authToken != "",
		"needs_configuration", needsConfig)

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: listenAddr,
		Handler: mock.routes(),
		Logger:  logger,
	})
	return server.Serve(ctx)
}

// mockConfig configures the mock backend.
type mockConfig struct {
	BaseURL            string
	AuthToken          string
	NeedsConfiguration bool
	Logger             *slog.Logger
}

// hlssMock holds every instance the broker has initialized, in memory.
type hlssMock struct {
	authToken   string
	baseURL     string
	needsConfig bool
	logger      *slog.Logger
	httpClient  *http.Client

	mu        sync.Mutex
	instances map[string]*mockInstance

	inits       atomic.Uint64
	renders     atomic.Uint64
	frameSends  atomic.Uint64
	inputEvents atomic.Uint64
}

// mockInstance is the mock's state for one broker instance.
type mockInstance struct {
	id string

	// initialized is set by the init handshake. Placeholders created
	// by early token registration stay false until the broker calls
	// init.
	initialized bool

	callbacks   hlss.Callbacks
	display     display.Capabilities
	accessToken string
	configured  bool

	activeScreen string
	generation   int

	frameData []byte
	frameID   string
	frameHash frame.Hash
	frameAt   time.Time

	inputs []hlss.InputEvent
}

func newMockInstance(instanceID string) *mockInstance {
	return &mockInstance{id: instanceID, activeScreen: defaultScreen}
}

func newHLSSMock(cfg mockConfig) *hlssMock {
	return &hlssMock{
		authToken:   cfg.AuthToken,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		needsConfig: cfg.NeedsConfiguration,
		logger:      cfg.Logger,
		httpClient:  &http.Client{Timeout: callbackTimeout},
		instances:   make(map[string]*mockInstance),
	}
}

// routes builds the mock's request router.
func (m *hlssMock) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", m.handleMockStatus)
	mux.HandleFunc("GET /configure/{instance_id}", m.handleConfigure)

	// The backend contract the broker speaks.
	mux.HandleFunc("POST /instances/init", m.backend(m.handleInit))
	mux.HandleFunc("GET /instances/{instance_id}/status", m.backend(m.handleInstanceStatus))
	mux.HandleFunc("GET /instances/{instance_id}/frame", m.backend(m.handleFrameMetadata))
	mux.HandleFunc("POST /instances/{instance_id}/frame/send", m.backend(m.handleFrameSend))
	mux.HandleFunc("POST /instances/{instance_id}/inputs", m.backend(m.handleInputs))
	mux.HandleFunc("POST /instances/{instance_id}/render", m.backend(m.handleRender))
	mux.HandleFunc("DELETE /instances/{instance_id}", m.backend(m.handleDelete))

	// Control surface for tests and manual poking. Unauthenticated;
	// the bearer check only simulates broker-to-backend auth.
	mux.HandleFunc("GET /control/instances", m.handleControlList)
	mux.HandleFunc("GET /control/instances/{instance_id}/inputs", m.handleControlInputs)
	mux.HandleFunc("PUT /control/instances/{instance_id}/token", m.handleControlToken)
	mux.HandleFunc("POST /control/instances/{instance_id}/screen", m.handleControlScreen)

	return mux
}

// backend wraps the handlers the broker calls, enforcing the configured
// bearer token. With no token configured the surface is open, matching
// an HLSS type registered without auth_token.
func (m *hlssMock) backend(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if m.authToken != "" {
			token, _ := service.BearerToken(request)
			if err := service.VerifyBearerToken(m.authToken, token); err != nil {
				m.sendError(writer, http.StatusUnauthorized, "backend credentials rejected")
				return
			}
		}
		next(writer, request)
	}
}

// --- Backend contract ---

// initResponse is the init handshake answer. Mirrors what the broker's
// backend client expects.
type initResponse struct {
	Status             string `json:"status"`
	NeedsConfiguration bool   `json:"needs_configuration"`
	ConfigurationURL   string `json:"configuration_url,omitempty"`
}

func (m *hlssMock) handleInit(writer http.ResponseWriter, request *http.Request) {
	var init hlss.InitRequest
	if err := decodeJSON(request, &init); err != nil {
		m.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if init.InstanceID == "" {
		m.sendError(writer, http.StatusBadRequest, "instance_id is required")
		return
	}
	if err := init.Display.Validate(); err != nil {
		m.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}

	m.mu.Lock()
	inst, ok := m.instances[init.InstanceID]
	if !ok {
		inst = newMockInstance(init.InstanceID)
		m.instances[init.InstanceID] = inst
	}
	// A geometry change invalidates any rendered frame; the next
	// render produces one at the new size.
	if inst.initialized && inst.display != init.Display {
		inst.frameData = nil
		inst.frameID = ""
		inst.frameHash = frame.Hash{}
	}
	inst.initialized = true
	inst.callbacks = init.Callbacks
	inst.display = init.Display
	needsConfig := m.needsConfig && !inst.configured
	m.mu.Unlock()

	m.inits.Add(1)
	m.logger.Info("instance initialized",
		"instance_id", init.InstanceID,
		"display", geometry(init.Display).String(),
		"needs_configuration", needsConfig)

	response := initResponse{Status: "initialized", NeedsConfiguration: needsConfig}
	if needsConfig {
		response.ConfigurationURL = m.configurationURL(init.InstanceID)
	}
	m.writeJSON(writer, http.StatusOK, response)
}

func (m *hlssMock) handleInstanceStatus(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	needsConfig := m.needsConfig && !inst.configured
	status := hlss.Status{
		InstanceID:         instanceID,
		Ready:              inst.initialized && !needsConfig,
		NeedsConfiguration: needsConfig,
		ActiveScreen:       inst.activeScreen,
	}
	if needsConfig {
		status.ConfigurationURL = m.configurationURL(instanceID)
	}
	m.mu.Unlock()

	m.writeJSON(writer, http.StatusOK, status)
}

func (m *hlssMock) handleFrameMetadata(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	if inst.frameData == nil {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "no frame rendered for %s", instanceID)
		return
	}
	createdAt := inst.frameAt
	metadata := hlss.FrameMetadata{
		InstanceID: instanceID,
		HasFrame:   true,
		FrameID:    inst.frameID,
		FrameHash:  inst.frameHash.String(),
		ScreenType: inst.activeScreen,
		Width:      inst.display.Width,
		Height:     inst.display.Height,
		CreatedAt:  &createdAt,
	}
	m.mu.Unlock()

	m.writeJSON(writer, http.StatusOK, metadata)
}

func (m *hlssMock) handleFrameSend(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	if inst.frameData == nil {
		m.mu.Unlock()
		m.writeJSON(writer, http.StatusOK, hlss.FrameSendResult{Status: hlss.FrameSendNoFrame})
		return
	}
	// Renders replace the buffer wholesale, so holding a reference
	// after unlock is safe.
	data := inst.frameData
	frameID := inst.frameID
	token := inst.accessToken
	framesURL := inst.callbacks.Frames
	m.mu.Unlock()

	if token == "" {
		m.sendError(writer, http.StatusInternalServerError,
			"no access token registered for %s; PUT /control/instances/%s/token first",
			instanceID, instanceID)
		return
	}
	if err := m.submitFrame(request.Context(), instanceID, framesURL, token, data); err != nil {
		m.sendError(writer, http.StatusBadGateway, "submitting frame to broker: %v", err)
		return
	}

	m.frameSends.Add(1)
	m.writeJSON(writer, http.StatusOK, hlss.FrameSendResult{Status: hlss.FrameSendSent, FrameID: frameID})
}

func (m *hlssMock) handleInputs(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	var event hlss.InputEvent
	if err := decodeJSON(request, &event); err != nil {
		m.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if !event.Button.IsKnown() {
		m.sendError(writer, http.StatusBadRequest, "unknown button %q", event.Button)
		return
	}
	if !event.EventType.IsKnown() {
		m.sendError(writer, http.StatusBadRequest, "unknown event type %q", event.EventType)
		return
	}

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	inst.inputs = append(inst.inputs, event)
	if len(inst.inputs) > inputLogLimit {
		inst.inputs = inst.inputs[len(inst.inputs)-inputLogLimit:]
	}
	m.mu.Unlock()

	m.inputEvents.Add(1)
	m.logger.Info("input received",
		"instance_id", instanceID,
		"button", string(event.Button),
		"event_type", string(event.EventType))
	m.writeJSON(writer, http.StatusOK, map[string]string{"status": "accepted"})
}

func (m *hlssMock) handleRender(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	if !inst.initialized {
		m.mu.Unlock()
		m.sendError(writer, http.StatusConflict, "instance %s has not completed the init handshake", instanceID)
		return
	}
	m.render(inst)
	frameID := inst.frameID
	token := inst.accessToken
	notifyURL := inst.callbacks.Notify
	m.mu.Unlock()

	m.renders.Add(1)
	m.notify(request.Context(), instanceID, notifyURL, token)
	m.writeJSON(writer, http.StatusOK, map[string]string{"status": "rendered", "frame_id": frameID})
}

func (m *hlssMock) handleDelete(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	_, ok := m.instances[instanceID]
	delete(m.instances, instanceID)
	m.mu.Unlock()

	if !ok {
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	m.logger.Info("instance deleted", "instance_id", instanceID)
	m.writeJSON(writer, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Configuration page ---

// handleConfigure is the page behind the configuration URLs handed out
// with --needs-configuration. Visiting it completes setup; the broker
// sees ready=true on its next status refresh.
func (m *hlssMock) handleConfigure(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if ok {
		inst.configured = true
	}
	m.mu.Unlock()

	if !ok {
		http.Error(writer, "unknown instance", http.StatusNotFound)
		return
	}
	m.logger.Info("instance configured", "instance_id", instanceID)
	writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(writer, "instance %s configured\n", instanceID)
}

// --- Control surface ---

type tokenRequest struct {
	AccessToken string `json:"access_token"`
}

// handleControlToken registers the access token the mock presents on
// callbacks for one instance. Registration before the init handshake
// is fine; the entry starts as a placeholder.
func (m *hlssMock) handleControlToken(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	var body tokenRequest
	if err := decodeJSON(request, &body); err != nil {
		m.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if body.AccessToken == "" {
		m.sendError(writer, http.StatusBadRequest, "access_token is required")
		return
	}

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		inst = newMockInstance(instanceID)
		m.instances[instanceID] = inst
	}
	inst.accessToken = body.AccessToken
	m.mu.Unlock()

	m.logger.Info("access token registered", "instance_id", instanceID)
	m.writeJSON(writer, http.StatusOK, map[string]string{"status": "registered"})
}

type screenRequest struct {
	Screen string `json:"screen"`
}

// handleControlScreen switches an instance's content: new active
// screen, fresh frame, notify callback. This is how tests simulate a
// backend deciding to show something else.
func (m *hlssMock) handleControlScreen(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	var body screenRequest
	if err := decodeJSON(request, &body); err != nil {
		m.sendError(writer, http.StatusBadRequest, "%v", err)
		return
	}
	if body.Screen == "" {
		m.sendError(writer, http.StatusBadRequest, "screen is required")
		return
	}

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	if !inst.initialized {
		m.mu.Unlock()
		m.sendError(writer, http.StatusConflict, "instance %s has not completed the init handshake", instanceID)
		return
	}
	inst.activeScreen = body.Screen
	m.render(inst)
	frameID := inst.frameID
	token := inst.accessToken
	notifyURL := inst.callbacks.Notify
	m.mu.Unlock()

	m.renders.Add(1)
	m.logger.Info("screen changed", "instance_id", instanceID, "screen", body.Screen)
	m.notify(request.Context(), instanceID, notifyURL, token)
	m.writeJSON(writer, http.StatusOK, map[string]string{
		"status":   "rendered",
		"screen":   body.Screen,
		"frame_id": frameID,
	})
}

// instanceView is the control surface's dump of one instance.
type instanceView struct {
	InstanceID      string               `json:"instance_id"`
	Initialized     bool                 `json:"initialized"`
	Configured      bool                 `json:"configured"`
	TokenRegistered bool                 `json:"token_registered"`
	Display         display.Capabilities `json:"display"`
	ActiveScreen    string               `json:"active_screen"`
	Generation      int                  `json:"generation"`
	HasFrame        bool                 `json:"has_frame"`
	FrameID         string               `json:"frame_id,omitempty"`
	FrameHash       string               `json:"frame_hash,omitempty"`
	InputCount      int                  `json:"input_count"`
}

func (m *hlssMock) handleControlList(writer http.ResponseWriter, request *http.Request) {
	m.mu.Lock()
	views := make([]instanceView, 0, len(m.instances))
	for _, inst := range m.instances {
		view := instanceView{
			InstanceID:      inst.id,
			Initialized:     inst.initialized,
			Configured:      inst.configured,
			TokenRegistered: inst.accessToken != "",
			Display:         inst.display,
			ActiveScreen:    inst.activeScreen,
			Generation:      inst.generation,
			InputCount:      len(inst.inputs),
		}
		if inst.frameData != nil {
			view.HasFrame = true
			view.FrameID = inst.frameID
			view.FrameHash = inst.frameHash.String()
		}
		views = append(views, view)
	}
	m.mu.Unlock()

	sort.Slice(views, func(i, j int) bool { return views[i].InstanceID < views[j].InstanceID })
	m.writeJSON(writer, http.StatusOK, views)
}

func (m *hlssMock) handleControlInputs(writer http.ResponseWriter, request *http.Request) {
	instanceID := request.PathValue("instance_id")

	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if !ok {
		m.mu.Unlock()
		m.sendError(writer, http.StatusNotFound, "unknown instance %q", instanceID)
		return
	}
	events := make([]hlss.InputEvent, len(inst.inputs))
	copy(events, inst.inputs)
	m.mu.Unlock()

	m.writeJSON(writer, http.StatusOK, events)
}

// mockStatus is the /status payload.
type mockStatus struct {
	Status      string `json:"status"`
	Instances   int    `json:"instances"`
	Inits       uint64 `json:"inits"`
	Renders     uint64 `json:"renders"`
	FrameSends  uint64 `json:"frame_sends"`
	InputEvents uint64 `json:"input_events"`
}

func (m *hlssMock) handleMockStatus(writer http.ResponseWriter, request *http.Request) {
	m.mu.Lock()
	instances := len(m.instances)
	m.mu.Unlock()

	m.writeJSON(writer, http.StatusOK, mockStatus{
		Status:      "ok",
		Instances:   instances,
		Inits:       m.inits.Load(),
		Renders:     m.renders.Load(),
		FrameSends:  m.frameSends.Load(),
		InputEvents: m.inputEvents.Load(),
	})
}

// --- Rendering ---

// render regenerates the instance's frame at its declared geometry.
// Caller holds m.mu. The buffer is replaced, never mutated, so readers
// holding the previous slice are unaffected.
func (m *hlssMock) render(inst *mockInstance) {
	inst.generation++
	data := testPattern(geometry(inst.display), inst.activeScreen, inst.generation)
	inst.frameData = data
	inst.frameID = frame.NewFrameID()
	inst.frameHash = frame.HashContent(data)
	inst.frameAt = time.Now().UTC()
}

// testPattern fills a framebuffer for the given geometry. The content
// is arbitrary; what matters is that it is deterministic and that a
// different screen or generation produces different bytes, so frame
// hashes move exactly when content should have changed.
func testPattern(g frame.Geometry, screen string, generation int) []byte {
	seed := byte(generation)
	for _, c := range []byte(screen) {
		seed = seed*31 + c
	}
	stride := g.Stride()
	data := make([]byte, g.Size())
	for i := range data {
		data[i] = seed + byte(i/stride) + byte(i%stride)
	}
	return data
}

// geometry translates declared panel capabilities into the packed
// framebuffer geometry submissions must match.
func geometry(capabilities display.Capabilities) frame.Geometry {
	return frame.Geometry{
		Width:        capabilities.Width,
		Height:       capabilities.Height,
		BitsPerPixel: capabilities.BitDepth,
	}
}

// --- Broker callbacks ---

// submitFrame POSTs raw framebuffer bytes to the broker's frames
// callback, authenticated with the instance access token.
func (m *hlssMock) submitFrame(ctx context.Context, instanceID, url, token string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/octet-stream")
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := m.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("broker answered HTTP %d: %s",
			response.StatusCode, strings.TrimSpace(netutil.ErrorBody(response.Body)))
	}

	var created struct {
		FrameID string `json:"frame_id"`
	}
	if err := netutil.DecodeResponse(response.Body, &created); err != nil {
		return fmt.Errorf("decoding broker response: %w", err)
	}
	m.logger.Info("frame submitted",
		"instance_id", instanceID,
		"broker_frame_id", created.FrameID,
		"bytes", len(data))
	return nil
}

// notify tells the broker the instance has new content. Best effort:
// failures are logged, not returned — the frame is still there for the
// next frame-send request.
func (m *hlssMock) notify(ctx context.Context, instanceID, url, token string) {
	if token == "" {
		m.logger.Warn("no access token registered; skipping notify", "instance_id", instanceID)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		m.logger.Warn("building notify request", "instance_id", instanceID, "error", err)
		return
	}
	request.Header.Set("Authorization", "Bearer "+token)

	response, err := m.httpClient.Do(request)
	if err != nil {
		m.logger.Warn("notify callback failed", "instance_id", instanceID, "error", err)
		return
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		m.logger.Warn("notify callback rejected",
			"instance_id", instanceID,
			"status", response.StatusCode,
			"body", strings.TrimSpace(netutil.ErrorBody(response.Body)))
		return
	}
	io.Copy(io.Discard, io.LimitReader(response.Body, netutil.MaxResponseSize))
	m.logger.Debug("broker notified", "instance_id", instanceID)
}

// --- Response helpers ---

type errorResponse struct {
	Error string `json:"error"`
}

func (m *hlssMock) sendError(writer http.ResponseWriter, status int, format string, args ...any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(errorResponse{Error: fmt.Sprintf(format, args...)}); err != nil {
		m.logger.Warn("writing JSON error response", "error", err, "status", status)
	}
}

func (m *hlssMock) writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		m.logger.Warn("writing JSON response", "error", err)
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

// configurationURL builds the user-facing setup URL for an instance.
func (m *hlssMock) configurationURL(instanceID string) string {
	return m.baseURL + "/configure/" + instanceID
}
