// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlss

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slateworks/slate/lib/schema/display"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:       server.URL,
		BrokerBaseURL: "http://broker.local:8080",
		AuthToken:     "type-secret",
		HTTPClient:    server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{BrokerBaseURL: "http://broker"}); err == nil {
		t.Error("NewClient accepted a config without BaseURL")
	}
	if _, err := NewClient(Config{BaseURL: "http://backend"}); err == nil {
		t.Error("NewClient accepted a config without BrokerBaseURL")
	}
}

func TestInitialize(t *testing.T) {
	var received InitRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/instances/init" {
			t.Errorf("backend saw %s %s", request.Method, request.URL.Path)
		}
		gotAuth = request.Header.Get("Authorization")
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decoding init request: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		io.WriteString(writer, `{"status":"initialized","needs_configuration":true,"configuration_url":"https://backend.example/setup/abc"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Initialize(context.Background(), "inst_0a1b2c3d4e5f", display.DefaultCapabilities)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if !result.NeedsConfiguration {
		t.Error("NeedsConfiguration = false, want true")
	}
	if result.ConfigurationURL != "https://backend.example/setup/abc" {
		t.Errorf("ConfigurationURL = %q", result.ConfigurationURL)
	}
	if gotAuth != "Bearer type-secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if received.InstanceID != "inst_0a1b2c3d4e5f" {
		t.Errorf("init request instance_id = %q", received.InstanceID)
	}
	if received.Display != display.DefaultCapabilities {
		t.Errorf("init request display = %+v", received.Display)
	}

	wantFrames := "http://broker.local:8080/api/v1/instances/inst_0a1b2c3d4e5f/frames"
	if received.Callbacks.Frames != wantFrames {
		t.Errorf("frames callback = %q, want %q", received.Callbacks.Frames, wantFrames)
	}
	wantNotify := "http://broker.local:8080/api/v1/instances/inst_0a1b2c3d4e5f/notify"
	if received.Callbacks.Notify != wantNotify {
		t.Errorf("notify callback = %q, want %q", received.Callbacks.Notify, wantNotify)
	}
}

func TestInitializeUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		io.WriteString(writer, `{"status":"pending"}`)
	}))
	defer server.Close()

	if _, err := newTestClient(t, server).Initialize(context.Background(), "inst_0a1b2c3d4e5f", display.DefaultCapabilities); err == nil {
		t.Error("Initialize accepted a handshake with status != initialized")
	}
}

func TestInitializeBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Initialize(context.Background(), "inst_0a1b2c3d4e5f", display.DefaultCapabilities)
	var backendError *BackendError
	if !errors.As(err, &backendError) {
		t.Fatalf("Initialize error = %v, want *BackendError", err)
	}
	if backendError.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", backendError.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/instances/inst_0a1b2c3d4e5f/status" {
			t.Errorf("backend saw path %s", request.URL.Path)
		}
		io.WriteString(writer, `{"instance_id":"inst_0a1b2c3d4e5f","ready":true,"active_screen":"game"}`)
	}))
	defer server.Close()

	status, err := newTestClient(t, server).Status(context.Background(), "inst_0a1b2c3d4e5f")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Ready || status.NeedsConfiguration || status.ActiveScreen != "game" {
		t.Errorf("status = %+v", status)
	}
}

func TestFrameMetadataNotFoundMeansNoFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.NotFound(writer, request)
	}))
	defer server.Close()

	metadata, err := newTestClient(t, server).FrameMetadata(context.Background(), "inst_0a1b2c3d4e5f")
	if err != nil {
		t.Fatalf("FrameMetadata on 404: %v", err)
	}
	if metadata.HasFrame {
		t.Error("404 reported HasFrame = true")
	}
	if metadata.InstanceID != "inst_0a1b2c3d4e5f" {
		t.Errorf("InstanceID = %q", metadata.InstanceID)
	}
}

func TestFrameMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		io.WriteString(writer, `{"instance_id":"inst_0a1b2c3d4e5f","has_frame":true,"frame_id":"frm_9f8e7d6c5b4a","width":800,"height":480}`)
	}))
	defer server.Close()

	metadata, err := newTestClient(t, server).FrameMetadata(context.Background(), "inst_0a1b2c3d4e5f")
	if err != nil {
		t.Fatalf("FrameMetadata: %v", err)
	}
	if !metadata.HasFrame || metadata.FrameID != "frm_9f8e7d6c5b4a" || metadata.Width != 800 {
		t.Errorf("metadata = %+v", metadata)
	}
}

func TestRequestFrameSend(t *testing.T) {
	for _, status := range []string{FrameSendSent, FrameSendNoFrame, FrameSendScheduled} {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			json.NewEncoder(writer).Encode(FrameSendResult{Status: status, FrameID: "frm_9f8e7d6c5b4a"})
		}))
		result, err := newTestClient(t, server).RequestFrameSend(context.Background(), "inst_0a1b2c3d4e5f")
		server.Close()
		if err != nil {
			t.Fatalf("RequestFrameSend (%s): %v", status, err)
		}
		if result.Status != status {
			t.Errorf("Status = %q, want %q", result.Status, status)
		}
	}
}

func TestRequestFrameSendUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		io.WriteString(writer, `{"status":"maybe_later"}`)
	}))
	defer server.Close()

	if _, err := newTestClient(t, server).RequestFrameSend(context.Background(), "inst_0a1b2c3d4e5f"); err == nil {
		t.Error("RequestFrameSend accepted an unknown status string")
	}
}

func TestForwardInput(t *testing.T) {
	var received InputEvent
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/instances/inst_0a1b2c3d4e5f/inputs" {
			t.Errorf("backend saw path %s", request.URL.Path)
		}
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decoding input event: %v", err)
		}
	}))
	defer server.Close()

	event := InputEvent{
		Button:    display.Button3,
		EventType: display.EventPress,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := newTestClient(t, server).ForwardInput(context.Background(), "inst_0a1b2c3d4e5f", event); err != nil {
		t.Fatalf("ForwardInput: %v", err)
	}
	if received.Button != display.Button3 || received.EventType != display.EventPress {
		t.Errorf("received event = %+v", received)
	}
}

func TestTriggerRenderAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	if err := newTestClient(t, server).TriggerRender(context.Background(), "inst_0a1b2c3d4e5f"); err != nil {
		t.Fatalf("TriggerRender on 202: %v", err)
	}
}

func TestDelete(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Method != http.MethodDelete {
				t.Errorf("backend saw method %s", request.Method)
			}
			writer.WriteHeader(status)
		}))
		err := newTestClient(t, server).Delete(context.Background(), "inst_0a1b2c3d4e5f")
		server.Close()
		if err != nil {
			t.Errorf("Delete on %d: %v", status, err)
		}
	}
}

func TestDeleteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := newTestClient(t, server).Delete(context.Background(), "inst_0a1b2c3d4e5f"); err == nil {
		t.Error("Delete swallowed a 500")
	}
}

func TestTimeoutBoundsCalls(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client, err := NewClient(Config{
		BaseURL:       server.URL,
		BrokerBaseURL: "http://broker.local:8080",
		Timeout:       20 * time.Millisecond,
		HTTPClient:    server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	start := time.Now()
	_, err = client.Status(context.Background(), "inst_0a1b2c3d4e5f")
	if err == nil {
		t.Fatal("Status returned despite a hung backend")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestBackendErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		for range 100 {
			io.WriteString(writer, "very long diagnostic output. ")
		}
	}))
	defer server.Close()

	err := newTestClient(t, server).TriggerRender(context.Background(), "inst_0a1b2c3d4e5f")
	var backendError *BackendError
	if !errors.As(err, &backendError) {
		t.Fatalf("error = %v, want *BackendError", err)
	}
	if len(backendError.Body) > errorBodyLimit {
		t.Errorf("error body is %d bytes, cap is %d", len(backendError.Body), errorBodyLimit)
	}
}
