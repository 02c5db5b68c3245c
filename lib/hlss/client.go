// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlss

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slateworks/slate/lib/netutil"
	"github.com/slateworks/slate/lib/schema/display"
)

// defaultTimeout bounds backend calls when the config does not set one.
const defaultTimeout = 30 * time.Second

// errorBodyLimit caps how much of an error response body is carried
// into error messages.
const errorBodyLimit = 512

// Config holds configuration for creating a backend Client.
type Config struct {
	// BaseURL is the backend's API root (the HLSS type's base_url).
	// Required.
	BaseURL string

	// BrokerBaseURL is the broker's own externally reachable root,
	// used to build the callback URLs sent during init. Required.
	BrokerBaseURL string

	// AuthToken is the bearer token for broker→backend calls (the
	// HLSS type's auth_token). Empty means the backend is
	// unauthenticated.
	AuthToken string

	// Timeout bounds every call. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed client for one HLSS backend. Safe for concurrent
// use.
type Client struct {
	baseURL       string
	brokerBaseURL string
	authToken     string
	timeout       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a backend client from the given configuration.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("hlss: BaseURL is required")
	}
	if config.BrokerBaseURL == "" {
		return nil, fmt.Errorf("hlss: BrokerBaseURL is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		brokerBaseURL: strings.TrimRight(config.BrokerBaseURL, "/"),
		authToken:     config.AuthToken,
		timeout:       timeout,
		httpClient:    httpClient,
		logger:        logger,
	}, nil
}

// Initialize runs the init handshake for an instance: the backend
// receives the instance ID, the broker callback URLs, and the display
// geometry it must render for. A handshake that does not come back
// HTTP 200 with status "initialized" is a failure.
//
// Initialize is safe to repeat: backends treat a re-init of a known
// instance as a callback/geometry update.
func (client *Client) Initialize(ctx context.Context, instanceID string, capabilities display.Capabilities) (*InitResult, error) {
	request := InitRequest{
		InstanceID: instanceID,
		Callbacks: Callbacks{
			Frames: fmt.Sprintf("%s/api/v1/instances/%s/frames", client.brokerBaseURL, instanceID),
			Inputs: fmt.Sprintf("%s/api/v1/instances/%s/inputs", client.brokerBaseURL, instanceID),
			Notify: fmt.Sprintf("%s/api/v1/instances/%s/notify", client.brokerBaseURL, instanceID),
		},
		Display: capabilities,
	}

	var response initResponse
	if err := client.do(ctx, http.MethodPost, "/instances/init", request, &response); err != nil {
		return nil, err
	}
	if response.Status != "initialized" {
		return nil, fmt.Errorf("hlss: init handshake returned status %q", response.Status)
	}

	result := &InitResult{NeedsConfiguration: response.NeedsConfiguration}
	if response.NeedsConfiguration {
		result.ConfigurationURL = response.ConfigurationURL
	}
	return result, nil
}

// Status reads the backend's view of an instance.
func (client *Client) Status(ctx context.Context, instanceID string) (*Status, error) {
	var status Status
	if err := client.do(ctx, http.MethodGet, "/instances/"+instanceID+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FrameMetadata reads the metadata of the backend's newest frame for
// an instance. A 404 means the backend has no frame yet — that is a
// successful HasFrame=false result, not an error.
func (client *Client) FrameMetadata(ctx context.Context, instanceID string) (*FrameMetadata, error) {
	var metadata FrameMetadata
	err := client.do(ctx, http.MethodGet, "/instances/"+instanceID+"/frame", nil, &metadata)
	if IsNotFound(err) {
		return &FrameMetadata{InstanceID: instanceID, HasFrame: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &metadata, nil
}

// RequestFrameSend asks the backend to submit its current frame to the
// broker's frames callback. The backend answers with what it did:
// sent, no_frame, or scheduled.
func (client *Client) RequestFrameSend(ctx context.Context, instanceID string) (*FrameSendResult, error) {
	var result FrameSendResult
	if err := client.do(ctx, http.MethodPost, "/instances/"+instanceID+"/frame/send", nil, &result); err != nil {
		return nil, err
	}
	switch result.Status {
	case FrameSendSent, FrameSendNoFrame, FrameSendScheduled:
		return &result, nil
	default:
		return nil, fmt.Errorf("hlss: frame send returned status %q", result.Status)
	}
}

// ForwardInput delivers a device button event to the instance's
// backend.
func (client *Client) ForwardInput(ctx context.Context, instanceID string, event InputEvent) error {
	return client.do(ctx, http.MethodPost, "/instances/"+instanceID+"/inputs", event, nil)
}

// TriggerRender asks the backend to render fresh content for an
// instance. Backends may render synchronously (200) or queue the work
// (202); both are success.
func (client *Client) TriggerRender(ctx context.Context, instanceID string) error {
	return client.do(ctx, http.MethodPost, "/instances/"+instanceID+"/render", nil, nil)
}

// Delete tells the backend an instance is gone and it can release
// whatever it holds for it. A 404 is success — the backend never knew
// about the instance, which is the desired end state anyway.
func (client *Client) Delete(ctx context.Context, instanceID string) error {
	err := client.do(ctx, http.MethodDelete, "/instances/"+instanceID, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// do executes one backend call: applies the timeout, attaches the
// bearer token, JSON-encodes the request body (nil for none), and
// decodes a 2xx response into result (nil to discard). Non-2xx
// responses return a *BackendError.
func (client *Client) do(ctx context.Context, method, path string, requestBody, result any) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("hlss: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	url := client.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("hlss: creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if client.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+client.authToken)
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("hlss: %s %s: %w", method, url, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body := netutil.ErrorBody(response.Body)
		if len(body) > errorBodyLimit {
			body = body[:errorBodyLimit]
		}
		return &BackendError{StatusCode: response.StatusCode, Body: strings.TrimSpace(body)}
	}

	if result == nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(response.Body, netutil.MaxResponseSize))
		return nil
	}
	if err := netutil.DecodeResponse(response.Body, result); err != nil {
		return fmt.Errorf("hlss: decoding %s %s response: %w", method, path, err)
	}
	return nil
}
