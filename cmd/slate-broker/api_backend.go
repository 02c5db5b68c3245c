// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/slateworks/slate/lib/service"
)

// Backend callback endpoints. These are the URLs the broker hands to an
// HLSS backend during the init handshake; the backend authenticates
// with the instance access token it was given at creation.

type frameCreateResponse struct {
	FrameID   string    `json:"frame_id"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

func (api *API) handleInstanceFrames(writer http.ResponseWriter, request *http.Request) {
	bearer, _ := service.BearerToken(request)

	request.Body = http.MaxBytesReader(writer, request.Body, api.maxFrameBytes)
	data, err := io.ReadAll(request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.sendError(writer, http.StatusRequestEntityTooLarge,
				"frame exceeds %d bytes", api.maxFrameBytes)
			return
		}
		api.sendError(writer, http.StatusBadRequest, "reading frame body: %v", err)
		return
	}

	stored, created, err := api.engine.SubmitFrame(request.Context(), request.PathValue("instance_id"), bearer, data)
	if err != nil {
		api.fail(writer, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	api.writeJSON(writer, status, frameCreateResponse{
		FrameID:   stored.FrameID,
		Hash:      stored.Hash.String(),
		CreatedAt: stored.CreatedAt,
	})
}

func (api *API) handleInstanceNotify(writer http.ResponseWriter, request *http.Request) {
	bearer, _ := service.BearerToken(request)

	if err := api.engine.Notify(request.Context(), request.PathValue("instance_id"), bearer); err != nil {
		api.fail(writer, err)
		return
	}
	api.writeJSON(writer, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleInstanceInputs exists so the callback URL set handed to
// backends is complete; input flows broker→backend, not the reverse.
func (api *API) handleInstanceInputs(writer http.ResponseWriter, request *http.Request) {
	api.sendError(writer, http.StatusMethodNotAllowed,
		"inputs are forwarded by the broker, not submitted to it")
}
