// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

package hlss

import (
	"errors"
	"fmt"
)

// BackendError is a non-success HTTP response from an HLSS backend.
// Transport failures (connection refused, timeout) are NOT
// BackendErrors — those surface as wrapped errors from the HTTP
// client.
type BackendError struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// Body is the response body, truncated for diagnostics. Backends
	// are not required to return structured errors.
	Body string
}

func (err *BackendError) Error() string {
	if err.Body == "" {
		return fmt.Sprintf("hlss: backend returned HTTP %d", err.StatusCode)
	}
	return fmt.Sprintf("hlss: backend returned HTTP %d: %s", err.StatusCode, err.Body)
}

// IsNotFound reports whether err is a backend 404 response.
func IsNotFound(err error) bool {
	var backendError *BackendError
	return errors.As(err, &backendError) && backendError.StatusCode == 404
}
