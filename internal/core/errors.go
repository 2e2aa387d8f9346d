// Package core provides the typed errors shared across the request layers.
package core

import (
	"fmt"
)

// NotInitializedError reports a fetch attempted on a session that was never
// opened or has already been closed. This is a programmer error, not a
// transient condition, and is never retried.
type NotInitializedError struct {
	Op string
}

// Error implements the error interface.
func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("aareguru: %s called on an uninitialized or closed session", e.Op)
}

// NewNotInitializedError creates a NotInitializedError for the given operation.
func NewNotInitializedError(op string) *NotInitializedError {
	return &NotInitializedError{Op: op}
}

// NetworkError reports a connection failure or timeout while talking to the
// upstream API. The underlying transport error is preserved for unwrapping.
type NetworkError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("aareguru: network error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements the error unwrapping interface.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a NetworkError for the given endpoint.
func NewNetworkError(endpoint string, err error) *NetworkError {
	return &NetworkError{Endpoint: endpoint, Err: err}
}

// HTTPStatusError reports a non-success status code from the upstream API.
// It carries the status code so callers can distinguish 404s from 5xx.
type HTTPStatusError struct {
	Endpoint   string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("aareguru: unexpected status %d from %s", e.StatusCode, e.Endpoint)
}

// NewHTTPStatusError creates an HTTPStatusError for the given endpoint.
func NewHTTPStatusError(endpoint string, statusCode int) *HTTPStatusError {
	return &HTTPStatusError{Endpoint: endpoint, StatusCode: statusCode}
}

// ValidationError reports a response body that does not match the schema
// expected for the endpoint. It usually signals an upstream contract change.
// A value that fails validation is never cached.
type ValidationError struct {
	Endpoint string
	Reason   string
	Err      error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aareguru: invalid response from %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("aareguru: invalid response from %s: %s", e.Endpoint, e.Reason)
}

// Unwrap implements the error unwrapping interface.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given endpoint.
func NewValidationError(endpoint, reason string, err error) *ValidationError {
	return &ValidationError{Endpoint: endpoint, Reason: reason, Err: err}
}
