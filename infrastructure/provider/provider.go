// Package provider adapts remote embedding APIs to search.Embedder.
package provider

import (
	"errors"
	"fmt"
)

// ErrNoVectors indicates the backend answered without any embedding data.
var ErrNoVectors = errors.New("embedding response contained no vectors")

// ProviderError wraps a failed call to a remote embedding backend.
type ProviderError struct {
	operation string
	status    int
	message   string
	err       error
}

// NewProviderError creates a ProviderError. status is the HTTP status code
// when known, zero otherwise.
func NewProviderError(operation string, status int, message string, err error) *ProviderError {
	return &ProviderError{operation: operation, status: status, message: message, err: err}
}

// Operation returns the failed operation name.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status, or zero.
func (e *ProviderError) StatusCode() int { return e.status }

// Error implements error.
func (e *ProviderError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.operation, e.status, e.message)
	}
	return fmt.Sprintf("%s failed: %s", e.operation, e.message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.err }
