package search

import (
	"errors"
	"fmt"

	"github.com/helixml/openflights/domain/flight"
)

// Query path errors.
var (
	ErrMalformedVector      = errors.New("malformed vector")
	ErrDimensionMismatch    = errors.New("dimension mismatch")
	ErrMissingQueryInput    = errors.New("either query_vec or query_text is required")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrSearchFailed         = errors.New("search failed")
	ErrEmptyInput           = errors.New("cannot embed empty text")
)

// ErrProviderMisconfigured is returned when the embedding provider answers
// with vectors of the wrong length. It is a server fault even though the
// wrapped cause matches ErrDimensionMismatch.
var ErrProviderMisconfigured = errors.New("embedding provider misconfigured")

// ErrMissingCredential is returned when no embedding backend is configured.
// It matches ErrEmbeddingUnavailable.
var ErrMissingCredential = fmt.Errorf("%w: embedding credential is not configured; provide query_vec instead of query_text", ErrEmbeddingUnavailable)

// DimensionMismatchError reports a vector whose length differs from the
// configured dimension. It is never retried.
type DimensionMismatchError struct {
	expected int
	got      int
}

// NewDimensionMismatchError creates a DimensionMismatchError.
func NewDimensionMismatchError(expected, got int) *DimensionMismatchError {
	return &DimensionMismatchError{expected: expected, got: got}
}

// Expected returns the configured dimension.
func (e *DimensionMismatchError) Expected() int { return e.expected }

// Got returns the observed dimension.
func (e *DimensionMismatchError) Got() int { return e.got }

// Error implements error.
func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: got %d, expected %d", e.got, e.expected)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// UnavailableError reports that the embedding provider could not produce a
// vector, either because its retry budget ran out or it is not configured.
type UnavailableError struct {
	err error
}

// NewUnavailableError wraps the last provider error.
func NewUnavailableError(err error) *UnavailableError {
	return &UnavailableError{err: err}
}

// Error implements error.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("embedding failed after retries: %v", e.err)
}

// Unwrap returns the last provider error.
func (e *UnavailableError) Unwrap() error { return e.err }

// Is matches ErrEmbeddingUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrEmbeddingUnavailable
}

// SearchError reports a store failure while executing a similarity query.
type SearchError struct {
	kind flight.Kind
	err  error
}

// NewSearchError wraps a store failure for the given kind.
func NewSearchError(kind flight.Kind, err error) *SearchError {
	return &SearchError{kind: kind, err: err}
}

// Kind returns the entity kind that was searched.
func (e *SearchError) Kind() flight.Kind { return e.kind }

// Error implements error.
func (e *SearchError) Error() string {
	return fmt.Sprintf("/similar-%s error: %v", e.kind.Plural(), e.err)
}

// Unwrap returns the store error.
func (e *SearchError) Unwrap() error { return e.err }

// Is matches ErrSearchFailed.
func (e *SearchError) Is(target error) bool {
	return target == ErrSearchFailed
}

// ErrInvalidFilter indicates a filter value outside its accepted range.
var ErrInvalidFilter = errors.New("invalid filter")
