package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/api/jsonapi"
)

// APIError carries an explicit HTTP status for a request failure.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates a new APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

// Error implements error.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// StatusFor maps an error to its HTTP status and title.
//
// Bad caller input is 422 and an embedding backend that cannot produce a
// vector is 503. A provider answering with the wrong dimension, or a failed
// store query, is 500.
func StatusFor(err error) (int, string) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), http.StatusText(apiErr.Code())
	case errors.Is(err, search.ErrProviderMisconfigured):
		return http.StatusInternalServerError, "Embedding Misconfigured"
	case errors.Is(err, search.ErrMalformedVector),
		errors.Is(err, search.ErrDimensionMismatch),
		errors.Is(err, search.ErrMissingQueryInput),
		errors.Is(err, search.ErrEmptyInput),
		errors.Is(err, search.ErrInvalidFilter),
		errors.Is(err, flight.ErrUnknownKind):
		return http.StatusUnprocessableEntity, "Invalid Query"
	case errors.Is(err, search.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, search.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "Embedding Unavailable"
	case errors.Is(err, search.ErrSearchFailed):
		return http.StatusInternalServerError, "Search Failed"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// WriteError writes a JSON:API formatted error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, title := StatusFor(err)
	detail := err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		detail = apiErr.Message()
	}

	requestID := middleware.GetReqID(r.Context())

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request error",
			slog.String("request_id", requestID),
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}

	e := jsonapi.NewError(strconv.Itoa(status), title, detail)
	e.ID = requestID

	WriteDocument(w, status, jsonapi.NewErrorResponse(e))
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteDocument writes a JSON:API document.
func WriteDocument(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", jsonapi.ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}
