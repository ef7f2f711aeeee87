// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and maps
// domain errors onto status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"moneymind/internal/core"
	"moneymind/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	hasBody    bool
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// idBody is returned by operations that create a row.
type idBody struct {
	ID string `json:"id"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A typed nil pointer
// encodes as null.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.hasBody = true
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if !b.hasBody {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response body", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// OK creates a 200 response carrying v.
func OK(v any) *JSONResponseBuilder {
	return NewJSONResponse().Body(v)
}

// Created creates a 201 response carrying the new row's id.
func Created(id string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusCreated).Body(idBody{ID: id})
}

// NoContent creates an empty 204 response.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// FromError maps a service error onto a response. Unexpected errors are
// logged and their text is not exposed.
func FromError(ctx context.Context, err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return ErrorResponse(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrUnauthenticated):
		return ErrorResponse(http.StatusUnauthorized, err.Error()).Header("WWW-Authenticate", `Bearer realm="moneymind"`)
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusServiceUnavailable, "request cancelled")
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Request failed",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeInternal).ToSlice()...)
		return ErrorResponse(http.StatusInternalServerError, "internal error")
	}
}
