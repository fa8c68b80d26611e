// Package http serves the JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses and the single mapping from service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/core"
	"budgetplanner/internal/export"
	applog "budgetplanner/internal/log"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the encoded body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	b.raw = nil
	return b
}

// Attachment sets a downloadable body.
func (b *ResponseBuilder) Attachment(filename, contentType string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = `attachment; filename="` + filename + `"`
	b.payload = nil
	b.raw = body
	return b
}

// Write sends the built response to w.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.raw != nil {
		w.WriteHeader(b.statusCode)
		_, _ = w.Write(b.raw)
		return
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the JSON error notification shown by clients.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingUser), errors.Is(err, auth.ErrNoIdentity):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes its notification. A request whose client
// has gone away gets nothing written.
func writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	ctx := r.Context()
	if ctx.Err() != nil {
		applog.FromContext(ctx).DebugContext(ctx, "Client went away", applog.FieldError, err)
		return
	}
	status := statusFor(err)
	if status >= 500 {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed", err,
			applog.ComponentHTTP, operation, applog.ErrorTypeInternal)
	} else {
		applog.FromContext(ctx).WarnContext(ctx, "Request rejected",
			applog.FieldError, err,
			applog.FieldOperation, operation,
			applog.FieldStatusCode, status)
	}
	ErrorResponse(status, err.Error()).Write(w)
}
