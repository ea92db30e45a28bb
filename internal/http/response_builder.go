// Package http exposes the budget engine as a JSON API.
//
// This file implements the builder used for every response, plus the single
// place where service errors are mapped to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budgets/internal/core"
	"budgets/internal/log"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
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

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: errorPayload{Code: code, Message: message}})
}

var (
	errBadRequest      = errors.New("bad request")
	errMissingIdentity = errors.New("missing or invalid identity")
)

// errorFor maps a service error to a response. Unknown errors become a
// generic 500 so internal details never leak.
func errorFor(err error) *ResponseBuilder {
	var exceeded *core.BudgetExceededError
	switch {
	case errors.As(err, &exceeded):
		return NewResponse().Status(http.StatusConflict).JSON(errorBody{Error: errorPayload{
			Code:    "budget_exceeded",
			Message: err.Error(),
			Details: map[string]any{
				"category_id":    exceeded.CategoryID,
				"category_title": exceeded.CategoryTitle,
				"allocated":      exceeded.Allocated.String(),
				"approved":       exceeded.Approved.String(),
				"requested":      exceeded.Requested.String(),
				"remaining":      exceeded.Remaining().String(),
			},
		}})
	case errors.Is(err, core.ErrInvalidTransition):
		return ErrorResponse(http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, core.ErrInvalidStatus):
		return ErrorResponse(http.StatusUnprocessableEntity, "invalid_status", err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		return ErrorResponse(http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, core.ErrNotFound):
		return ErrorResponse(http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errMissingIdentity):
		return ErrorResponse(http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, core.ErrUnauthorized):
		return ErrorResponse(http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, errBadRequest):
		return ErrorResponse(http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, core.ErrStorageUnavailable):
		return ErrorResponse(http.StatusServiceUnavailable, "storage_unavailable", "storage temporarily unavailable, retry later")
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal", "internal server error")
	}
}

// writeError writes the mapped response and logs anything that is not the caller's fault.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.logs.LogError(r.Context(), "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
	}
	resp.Write(w)
}
