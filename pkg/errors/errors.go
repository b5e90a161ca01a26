// Package errors defines the error envelope returned by the dashboard and stub APIs.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in API error bodies
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeValidationError     = "VALIDATION_ERROR"
	CodeMissingTenant       = "MISSING_TENANT"
	CodeNotFound            = "RESOURCE_NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
)

var statusByCode = map[string]int{
	CodeBadRequest:          http.StatusBadRequest,
	CodeValidationError:     http.StatusBadRequest,
	CodeMissingTenant:       http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
	CodeUpstreamRejected:    http.StatusUnprocessableEntity,
	CodeInternalError:       http.StatusInternalServerError,
	CodeUpstreamUnavailable: http.StatusBadGateway,
	CodeTimeout:             http.StatusGatewayTimeout,
}

// StatusFor returns the HTTP status of an error code. Unknown codes map to 500.
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AppError is an API error: a stable code, a message safe to show to the caller and the HTTP
// status derived from the code.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// New creates an AppError whose status follows its code
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: StatusFor(code)}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds one detail entry
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the cause; it is logged but never rendered
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// Retryable reports whether the same request may succeed later without changes. Only failures
// to reach the inventory service qualify.
func (e *AppError) Retryable() bool {
	return e.Code == CodeUpstreamUnavailable || e.Code == CodeTimeout
}

// ErrBadRequest reports a body that could not be decoded
func ErrBadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

// ErrValidation reports invalid fields; fields may be nil
func ErrValidation(message string, fields map[string]string) *AppError {
	appErr := New(CodeValidationError, message)
	if len(fields) > 0 {
		appErr.Details = fields
	}
	return appErr
}

// ErrMissingTenant reports a request made while no tenant is selected
func ErrMissingTenant() *AppError {
	return New(CodeMissingTenant, "tenant context is required")
}

// ErrItemNotFound reports an item id the active tenant does not have
func ErrItemNotFound(id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("inventory item %q not found", id)).WithDetail("itemId", id)
}

// ErrTenantMismatch reports a request addressed to a tenant other than the active one
func ErrTenantMismatch(requested, active string) *AppError {
	return New(CodeConflict, fmt.Sprintf("tenant %s is not the active tenant", requested)).
		WithDetail("activeTenant", active)
}

// ErrUpstreamRejected carries the reason the inventory service refused a request
func ErrUpstreamRejected(reason string) *AppError {
	if reason == "" {
		reason = "request rejected by inventory service"
	}
	return New(CodeUpstreamRejected, reason)
}

// ErrUpstream reports that service could not be reached. A deadline is reported as TIMEOUT.
func ErrUpstream(service string, err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return New(CodeTimeout, service+" did not respond in time").Wrap(err)
	}
	return New(CodeUpstreamUnavailable, service+" is temporarily unavailable").Wrap(err)
}

// ErrInternal reports an unexpected failure
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return New(CodeInternalError, message)
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError returns the AppError in err's chain, or wraps err as an internal error
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
