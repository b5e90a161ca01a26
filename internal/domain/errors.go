package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of gateway-bound operations
type ErrorKind string

const (
	// KindNetwork is a transport or connect failure; retried only by the next scheduled poll.
	KindNetwork ErrorKind = "NetworkError"
	// KindServerRejected is a response with success=false; carries the server's reason.
	KindServerRejected ErrorKind = "ServerRejected"
	// KindStaleResponse is a response whose tenant or session is no longer active.
	KindStaleResponse ErrorKind = "StaleResponse"
	// KindNotFound is an item id unknown to the cache or the gateway.
	KindNotFound ErrorKind = "NotFound"
	// KindValidation is a draft or patch that breaks item invariants.
	KindValidation ErrorKind = "Validation"
	// KindMissingTenant is an operation issued without an active tenant.
	KindMissingTenant ErrorKind = "MissingTenant"
)

// Sentinels for errors.Is checks against an *Error of the same kind
var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrServerRejected = &Error{Kind: KindServerRejected}
	ErrStaleResponse  = &Error{Kind: KindStaleResponse, Message: "response discarded: tenant no longer active"}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrMissingTenant  = &Error{Kind: KindMissingTenant, Message: "no active tenant"}
)

// Error is a classified inventory error
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewNetworkError wraps a transport failure
func NewNetworkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: op + " failed", Err: err}
}

// NewServerRejected records a success=false response with the server's reason
func NewServerRejected(reason string) *Error {
	if reason == "" {
		reason = "request rejected by inventory service"
	}
	return &Error{Kind: KindServerRejected, Message: reason}
}

// NewNotFound reports an unknown item id
func NewNotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("inventory item %q not found", id)}
}

// NewValidationError reports invalid fields
func NewValidationError(fields map[string]string, err error) *Error {
	return &Error{Kind: KindValidation, Message: "invalid inventory item", Fields: fields, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the message to show the user for err. Server rejections surface the
// server's reason; other kinds use a fixed phrase.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "unexpected error"
	}
	switch e.Kind {
	case KindServerRejected, KindNotFound, KindValidation:
		return e.Message
	case KindNetwork:
		return "inventory service unreachable"
	case KindMissingTenant:
		return "no farm selected"
	default:
		return ""
	}
}
