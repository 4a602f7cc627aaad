package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

const (
	// ErrRoutingUnresolved means no root authority is configured. This is a
	// configuration error surfaced at load/startup, never at runtime.
	ErrRoutingUnresolved ErrorCode = "ROUTING_UNRESOLVED"

	// ErrInvalidTransition means an event arrived for a terminal or otherwise
	// incompatible conversation state. Logged and discarded.
	ErrInvalidTransition ErrorCode = "INVALID_STATE_TRANSITION"

	// ErrStaleTimeout means a scheduled callback fired against an outdated
	// timer generation. Logged and discarded, never retried.
	ErrStaleTimeout ErrorCode = "STALE_TIMEOUT"

	// ErrDeliveryFailure means a gateway send failed after retries.
	ErrDeliveryFailure ErrorCode = "DELIVERY_FAILURE"

	// ErrUnauthorized means an actor attempted an operation it does not own,
	// e.g. cancelling someone else's question.
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrMisconfiguredLoop means the resolver returned a responder already
	// tried at a lower level. Escalation still advances; this marks the
	// warning condition.
	ErrMisconfiguredLoop ErrorCode = "MISCONFIGURED_LOOP"

	// ErrNotFound means the referenced conversation does not exist.
	ErrNotFound ErrorCode = "NOT_FOUND"

	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Retryable      bool      `json:"retryable"`
	Cause          error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithConversation tags the error with the conversation it belongs to.
func (e *Error) WithConversation(id string) *Error {
	e.ConversationID = id
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
