package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so a
// specific error such as NewDomainError("NOT_FOUND", "plan not found") still
// satisfies errors.Is(err, ErrNotFound).
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrUpstreamUnavailable = NewDomainError("UPSTREAM_UNAVAILABLE", "Upstream service unavailable")
)

// NotFound returns a NOT_FOUND error with a specific message
func NotFound(message string) *DomainError {
	return NewDomainError(ErrNotFound.Code, message)
}

// InvalidInput returns an INVALID_INPUT error wrapping the validation failure
func InvalidInput(cause error) *DomainError {
	return WrapDomainError(ErrInvalidInput.Code, "Invalid input provided", cause)
}

// AlreadyExists returns an ALREADY_EXISTS error with a specific message
func AlreadyExists(message string) *DomainError {
	return NewDomainError(ErrAlreadyExists.Code, message)
}

// UpstreamUnavailable returns a transient UPSTREAM_UNAVAILABLE error
func UpstreamUnavailable(cause error) *DomainError {
	return WrapDomainError(ErrUpstreamUnavailable.Code, "Upstream service unavailable", cause)
}

// IsTransient reports whether err is worth retrying by the delivery layer
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
