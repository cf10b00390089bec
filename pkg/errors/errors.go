package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeRateLimitExhausted ErrorType = "rate_limit_exhausted"
	ErrorTypeAPI                ErrorType = "api"
	ErrorTypeAuth               ErrorType = "auth"
	ErrorTypeParsing            ErrorType = "parsing"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeIdentity           ErrorType = "identity"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// Error is a typed failure carrying the provider status and body when one exists.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Body    string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s error (code %d): %s: %s", e.Type, e.Code, e.Message, e.Body)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Validation builds an argument validation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeValidation, Message: fmt.Sprintf(format, args...)}
}

// Identity builds a stored-series identity error.
func Identity(format string, args ...interface{}) *Error {
	return &Error{Type: ErrorTypeIdentity, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not typed.
func TypeOf(err error) ErrorType {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err wraps an *Error of type t.
func IsType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried.
// A single throttling signal is the only transient failure; everything else is fatal.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimit
}

// FromStatus maps a non-success HTTP status to a typed error.
func FromStatus(statusCode int, body string) *Error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &Error{Type: ErrorTypeRateLimit, Message: "too many requests", Code: statusCode, Body: body}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Type: ErrorTypeAuth, Message: "request was not authorized", Code: statusCode, Body: body}
	default:
		return &Error{Type: ErrorTypeAPI, Message: fmt.Sprintf("unexpected status %d", statusCode), Code: statusCode, Body: body}
	}
}

// As is errors.As, re-exported so callers importing this package need not alias the standard one.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
