// Package errors provides the protocol error taxonomy shared by validators and handlers.
// Every error maps to an HTTP status and a human readable debug message which
// is surfaced to integrators through the X-Debug response header.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// DebugHeader carries the expected-vs-actual diagnostic message.
const DebugHeader = "X-Debug"

// ErrorCode represents specific error types
type ErrorCode string

const (
	// Client identity errors
	ErrCodeClientIDMismatch     ErrorCode = "CLIENT_ID_MISMATCH"
	ErrCodeClientSecretMismatch ErrorCode = "CLIENT_SECRET_MISMATCH"
	ErrCodeInvalidAuthHeader    ErrorCode = "INVALID_AUTHORIZATION_HEADER"

	// Protocol parameter errors
	ErrCodeUnsupportedResponseType ErrorCode = "UNSUPPORTED_RESPONSE_TYPE"
	ErrCodeUnsupportedGrantType    ErrorCode = "UNSUPPORTED_GRANT_TYPE"
	ErrCodeRedirectNotPermitted    ErrorCode = "REDIRECT_URI_NOT_PERMITTED"
	ErrCodeRedirectMismatch        ErrorCode = "REDIRECT_URI_MISMATCH"
	ErrCodeMissingParameter        ErrorCode = "MISSING_PARAMETER"
	ErrCodeSessionMissing          ErrorCode = "SESSION_MISSING"

	// Lookup errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Infrastructure errors
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
)

// ProtocolError represents a request-level failure with its HTTP rendering.
type ProtocolError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Internal   error     `json:"-"`
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error for error wrapping
func (e *ProtocolError) Unwrap() error {
	return e.Internal
}

// IsClientError reports whether the failure was caused by the caller's input.
func (e *ProtocolError) IsClientError() bool {
	return e.HTTPStatus >= 400 && e.HTTPStatus < 500
}

// ExpectedActual formats the diagnostic used throughout the X-Debug header.
func ExpectedActual(descr, expected, actual string) string {
	return fmt.Sprintf("expected %s: %s, actual: %s", descr, expected, actual)
}

// OneOf renders an allow-list as "one of a, b, c".
func OneOf(values []string) string {
	return "one of " + strings.Join(values, ", ")
}

// NewIdentityError creates a client identity error. A client id mismatch on its
// own is a malformed request (400); everything else is an authentication failure.
func NewIdentityError(code ErrorCode, message string) *ProtocolError {
	status := http.StatusUnauthorized
	if code == ErrCodeClientIDMismatch {
		status = http.StatusBadRequest
	}
	return &ProtocolError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// NewAuthenticationError creates a 401 error for a failed protocol check.
func NewAuthenticationError(code ErrorCode, message string) *ProtocolError {
	return &ProtocolError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewBadRequestError creates a 400 error for a malformed request.
func NewBadRequestError(code ErrorCode, message string) *ProtocolError {
	return &ProtocolError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewMissingParameterError reports an absent required query parameter.
func NewMissingParameterError(name string) *ProtocolError {
	return NewBadRequestError(ErrCodeMissingParameter, fmt.Sprintf("missing %s query parameter", name))
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *ProtocolError {
	return &ProtocolError{
		Code:       ErrCodeNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewRateLimitError creates a 429 error.
func NewRateLimitError(message string) *ProtocolError {
	return &ProtocolError{
		Code:       ErrCodeRateLimited,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// WrapStoreError wraps a backend failure as a 500.
func WrapStoreError(err error, operation string) *ProtocolError {
	return &ProtocolError{
		Code:       ErrCodeStoreFailure,
		Message:    fmt.Sprintf("store %s failed", operation),
		HTTPStatus: http.StatusInternalServerError,
		Internal:   err,
	}
}

// AsProtocolError extracts a ProtocolError from an error chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pErr *ProtocolError
	if stderrors.As(err, &pErr) {
		return pErr, true
	}
	return nil, false
}

// GetHTTPStatus extracts HTTP status from error, defaulting to 500
func GetHTTPStatus(err error) int {
	if pErr, ok := AsProtocolError(err); ok {
		return pErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Write renders err as a bodiless response: the status code plus the debug header.
// It must be called before anything else is written to w.
func Write(w http.ResponseWriter, err error) {
	if pErr, ok := AsProtocolError(err); ok {
		if pErr.Message != "" {
			w.Header().Set(DebugHeader, pErr.Message)
		}
		w.WriteHeader(pErr.HTTPStatus)
		return
	}
	w.Header().Set(DebugHeader, err.Error())
	w.WriteHeader(http.StatusInternalServerError)
}
