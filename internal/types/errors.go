package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Collectors and repositories MUST use these constants
// instead of hardcoded strings so that run outcomes can branch on error kind.
const (
	// Configuration (fatal before any network call)
	ErrCodeConfigMissingCredential ErrorCode = "config_missing_credential"
	ErrCodeConfigInvalid           ErrorCode = "config_invalid"

	// Feed fetch (transient vs terminal)
	ErrCodeFetchFailed      ErrorCode = "feed_fetch_failed"
	ErrCodeFetchExhausted   ErrorCode = "feed_fetch_exhausted"
	ErrCodeFetchCircuitOpen ErrorCode = "feed_circuit_open"

	// Payload decode (malformed body; never retried)
	ErrCodeDecodeFailed ErrorCode = "feed_decode_failed"

	// Record-level validation (recoverable; record dropped, run continues)
	ErrCodeValidationRecord ErrorCode = "validation_record_rejected"

	// Discovery (GBFS feed-name -> URL lookup)
	ErrCodeDiscoveryFeedMissing ErrorCode = "discovery_feed_missing"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to an HTTP status code for the health/status
// API surface. Returns 500 for unrecognized codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "feed_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "discovery_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "config_"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain errors are
// expressed as AppError to enable consistent formatting and outcome branching
// in the collector orchestrators.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// CodeOf extracts the ErrorCode from an error chain. Returns
// ErrCodeInternalUnexpected when the chain contains no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}
