// Package errors defines structured error types shared by the tracker and its front ends.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode defines specific error kinds.
type ErrorCode string

const (
	// ErrValidationFailed is returned when a record fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrUnsupportedFormat is returned when an import file type is not recognized
	ErrUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// ErrNotFound is returned when a record is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConflict is returned when a record with the same model already exists
	ErrConflict ErrorCode = "CONFLICT"

	// ErrStorageError is returned when reading or writing the backing file fails
	ErrStorageError ErrorCode = "STORAGE_ERROR"
	// ErrRateLimited is returned when too many writes are attempted
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrInternal is returned when an unexpected error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// HasCode reports whether err is an ErrorWithStatus carrying code.
func HasCode(err error, code ErrorCode) bool {
	var ews ErrorWithStatus
	return stderrors.As(err, &ews) && ews.Code() == code
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// Validation creates a 400 error listing every validation problem in order.
func Validation(problems []string) *APIError {
	return BadRequest("invalid record: "+strings.Join(problems, "; ")).WithDetail("problems", problems)
}

// Conflict creates a 409 error for a record that already exists.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrConflict, message)
}

// UnsupportedFormat creates a 400 error for an unknown import format.
func UnsupportedFormat(name string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrUnsupportedFormat, fmt.Sprintf("unsupported file type: %s", name))
}

// RateLimited creates a 429 error.
func RateLimited() *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "too many write requests")
}

// Storage creates a 500 error wrapping a failure of the backing file.
func Storage(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrStorageError, message).Wrap(err)
}
