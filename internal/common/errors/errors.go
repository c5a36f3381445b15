// Package errors provides standardized error handling for the claim portal API.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeTokenExpired     ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"

	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeAuthorizationFailed  ErrorCode = "AUTHORIZATION_ERROR"

	ErrCodeUploadTooLarge     ErrorCode = "UPLOAD_TOO_LARGE"
	ErrCodeUploadTypeBlocked  ErrorCode = "UPLOAD_TYPE_BLOCKED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets errors.Is match on the code of another StandardError.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable not-found error.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("%s: %s", strings.ToLower(resource), id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTokenExpiredError creates a non-retryable expired-token error. Public
// handlers must surface this with the same message as a missing token.
func NewTokenExpiredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTokenExpired,
		Message:   "This link is invalid or has expired",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable illegal-transition error.
func NewInvalidStateError(action, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   fmt.Sprintf("Cannot %s in current status", action),
		Details:   fmt.Sprintf("status: %s", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates a non-retryable authentication error.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthorizationError creates a non-retryable capability error.
func NewAuthorizationError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthorizationFailed,
		Message:   "Action not permitted for this role",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadTooLargeError creates a non-retryable upload size error.
func NewUploadTooLargeError(size, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadTooLarge,
		Message:   "File exceeds the maximum allowed size",
		Details:   fmt.Sprintf("size: %d, limit: %d", size, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUploadTypeBlockedError creates a non-retryable MIME allow-list error.
func NewUploadTypeBlockedError(mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadTypeBlocked,
		Message:   "File type is not allowed",
		Details:   fmt.Sprintf("type: %s", mimeType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatusMapping maps internal error codes to HTTP status codes.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeValidationFailed:         400,
	ErrCodeUploadTooLarge:           400,
	ErrCodeUploadTypeBlocked:        400,
	ErrCodeAuthenticationFailed:     401,
	ErrCodeAuthorizationFailed:      403,
	ErrCodeResourceNotFound:         404,
	ErrCodeInvalidState:             409,
	ErrCodeTokenExpired:             410,
	ErrCodeDatabaseConnectionFailed: 500,
	ErrCodeQueryExecutionFailed:     500,
	ErrCodeDatabaseInsertFailed:     500,
	ErrCodeSearchQueryFailed:        500,
	ErrCodeNotificationSendFailed:   500,
	ErrCodeInternal:                 500,
}

// HTTPStatus returns the HTTP status code for an error code.
func HTTPStatus(code ErrorCode) int {
	if status, exists := HTTPStatusMapping[code]; exists {
		return status
	}
	return 500
}

// ==========================
// 4. Utility Functions
// ==========================

// IsNotFound reports whether err is a RESOURCE_NOT_FOUND StandardError.
func IsNotFound(err error) bool {
	stdErr, ok := err.(*StandardError)
	return ok && stdErr.Code == ErrCodeResourceNotFound
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	case strings.Contains(codeStr, "TOKEN"):
		return "TOKEN"
	case strings.Contains(codeStr, "UPLOAD"):
		return "UPLOAD"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
