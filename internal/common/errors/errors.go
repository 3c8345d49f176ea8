// Package errors provides the standardized error taxonomy shared by the HTTP
// layer, the stores and the notification pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	ErrCodeAuthentication     ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeBusinessRule       ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeInvalidRetryState  ErrorCode = "INVALID_RETRY_STATE"
	ErrCodeTemplateNotFound   ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeDispatchFailed     ErrorCode = "DISPATCH_FAILED"
	ErrCodeDeliveryFailed     ErrorCode = "DELIVERY_FAILED"
	ErrCodeQueueUnavailable   ErrorCode = "QUEUE_UNAVAILABLE"
	ErrCodeCacheUnavailable   ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecution     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed  ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable validation error carrying field details.
func NewValidationError(fields []FieldError) *StandardError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   strings.Join(parts, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"fields": fields},
		Timestamp: time.Now().UTC(),
	}
}

// NewFieldError is shorthand for a validation error on one field.
func NewFieldError(field, message string) *StandardError {
	return NewValidationError([]FieldError{{Field: field, Message: message}})
}

func NewNotFoundError(resource string, id interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %v", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPermissionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   "Permission denied",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessRule,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRetryStateError is returned when a ledger entry that is not failed is retried.
func NewInvalidRetryStateError(entryID int64, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRetryState,
		Message:   "Can only retry failed notifications",
		Details:   fmt.Sprintf("notificationId: %d, status: %s", entryID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error.
func NewTemplateNotFoundError(kind, language string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in registry",
		Details:   fmt.Sprintf("kind: %s, language: %s", kind, language),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchError wraps a rendering or lookup failure inside the dispatcher.
func NewDispatchError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   fmt.Sprintf("Failed to dispatch %s notification", kind),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDeliveryFailureError describes a mail transport failure.
func NewDeliveryFailureError(transport string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   fmt.Sprintf("Delivery through %s failed", transport),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewQueueUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueUnavailable,
		Message:   "Notification queue unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCacheUnavailableError is returned when Redis cannot be reached for a
// lookup the request depends on.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnection,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecution,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Search query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// As extracts a StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError, wrapping unknown errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDeliveryFailed,
		ErrCodeQueueUnavailable,
		ErrCodeCacheUnavailable,
		ErrCodeDatabaseConnection,
		ErrCodeQueryExecution:
		return 3
	case ErrCodeSearchQueryFailed:
		return 1
	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "PERMISSION") || strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "DISPATCH") ||
		strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "QUEUE") ||
		strings.Contains(codeStr, "RETRY"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error to the status code surfaced by the API.
func HTTPStatus(err error) int {
	stdErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeValidationFailed, ErrCodeInvalidRetryState, ErrCodeBusinessRule:
		return http.StatusBadRequest
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeQueueUnavailable, ErrCodeCacheUnavailable, ErrCodeDatabaseConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
