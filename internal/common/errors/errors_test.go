package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "field error", err: NewFieldError("email", "Enter a valid email address."), want: http.StatusBadRequest},
		{name: "retry state", err: NewInvalidRetryStateError(4, "sent"), want: http.StatusBadRequest},
		{name: "business rule", err: NewBusinessRuleError("Invalid status", "archived"), want: http.StatusBadRequest},
		{name: "not found", err: NewNotFoundError("ServiceRequest", 9), want: http.StatusNotFound},
		{name: "permission", err: NewPermissionError("Staff access required"), want: http.StatusForbidden},
		{name: "authentication", err: NewAuthenticationError("invalid token"), want: http.StatusUnauthorized},
		{name: "queue down", err: NewQueueUnavailableError(stderrors.New("dial tcp")), want: http.StatusServiceUnavailable},
		{name: "wrapped standard error", err: fmt.Errorf("create: %w", NewNotFoundError("Service", 2)), want: http.StatusNotFound},
		{name: "query failure", err: NewQueryExecutionFailedError("list", stderrors.New("syntax")), want: http.StatusInternalServerError},
		{name: "plain error", err: stderrors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestRetryClassification(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDeliveryFailed))
	assert.Equal(t, 1, GetRetryCount(ErrCodeSearchQueryFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodeValidationFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeQueueUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodePermissionDenied))

	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthentication))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeTemplateNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryExecution))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestNormalize(t *testing.T) {
	cause := stderrors.New("connection reset")
	stdErr := Normalize(cause)

	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.True(t, stderrors.Is(stdErr, cause))
	assert.True(t, HasCode(stdErr, ErrCodeInternal))

	original := NewNotFoundError("ContactInquiry", 3)
	assert.Same(t, original, Normalize(fmt.Errorf("wrapped: %w", original)))
}

type recordingLogger struct {
	errors []map[string]interface{}
	warns  []map[string]interface{}
}

func (l *recordingLogger) Error(_ string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
}

func (l *recordingLogger) Warn(_ string, fields map[string]interface{}) {
	l.warns = append(l.warns, fields)
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		validateOutput func(t *testing.T, body ErrorBody, log *recordingLogger)
	}{
		{
			name:       "validation errors keep their fields",
			err:        NewValidationError([]FieldError{{Field: "deadline", Message: "Deadline cannot be in the past."}}),
			wantStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, body ErrorBody, log *recordingLogger) {
				assert.Equal(t, ErrCodeValidationFailed, body.Error.Code)
				require.Len(t, body.Error.Fields, 1)
				assert.Equal(t, "deadline", body.Error.Fields[0].Field)
				assert.Len(t, log.warns, 1)
				assert.Empty(t, log.errors)
			},
		},
		{
			name:       "internal errors hide details",
			err:        NewQueryExecutionFailedError("list requests", stderrors.New("pq: password authentication failed")),
			wantStatus: http.StatusInternalServerError,
			validateOutput: func(t *testing.T, body ErrorBody, log *recordingLogger) {
				assert.Empty(t, body.Error.Details)
				assert.Empty(t, body.Error.Fields)
				require.Len(t, log.errors, 1)
				assert.Equal(t, "/api/admin/requests", log.errors[0]["route"])
				assert.Equal(t, "DATABASE", log.errors[0]["errorCategory"])
			},
		},
		{
			name:       "unknown errors become internal",
			err:        stderrors.New("nil pointer"),
			wantStatus: http.StatusInternalServerError,
			validateOutput: func(t *testing.T, body ErrorBody, log *recordingLogger) {
				assert.Equal(t, ErrCodeInternal, body.Error.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			status, body := NewErrorHandler(log).Handle("/api/admin/requests", tt.err)
			assert.Equal(t, tt.wantStatus, status)
			tt.validateOutput(t, body, log)
		})
	}
}
