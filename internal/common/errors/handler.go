package errors

// ErrorHandler normalizes errors returned by handlers and logs them once.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// ErrorBody is the JSON envelope written for failed API calls.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  []FieldError           `json:"fields,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle returns the HTTP status and body for err. Internal failures are
// logged with full detail and reported without it.
func (h *ErrorHandler) Handle(route string, err error) (int, ErrorBody) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr)

	fields := map[string]interface{}{
		"route":         route,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"status":        status,
	}
	if status >= 500 {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}

	payload := ErrorPayload{
		Code:    stdErr.Code,
		Message: stdErr.Message,
	}
	if status < 500 {
		payload.Details = stdErr.Details
		if fe, ok := stdErr.Metadata["fields"].([]FieldError); ok {
			payload.Fields = fe
		}
	}
	return status, ErrorBody{Error: payload}
}
