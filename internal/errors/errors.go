package errors

import (
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Stage names the pipeline stage that produced the error, if any.
	Stage string `json:"stage,omitempty"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithStage tags the error with the pipeline stage that produced it.
func (e *AppError) WithStage(stage string) *AppError {
	e.Stage = stage
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Stage Error Constructors ---

// UnsupportedFormat creates an error for an audio extension outside the whitelist.
func UnsupportedFormat(ext string, supported []string) *AppError {
	return &AppError{
		Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("Unsupported audio format %q.", ext),
		HTTPStatus: http.StatusUnsupportedMediaType, Retryable: false,
		Details: map[string]any{"extension": ext, "supported": supported},
	}
}

// FileTooLarge creates an error for an input that chunking cannot bring under the threshold.
func FileTooLarge(size, threshold int64) *AppError {
	return &AppError{
		Code: ErrCodeFileTooLarge, Message: "Audio file cannot be split under the provider size limit.",
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"size_bytes": size, "threshold_bytes": threshold},
	}
}

// TranscriptionFailed creates an error for a failed speech-to-text call.
func TranscriptionFailed(reason string) *AppError {
	return &AppError{
		Code: ErrCodeTranscriptionFailed, Message: reason,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
	}
}

// ExtractionFailed creates an error for a failed SOAP extraction.
func ExtractionFailed(reason string) *AppError {
	return &AppError{
		Code: ErrCodeExtractionFailed, Message: reason,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
	}
}

// RenderFailed creates an error for a failed report render.
func RenderFailed(reason string) *AppError {
	return &AppError{
		Code: ErrCodeRenderFailed, Message: reason,
		HTTPStatus: http.StatusBadGateway, Retryable: false,
	}
}

// --- Generic Constructors ---

// ConnectionFailed creates an error for a failed connection to a provider.
func ConnectionFailed(service string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates an error for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// RateLimited creates an error for too many requests.
func RateLimited() *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please wait a moment and try again.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}

// InvalidInput creates an error for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates an error for validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates an error for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// NotFound creates an error for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}
