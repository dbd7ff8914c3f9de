package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline stage errors
const (
	// ErrCodeUnsupportedFormat indicates the audio file extension is not supported.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeFileTooLarge indicates chunking could not bring a segment under the size threshold.
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// ErrCodeTranscriptionFailed indicates the speech-to-text stage failed.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeExtractionFailed indicates the SOAP extraction stage failed.
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ErrCodeRenderFailed indicates the report rendering stage failed.
	ErrCodeRenderFailed ErrorCode = "RENDER_FAILED"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeConnectionFailed indicates a failed connection to a provider.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited by a provider.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Input and internal errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
	ErrCodeRateLimited:      true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
