package core

import (
	"errors"
	"fmt"
)

// Error codes, one per failure class of the recognition pipeline.
const (
	ErrCodeDecode  = "DECODE_ERROR"
	ErrCodeEncode  = "ENCODE_ERROR"
	ErrCodeConfig  = "CONFIG_ERROR"
	ErrCodeNetwork = "NETWORK_ERROR"
	ErrCodeHTTP    = "HTTP_ERROR"
	ErrCodeParse   = "PARSE_ERROR"
	ErrCodeIO      = "IO_ERROR"
)

// AppError is the application error type.
// Code identifies the failure class, Message is human readable, Cause is optional.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates a new application error with a formatted message
func NewAppErrorf(code string, cause error, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// HTTPStatusError carries a non-2xx upstream response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d - %s", e.StatusCode, e.Body)
}

// ErrorCode returns the AppError code found in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ErrDecode reports an unreadable or unsupported image.
func ErrDecode(cause error) *AppError {
	return NewAppError(ErrCodeDecode, "failed to decode image", cause)
}

// ErrEncode reports a failure to encode an image or request payload.
func ErrEncode(what string, cause error) *AppError {
	return NewAppErrorf(ErrCodeEncode, cause, "failed to encode %s", what)
}

// ErrInvalidConfig reports a failed configuration check.
func ErrInvalidConfig(field string, reason string) *AppError {
	return NewAppErrorf(ErrCodeConfig, nil, "invalid configuration for %s: %s", field, reason)
}

// ErrPipelineDisabled reports a run attempted while recognition is disabled.
func ErrPipelineDisabled() *AppError {
	return NewAppError(ErrCodeConfig, "recognition is disabled", nil)
}

// ErrMissingCredential reports an empty API key.
func ErrMissingCredential() *AppError {
	return NewAppError(ErrCodeConfig, "API key is not configured", nil)
}

// ErrNetwork reports a transport-level failure.
func ErrNetwork(cause error) *AppError {
	return NewAppError(ErrCodeNetwork, "request to recognition endpoint failed", cause)
}

// ErrHTTPStatus reports a non-2xx upstream response.
func ErrHTTPStatus(statusCode int, body string) *AppError {
	return NewAppError(ErrCodeHTTP, "recognition endpoint returned an error", &HTTPStatusError{
		StatusCode: statusCode,
		Body:       body,
	})
}

// ErrParse reports a malformed upstream response.
func ErrParse(cause error) *AppError {
	return NewAppError(ErrCodeParse, "failed to parse recognition response", cause)
}

// ErrIO reports a persistence failure.
func ErrIO(what string, cause error) *AppError {
	return NewAppErrorf(ErrCodeIO, cause, "failed to %s", what)
}
