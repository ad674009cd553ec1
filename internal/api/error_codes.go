package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/imbo/imbo-cli/internal/imageurl"
)

// ErrorCode represents machine-readable error codes for agent error handling.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the signature or access token was rejected (HTTP 403).
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound ErrorCode = "not_found"
	// ErrConflict indicates a conflict with current state (HTTP 409).
	ErrConflict ErrorCode = "conflict"
	// ErrUnsupportedMedia indicates the image type is not supported (HTTP 415).
	ErrUnsupportedMedia ErrorCode = "unsupported_media_type"
	// ErrValidation indicates input validation failed.
	ErrValidation ErrorCode = "validation_failed"
	// ErrInvalidResponse indicates the server body could not be decoded.
	ErrInvalidResponse ErrorCode = "invalid_response"
	// ErrServerError indicates an internal server error (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrTimeout indicates the request timed out.
	ErrTimeout ErrorCode = "timeout"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrServerError, ErrTimeout:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable suggestion for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'imbo auth login' to store credentials"
	case ErrForbidden:
		return "Check the public and private key, and that the local clock is correct"
	case ErrNotFound:
		return "Verify the user and image identifier exist"
	case ErrUnsupportedMedia:
		return "Upload a JPEG, PNG or GIF image"
	case ErrValidation:
		return "Check the input values"
	case ErrBadRequest:
		return "Check the request format and parameters"
	case ErrConflict:
		return "The resource state may have changed; refresh and retry"
	case ErrInvalidResponse:
		return "Check that the host points at an Imbo server"
	case ErrServerError:
		return "The server encountered an error; try again later"
	case ErrTimeout:
		return "The request timed out; check network connectivity and retry"
	default:
		return ""
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 415:
		return ErrUnsupportedMedia
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// StructuredError provides machine-readable error information for agents.
type StructuredError struct {
	Code          ErrorCode      `json:"code"`
	Message       string         `json:"message"`
	Retryable     bool           `json:"retryable"`
	Suggestion    string         `json:"suggestion,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	AllowedValues []string       `json:"allowed_values,omitempty"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements custom JSON marshaling.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type Alias StructuredError
	return json.Marshal((*Alias)(e))
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// NewValidationError creates a StructuredError for input validation failures,
// including the list of allowed values so agents can self-correct.
func NewValidationError(field string, got string, allowed []string) *StructuredError {
	return &StructuredError{
		Code:          ErrValidation,
		Message:       fmt.Sprintf("invalid %s %q: must be one of %s", field, got, strings.Join(allowed, ", ")),
		Retryable:     false,
		Suggestion:    fmt.Sprintf("Use one of: %s", strings.Join(allowed, ", ")),
		AllowedValues: allowed,
		Context:       map[string]any{"field": field, "got": got},
	}
}

// StructuredErrorFromAPIError converts an APIError to a StructuredError.
func StructuredErrorFromAPIError(apiErr *APIError) *StructuredError {
	code := ErrorCodeFromStatus(apiErr.StatusCode)
	ctx := map[string]any{
		"status_code": apiErr.StatusCode,
	}
	if apiErr.ImboErrorCode != 0 {
		ctx["imbo_error_code"] = apiErr.ImboErrorCode
	}
	if apiErr.RequestID != "" {
		ctx["request_id"] = apiErr.RequestID
	}
	se := NewStructuredError(code, apiErr.Message)
	se.Context = ctx
	return se
}

// StructuredErrorFromError attempts to convert any error to a StructuredError.
// When the error names the request that failed, its method and URL are
// added to the context.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var (
		structured *StructuredError
		apiErr     *APIError
		bodyErr    *InvalidResponseBodyError
		authErr    *AuthError
	)
	switch {
	case errors.As(err, &apiErr):
		structured = StructuredErrorFromAPIError(apiErr)
	case errors.As(err, &bodyErr):
		structured = NewStructuredError(ErrInvalidResponse, bodyErr.Error())
		structured.Context = map[string]any{"status_code": bodyErr.StatusCode}
	case errors.As(err, &authErr):
		structured = NewStructuredError(ErrUnauthorized, authErr.Error())
	case imageurl.IsInvalidArgument(err):
		structured = NewStructuredError(ErrValidation, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		structured = NewStructuredError(ErrTimeout, err.Error())
	default:
		structured = NewStructuredError(ErrUnknown, err.Error())
	}

	var reqErr *ContextualError
	if errors.As(err, &reqErr) {
		if structured.Context == nil {
			structured.Context = make(map[string]any)
		}
		structured.Context["method"] = reqErr.Method
		structured.Context["url"] = reqErr.URL
	}
	return structured
}
