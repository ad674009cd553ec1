package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error response from the server. ImboErrorCode is
// the error.imboErrorCode field of the envelope, 0 when absent.
type APIError struct {
	StatusCode    int
	Message       string
	ImboErrorCode int
	RequestID     string
}

func (e *APIError) Error() string {
	if e.ImboErrorCode != 0 {
		return fmt.Sprintf("API error (status %d, imbo code %d): %s", e.StatusCode, e.ImboErrorCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// InvalidResponseBodyError is returned when a response body is not a JSON
// object.
type InvalidResponseBodyError struct {
	StatusCode int
	Body       []byte
	Response   *http.Response
	Err        error
}

func (e *InvalidResponseBodyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response body (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("invalid response body (status %d)", e.StatusCode)
}

func (e *InvalidResponseBodyError) Unwrap() error {
	return e.Err
}

// RequestError reports a request that could not be sent as composed, for
// example a transport that returned neither a response nor an error.
type RequestError struct {
	Method string
	URL    string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Reason)
}

// AuthError represents missing or unusable credentials.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Reason)
}

// IsAuthError checks if the error is an authentication error, including
// 401 and 403 responses.
func IsAuthError(err error) bool {
	var e *AuthError
	if errors.As(err, &e) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsInvalidResponseBody checks if the error is an InvalidResponseBodyError.
func IsInvalidResponseBody(err error) bool {
	var e *InvalidResponseBodyError
	return errors.As(err, &e)
}

// IsRequestError checks if the error is a RequestError.
func IsRequestError(err error) bool {
	var e *RequestError
	return errors.As(err, &e)
}

// ContextualError wraps an error response with the request that caused it.
// URL is redacted of access tokens.
type ContextualError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *ContextualError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *ContextualError) Unwrap() error {
	return e.Err
}

// WrapError adds request context to an API error.
func WrapError(method, url string, statusCode int, err error) error {
	return &ContextualError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
