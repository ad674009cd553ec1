package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DecodeBody reads the whole response body and decodes it as a JSON object.
// A body that is not JSON, or is JSON but not an object, yields an
// *InvalidResponseBodyError carrying the response and its status code.
func DecodeBody(resp *http.Response) (map[string]any, error) {
	if resp == nil || resp.Body == nil {
		return nil, &InvalidResponseBodyError{Response: resp, Err: errors.New("no response body")}
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, &InvalidResponseBodyError{StatusCode: resp.StatusCode, Response: resp, Err: err}
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return decodeResponse(resp, body)
}

// decodeResponse decodes body, already read from resp, as a JSON object.
// A decoding failure carries resp.
func decodeResponse(resp *http.Response, body []byte) (map[string]any, error) {
	m, err := decodeObject(resp.StatusCode, body)
	if err != nil {
		var bodyErr *InvalidResponseBodyError
		if errors.As(err, &bodyErr) {
			bodyErr.Response = resp
		}
		return nil, err
	}
	return m, nil
}

func decodeObject(status int, body []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &InvalidResponseBodyError{StatusCode: status, Body: body, Err: err}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidResponseBodyError{
			StatusCode: status,
			Body:       body,
			Err:        fmt.Errorf("expected a JSON object, got %s", jsonKind(v)),
		}
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ImboErrorCode returns error.imboErrorCode from a decoded body.
func ImboErrorCode(m map[string]any) (int, bool) {
	envelope, ok := m["error"].(map[string]any)
	if !ok {
		return 0, false
	}
	code, ok := envelope["imboErrorCode"].(float64)
	if !ok {
		return 0, false
	}
	return int(code), true
}

// errorFromResponse builds an APIError from a failed response. The message
// comes from the error envelope when the body has one.
func errorFromResponse(status int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    http.StatusText(status),
		RequestID:  requestIDFromHeader(header),
	}
	if msg := header.Get("X-Imbo-Error-Message"); msg != "" {
		apiErr.Message = msg
	}
	if code, err := strconv.Atoi(header.Get("X-Imbo-Error-Internalcode")); err == nil {
		apiErr.ImboErrorCode = code
	}

	m, err := decodeObject(status, body)
	if err != nil {
		return apiErr
	}
	if envelope, ok := m["error"].(map[string]any); ok {
		if msg, ok := envelope["message"].(string); ok && msg != "" {
			apiErr.Message = msg
		}
	}
	if code, ok := ImboErrorCode(m); ok {
		apiErr.ImboErrorCode = code
	}
	return apiErr
}

// Helpers for reading decoded JSON objects. Missing or mistyped keys yield
// the zero value.

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func objectField(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

// timeField parses an HTTP date or RFC 3339 value, returning nil when the
// key is missing or unparseable.
func timeField(m map[string]any, key string) *time.Time {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return nil
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123Z, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
