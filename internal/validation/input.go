package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input limits to prevent resource exhaustion
const (
	MaxIdentifierLength = 255
	MaxUserLength       = 255
	MaxJSONPayload      = 1048576 // 1MB for metadata documents
	MaxURLLength        = 2048
)

// ValidateImageIdentifier checks an image identifier as given on the
// command line. An extension such as ".png" is allowed.
func ValidateImageIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("image identifier cannot be empty")
	}
	if strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("image identifier %q must not contain '/', '?' or '#'", id)
	}
	if n := utf8.RuneCountInString(id); n > MaxIdentifierLength {
		return fmt.Errorf("image identifier exceeds maximum length of %d characters (got %d)", MaxIdentifierLength, n)
	}
	return nil
}

// ValidateUser checks a user name.
func ValidateUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if strings.Contains(user, "/") {
		return fmt.Errorf("user %q must not contain '/'", user)
	}
	if n := utf8.RuneCountInString(user); n > MaxUserLength {
		return fmt.Errorf("user exceeds maximum length of %d characters (got %d)", MaxUserLength, n)
	}
	return nil
}

// ParseMetadata decodes a metadata document, which must be a JSON object.
func ParseMetadata(payload string) (map[string]any, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, fmt.Errorf("metadata cannot be empty")
	}
	if len(payload) > MaxJSONPayload {
		return nil, fmt.Errorf("metadata exceeds maximum size of %d bytes (got %d)", MaxJSONPayload, len(payload))
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("metadata must be a JSON object")
	}
	return m, nil
}

// ParsePositiveInt parses a string as a positive integer.
func ParsePositiveInt(s string, fieldName string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", fieldName, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", fieldName)
	}
	return int(n), nil
}
