package imageurl

import (
	"errors"
	"fmt"
)

// InvalidURLError is returned when a URL does not point at an image.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid image URL %q: %s", e.URL, e.Reason)
}

// InvalidTransformationError reports an invalid transformation argument.
type InvalidTransformationError struct {
	Name   string
	Reason string
}

func (e *InvalidTransformationError) Error() string {
	return fmt.Sprintf("invalid argument for %s: %s", e.Name, e.Reason)
}

// UnknownTransformationError is returned by Apply for names it cannot map.
type UnknownTransformationError struct {
	Name string
}

func (e *UnknownTransformationError) Error() string {
	return fmt.Sprintf("unknown transformation %q", e.Name)
}

// IsInvalidArgument reports whether err is one of the invalid argument errors
// of this package.
func IsInvalidArgument(err error) bool {
	var urlErr *InvalidURLError
	var transErr *InvalidTransformationError
	var unknownErr *UnknownTransformationError
	return errors.As(err, &urlErr) || errors.As(err, &transErr) || errors.As(err, &unknownErr)
}
