package api

import (
	"context"
	"net/http"
)

// PathResolver provides methods for resolving API endpoint URLs.
// It abstracts the URL construction logic, allowing resource helpers to
// build URLs without knowing the hosts or the user.
type PathResolver interface {
	// serverPath returns the URL of a server-wide resource.
	// Example: serverPath("/status.json") -> "http://imbo/status.json"
	serverPath(path string) string

	// userPath returns the URL of a resource owned by the user.
	// Example: userPath("/images.json") -> "http://imbo/users/christer/images.json"
	userPath(path string) string

	// imagePath returns the URL of a resource below a single image, on the
	// host chosen for that image.
	// Example: imagePath("abc", "/metadata.json") -> "http://imbo/users/christer/images/abc/metadata.json"
	imagePath(identifier, path string) string
}

// HTTPExecutor provides methods for executing HTTP requests.
// Requests are signed or carry an access token depending on the method.
type HTTPExecutor interface {
	// do executes a request with an optional JSON body and decodes the
	// response, which must be a JSON object.
	do(ctx context.Context, method, url string, body any) (map[string]any, error)

	// doRaw executes a request with a raw body and returns the body and the
	// response it was read from.
	doRaw(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, *http.Response, error)
}

// Requester combines PathResolver and HTTPExecutor to provide
// the complete request surface used by resource helpers.
//
// Resource helpers take a Requester rather than a *Client so tests can
// stub either half:
//
//	type stubExecutor struct{ PathResolver }
//	func (stubExecutor) do(...) (map[string]any, error) { return map[string]any{}, nil }
type Requester interface {
	PathResolver
	HTTPExecutor
}
