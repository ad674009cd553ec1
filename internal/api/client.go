package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/imbo/imbo-cli/internal/debug"
	"github.com/imbo/imbo-cli/internal/validation"
)

const DefaultTimeout = 30 * time.Second

// Credentials identify the user whose images are accessed and the key pair
// used to sign requests.
type Credentials struct {
	User       string
	PublicKey  string
	PrivateKey string
}

// LogValue keeps the private key out of logs.
func (c Credentials) LogValue() slog.Value {
	key := ""
	if c.PrivateKey != "" {
		key = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("user", c.User),
		slog.String("public_key", c.PublicKey),
		slog.String("private_key", key),
	)
}

// Validate reports missing fields.
func (c Credentials) Validate() error {
	var missing []string
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.PublicKey == "" {
		missing = append(missing, "public key")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "private key")
	}
	if len(missing) > 0 {
		return &AuthError{Reason: "missing " + strings.Join(missing, ", ")}
	}
	return nil
}

// Client is the Imbo API client.
//
// Requests go through a Chain: write requests are signed with the key pair,
// read requests carry an access token. Credentials are fixed at construction.
type Client struct {
	Hosts     []string
	HTTP      *http.Client
	UserAgent string
	// Now overrides the clock used for request signatures.
	Now func() time.Time

	creds             Credentials
	transport         http.RoundTripper
	skipURLValidation bool
	validatedHosts    bool
	validateMu        sync.Mutex
}

// Compile-time interface implementation checks
var (
	_ Requester    = (*Client)(nil)
	_ PathResolver = (*Client)(nil)
	_ HTTPExecutor = (*Client)(nil)
)

var (
	validateHostURL   = validation.ValidateHostURL
	validateSourceURL = validation.ValidateSourceURL
)

// New creates a client for the given hosts. Image requests are spread over
// the hosts by image identifier, everything else uses the first one.
func New(hosts []string, creds Credentials) *Client {
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12
	transport.TLSClientConfig.InsecureSkipVerify = false

	trimmed := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.TrimRight(strings.TrimSpace(h), "/"); h != "" {
			trimmed = append(trimmed, h)
		}
	}

	c := &Client{
		Hosts:             trimmed,
		creds:             creds,
		transport:         transport,
		skipURLValidation: os.Getenv("IMBO_TESTING") == "1",
	}
	c.HTTP = &http.Client{
		Timeout:   DefaultTimeout,
		Transport: c.chain(transport),
	}
	return c
}

// newTestClient creates a client with URL validation disabled for testing
func newTestClient(baseURL string, creds Credentials) *Client {
	c := New([]string{baseURL}, creds)
	c.skipURLValidation = true
	return c
}

func (c *Client) chain(transport http.RoundTripper) *Chain {
	stages := []Stage{RequestID()}
	if c.creds.PrivateKey != "" {
		stages = append(stages,
			ForMethods(Authenticate(c.creds.PublicKey, c.creds.PrivateKey, c.now), WriteMethods...),
			ForMethods(AccessToken(c.creds.PrivateKey), ReadMethods...),
		)
	}
	return &Chain{Transport: transport, Stages: stages}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// User returns the user the client acts on.
func (c *Client) User() string { return c.creds.User }

// PublicKey returns the configured public key.
func (c *Client) PublicKey() string { return c.creds.PublicKey }

func (c *Client) ensureHostsValidated() error {
	if len(c.Hosts) == 0 {
		return &RequestError{Reason: "no host configured"}
	}
	if c.skipURLValidation {
		return nil
	}

	c.validateMu.Lock()
	defer c.validateMu.Unlock()

	if c.validatedHosts {
		return nil
	}
	for _, h := range c.Hosts {
		if err := validateHostURL(h); err != nil {
			return fmt.Errorf("URL validation failed: %w", err)
		}
	}
	c.validatedHosts = true
	return nil
}

// hostFor picks the host serving an image. The choice is stable for a
// given identifier.
func (c *Client) hostFor(identifier string) string {
	switch len(c.Hosts) {
	case 0:
		return ""
	case 1:
		return c.Hosts[0]
	}
	return c.Hosts[crc32.ChecksumIEEE([]byte(identifier))%uint32(len(c.Hosts))]
}

func (c *Client) serverPath(path string) string {
	return c.hostFor("") + ensureSlash(path)
}

func (c *Client) userPath(path string) string {
	return c.hostFor("") + "/users/" + url.PathEscape(c.creds.User) + path
}

func (c *Client) imagePath(identifier, path string) string {
	return c.hostFor(identifier) + "/users/" + url.PathEscape(c.creds.User) + "/images/" + url.PathEscape(identifier) + path
}

func ensureSlash(path string) string {
	if path != "" && path[0] != '/' {
		return "/" + path
	}
	return path
}

// do performs a request with an optional JSON body and decodes the
// response object.
func (c *Client) do(ctx context.Context, method, url string, body any) (map[string]any, error) {
	var payload []byte
	contentType := ""
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		contentType = "application/json"
	}

	respBody, resp, err := c.executeRequest(ctx, method, url, payload, contentType)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp, respBody)
}

// doRaw performs a request and returns the raw body and the response.
func (c *Client) doRaw(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, *http.Response, error) {
	return c.executeRequest(ctx, method, url, body, contentType)
}

// executeRequest sends one request through the client's chain. The returned
// response has its body already read into the returned bytes and rewound.
// Responses with status 400 and above are returned together with an
// *APIError wrapped in a *ContextualError naming the request.
func (c *Client) executeRequest(ctx context.Context, method, url string, body []byte, contentType string) ([]byte, *http.Response, error) {
	if err := c.ensureHostsValidated(); err != nil {
		return nil, nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json, image/*")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("request failed", "method", method, "url", debug.RedactURL(url), "error", err)
		}
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	if debug.IsEnabled(ctx) {
		sent := req
		if resp.Request != nil {
			sent = resp.Request
		}
		attrs := append(debug.RequestAttrs(sent),
			"status", resp.StatusCode,
			"request_id", requestIDFromHeader(resp.Header),
			"duration", time.Since(start))
		slog.Debug("request complete", attrs...)
	}

	if resp.StatusCode >= 400 {
		apiErr := errorFromResponse(resp.StatusCode, resp.Header, respBody)
		if apiErr.RequestID == "" && resp.Request != nil {
			apiErr.RequestID = resp.Request.Header.Get(HeaderRequestID)
		}
		return respBody, resp, WrapError(method, debug.RedactURL(url), resp.StatusCode, apiErr)
	}
	return respBody, resp, nil
}

func requestIDFromHeader(header http.Header) string {
	if header == nil {
		return ""
	}
	if id := header.Get("X-Request-Id"); id != "" {
		return id
	}
	return header.Get("X-Imbo-Request-Id")
}
