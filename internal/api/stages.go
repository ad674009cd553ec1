package api

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/imbo/imbo-cli/internal/signing"
)

// Header names set by the request stages.
const (
	HeaderSignature = "X-Imbo-Authenticate-Signature"
	HeaderTimestamp = "X-Imbo-Authenticate-Timestamp"
	HeaderRequestID = "X-Request-Id"
)

// Stage transforms an outgoing request. A stage must not modify the request
// it is given; it returns a new one instead.
type Stage func(*http.Request) (*http.Request, error)

// Chain is an http.RoundTripper that runs Stages in order and hands the
// result to Transport. Stages hold no per-request state, so a Chain is safe
// for concurrent use.
type Chain struct {
	Transport http.RoundTripper
	Stages    []Stage
}

var _ http.RoundTripper = (*Chain)(nil)

// RoundTrip implements http.RoundTripper.
func (c *Chain) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.Transport == nil {
		return nil, &RequestError{Method: req.Method, URL: req.URL.String(), Reason: "no transport configured"}
	}

	out := req
	for _, stage := range c.Stages {
		next, err := stage(out)
		if err != nil {
			return nil, err
		}
		out = next
	}

	resp, err := c.Transport.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &RequestError{Method: out.Method, URL: out.URL.String(), Reason: "transport returned neither a response nor an error"}
	}
	return resp, nil
}

// Authenticate signs the request with the public and private key and sets
// the signature and timestamp headers, replacing any existing values. now
// is called once per request; nil means time.Now.
func Authenticate(publicKey, privateKey string, now func() time.Time) Stage {
	if now == nil {
		now = time.Now
	}
	return func(req *http.Request) (*http.Request, error) {
		timestamp := signing.Timestamp(now())
		signature := signing.Signature(req.Method, req.URL.String(), publicKey, timestamp, privateKey)

		out := req.Clone(req.Context())
		out.Header.Set(HeaderSignature, signature)
		out.Header.Set(HeaderTimestamp, timestamp)
		return out, nil
	}
}

// AccessToken replaces any accessToken query parameter on the request URL
// with one computed from the rest of the URL.
func AccessToken(privateKey string) Stage {
	return func(req *http.Request) (*http.Request, error) {
		signed, err := url.Parse(signing.WithAccessToken(req.URL.String(), privateKey))
		if err != nil {
			return nil, &RequestError{Method: req.Method, URL: req.URL.String(), Reason: err.Error()}
		}

		out := req.Clone(req.Context())
		out.URL = signed
		return out, nil
	}
}

// RequestID sets an X-Request-Id header when the request has none.
func RequestID() Stage {
	return func(req *http.Request) (*http.Request, error) {
		if req.Header.Get(HeaderRequestID) != "" {
			return req, nil
		}
		out := req.Clone(req.Context())
		out.Header.Set(HeaderRequestID, uuid.NewString())
		return out, nil
	}
}

// ForMethods runs stage only for requests using one of methods.
func ForMethods(stage Stage, methods ...string) Stage {
	return func(req *http.Request) (*http.Request, error) {
		if !slices.Contains(methods, req.Method) {
			return req, nil
		}
		return stage(req)
	}
}

// ReadMethods are authorized with an access token, every other method is
// signed.
var (
	ReadMethods  = []string{http.MethodGet, http.MethodHead}
	WriteMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
)
