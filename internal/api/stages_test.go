package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fixedClock() time.Time {
	return time.Date(2012, 10, 11, 15, 10, 17, 0, time.UTC)
}

func TestAuthenticateStage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://imbo/users/christer/images", nil)
	req.Header.Set(HeaderSignature, "stale")

	out, err := Authenticate("public", "private", fixedClock)(req)
	require.NoError(t, err)

	assert.Equal(t, "9ebaac488d4c7d8815151ac91436a3df8bd66aca7e46cd218c83f29aa74e4e4d", out.Header.Get(HeaderSignature))
	assert.Equal(t, "2012-10-11T15:10:17Z", out.Header.Get(HeaderTimestamp))
	assert.Len(t, out.Header.Values(HeaderSignature), 1)

	// the input request is left alone
	assert.Equal(t, "stale", req.Header.Get(HeaderSignature))
	assert.Empty(t, req.Header.Get(HeaderTimestamp))
}

func TestAuthenticateStageFreshTimestamp(t *testing.T) {
	ticks := []time.Time{fixedClock(), fixedClock().Add(time.Second)}
	i := 0
	stage := Authenticate("public", "private", func() time.Time {
		now := ticks[i]
		i++
		return now
	})

	req := httptest.NewRequest(http.MethodDelete, "http://imbo/users/christer/images/abc", nil)
	first, err := stage(req)
	require.NoError(t, err)
	second, err := stage(req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Header.Get(HeaderTimestamp), second.Header.Get(HeaderTimestamp))
	assert.NotEqual(t, first.Header.Get(HeaderSignature), second.Header.Get(HeaderSignature))
}

func TestAccessTokenStage(t *testing.T) {
	const want = "http://imbo/users/u/images.json?page=2&limit=5&accessToken=403e82e3ddfe52e0db128579d54491ea269fbe01288c86bc8694eaefa0f0ce6c"

	tests := []struct {
		name string
		url  string
	}{
		{"no token", "http://imbo/users/u/images.json?page=2&limit=5"},
		{"stale token", "http://imbo/users/u/images.json?page=2&accessToken=deadbeef&limit=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			out, err := AccessToken("key")(req)
			require.NoError(t, err)
			assert.Equal(t, want, out.URL.String())
			assert.Equal(t, tt.url, req.URL.String())
		})
	}
}

func TestRequestIDStage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://imbo/status.json", nil)
	out, err := RequestID()(req)
	require.NoError(t, err)

	_, err = uuid.Parse(out.Header.Get(HeaderRequestID))
	assert.NoError(t, err)
	assert.Empty(t, req.Header.Get(HeaderRequestID))

	req.Header.Set(HeaderRequestID, "given")
	out, err = RequestID()(req)
	require.NoError(t, err)
	assert.Equal(t, "given", out.Header.Get(HeaderRequestID))
}

func TestForMethods(t *testing.T) {
	stage := ForMethods(AccessToken("key"), ReadMethods...)

	post := httptest.NewRequest(http.MethodPost, "http://imbo/users/u/images", nil)
	out, err := stage(post)
	require.NoError(t, err)
	assert.Same(t, post, out)

	head := httptest.NewRequest(http.MethodHead, "http://imbo/users/u/images/abc", nil)
	out, err = stage(head)
	require.NoError(t, err)
	assert.Contains(t, out.URL.RawQuery, "accessToken=")
}

func TestChain(t *testing.T) {
	var seen *http.Request
	chain := &Chain{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			seen = r
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		}),
		Stages: []Stage{
			ForMethods(Authenticate("public", "private", fixedClock), WriteMethods...),
			ForMethods(AccessToken("private"), ReadMethods...),
		},
	}

	req := httptest.NewRequest(http.MethodPost, "http://imbo/users/christer/images", nil)
	resp, err := chain.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "9ebaac488d4c7d8815151ac91436a3df8bd66aca7e46cd218c83f29aa74e4e4d", seen.Header.Get(HeaderSignature))
	assert.Empty(t, seen.URL.RawQuery)
	assert.Empty(t, req.Header.Get(HeaderSignature))
}

func TestChainStageError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	chain := &Chain{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			called = true
			return nil, nil
		}),
		Stages: []Stage{func(*http.Request) (*http.Request, error) { return nil, boom }},
	}

	_, err := chain.RoundTrip(httptest.NewRequest(http.MethodGet, "http://imbo/", nil))
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestChainRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		transport http.RoundTripper
	}{
		{"no transport", nil},
		{"nil response without error", roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, nil })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &Chain{Transport: tt.transport}
			resp, err := chain.RoundTrip(httptest.NewRequest(http.MethodGet, "http://imbo/status.json", nil))
			assert.Nil(t, resp)
			assert.True(t, IsRequestError(err))
		})
	}
}

func TestChainTransportError(t *testing.T) {
	netErr := errors.New("connection refused")
	chain := &Chain{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, netErr })}

	_, err := chain.RoundTrip(httptest.NewRequest(http.MethodGet, "http://imbo/status.json", nil))
	assert.ErrorIs(t, err, netErr)
	assert.False(t, IsRequestError(err))
}
