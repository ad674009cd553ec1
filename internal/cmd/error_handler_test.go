package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/imbo/imbo-cli/internal/api"
	"github.com/imbo/imbo-cli/internal/config"
	"github.com/imbo/imbo-cli/internal/imageurl"
	"github.com/imbo/imbo-cli/internal/resolve"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"nil", nil, nil},
		{"not configured", fmt.Errorf("wrap: %w", config.ErrNotConfigured), []string{"No Imbo account configured", "imbo auth login"}},
		{"auth", &api.AuthError{Reason: "missing private key"}, []string{"Authentication failed: missing private key"}},
		{"api 403", &api.APIError{StatusCode: 403, Message: "Signature mismatch", ImboErrorCode: 0, RequestID: "req-1"},
			[]string{"API error (HTTP 403): Signature mismatch", "local clock", "Request ID: req-1"}},
		{"api 404 imbo code", &api.APIError{StatusCode: 404, Message: "Image not found", ImboErrorCode: 205},
			[]string{"imbo images list", "Imbo error code: 205"}},
		{"invalid body", &api.InvalidResponseBodyError{StatusCode: 200}, []string{"Unexpected response from server (HTTP 200)"}},
		{"unknown transformation", &imageurl.UnknownTransformationError{Name: "thumbnal"}, []string{"Did you mean: ", "thumbnail", "imbo transformations"}},
		{"ambiguous", &resolve.AmbiguousError{Query: "ab", Candidates: []string{"abc", "abd"}}, []string{"Type more characters"}},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), []string{"Connection refused", "imbo auth status"}},
		{"dns", errors.New("lookup imbo.invalid: no such host"), []string{"DNS resolution failed"}},
		{"tls", errors.New("x509: certificate signed by unknown authority"), []string{"TLS certificate error"}},
		{"generic", errors.New("boom"), []string{"Error: boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HandleError(tt.err)
			if tt.err == nil && got != "" {
				t.Fatalf("HandleError(nil) = %q", got)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("missing %q in:\n%s", want, got)
				}
			}
		})
	}
}
