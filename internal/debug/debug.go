// Package debug carries the --debug switch through a context and configures
// the process logger. Request URLs logged in debug mode have their access
// token masked.
package debug

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

type contextKey string

const debugKey contextKey = "debug_enabled"

const redacted = "REDACTED"

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(debugKey).(bool); ok {
		return v
	}
	return false
}

// SetupLogger configures slog on stderr. Debug mode lowers the level to
// debug, otherwise only warnings and errors are written.
func SetupLogger(debugEnabled bool) {
	slog.SetDefault(NewLogger(os.Stderr, debugEnabled, false))
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(w io.Writer, debugEnabled, jsonFormat bool) *slog.Logger {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if jsonFormat {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// RedactURL masks the accessToken query parameter. Unparseable input is
// returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	if _, ok := q["accessToken"]; !ok {
		return raw
	}
	q.Set("accessToken", redacted)
	u.RawQuery = q.Encode()
	return u.String()
}

// RequestAttrs returns the log attributes for an outgoing request. The
// signature header is masked.
func RequestAttrs(req *http.Request) []any {
	attrs := []any{
		slog.String("method", req.Method),
		slog.String("url", RedactURL(req.URL.String())),
	}
	if ts := req.Header.Get("X-Imbo-Authenticate-Timestamp"); ts != "" {
		attrs = append(attrs, slog.String("timestamp", ts))
	}
	if req.Header.Get("X-Imbo-Authenticate-Signature") != "" {
		attrs = append(attrs, slog.String("signature", redacted))
	}
	return attrs
}
