// Package dryrun provides dry-run mode functionality for previewing mutations.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"sort"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Preview describes a request that would have been sent to the server.
type Preview struct {
	Method   string
	URL      string
	Resource string
	Details  map[string]any
	Warnings []string
}

// Write outputs the preview to the writer. Details are printed in key order.
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\n[DRY-RUN] Would send %s %s\n", p.Method, p.URL)
	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")

	if p.Resource != "" {
		_, _ = fmt.Fprintf(w, "Resource: %s\n\n", p.Resource)
	}

	if len(p.Details) > 0 {
		keys := make([]string, 0, len(p.Details))
		for k := range p.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  %s: %v\n", k, p.Details[k])
		}
		_, _ = fmt.Fprintln(w)
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "───────────────────────────────────────\n")
	_, _ = fmt.Fprintln(w, "No changes made (dry-run mode)")
}

// Map returns the preview as a JSON-friendly map.
func (p *Preview) Map() map[string]any {
	out := map[string]any{
		"dry_run": true,
		"method":  p.Method,
		"url":     p.URL,
	}
	if p.Resource != "" {
		out["resource"] = p.Resource
	}
	if len(p.Details) > 0 {
		out["details"] = p.Details
	}
	if len(p.Warnings) > 0 {
		out["warnings"] = p.Warnings
	}
	return out
}
