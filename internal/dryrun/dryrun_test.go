package dryrun

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithDryRun(t *testing.T) {
	if !IsEnabled(WithDryRun(context.Background(), true)) {
		t.Error("IsEnabled should return true when dry-run is enabled")
	}
	if IsEnabled(WithDryRun(context.Background(), false)) {
		t.Error("IsEnabled should return false when dry-run is explicitly disabled")
	}
	if IsEnabled(context.Background()) {
		t.Error("IsEnabled should return false by default")
	}
}

func TestPreview_Write(t *testing.T) {
	p := &Preview{
		Method:   "DELETE",
		URL:      "http://imbo/users/christer/images/abc",
		Resource: "image",
		Details: map[string]any{
			"user":            "christer",
			"imageIdentifier": "abc",
		},
		Warnings: []string{"This action is irreversible"},
	}

	var buf bytes.Buffer
	p.Write(&buf)
	out := buf.String()

	for _, want := range []string{"[DRY-RUN] Would send DELETE http://imbo/users/christer/images/abc", "Resource: image", "Warnings:", "This action is irreversible", "No changes made"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "imageIdentifier") > strings.Index(out, "user:") {
		t.Error("details should be printed in key order")
	}
}

func TestPreview_WriteMinimal(t *testing.T) {
	p := &Preview{Method: "POST", URL: "http://imbo/users/u/images"}

	var buf bytes.Buffer
	p.Write(&buf)
	out := buf.String()
	if strings.Contains(out, "Resource:") || strings.Contains(out, "Warnings:") {
		t.Errorf("minimal preview should omit empty sections:\n%s", out)
	}
}

func TestPreview_Map(t *testing.T) {
	m := (&Preview{Method: "PUT", URL: "http://imbo/x"}).Map()
	if m["dry_run"] != true || m["method"] != "PUT" {
		t.Errorf("Map() = %v", m)
	}
	if _, ok := m["details"]; ok {
		t.Error("Map() should omit empty details")
	}
}
