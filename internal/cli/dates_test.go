package cli

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	now := time.Date(2026, 1, 28, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "unix seconds", input: "1700000000", want: time.Unix(1700000000, 0).UTC()},
		{name: "now", input: "now", want: now},
		{name: "today", input: "today", want: time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)},
		{name: "yesterday", input: "Yesterday", want: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{name: "hours ago", input: "2h ago", want: now.Add(-2 * time.Hour)},
		{name: "minutes without ago", input: "30m", want: now.Add(-30 * time.Minute)},
		{name: "days", input: "7d", want: now.AddDate(0, 0, -7)},
		{name: "weeks ago", input: "2w ago", want: now.AddDate(0, 0, -14)},
		{name: "months ago", input: "1mo ago", want: now.AddDate(0, -1, 0)},
		{name: "date", input: "2025-12-24", want: time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: "2025-12-24T10:00:00Z", want: time.Date(2025, 12, 24, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input, now)
			if err != nil {
				t.Fatalf("ParseTime(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimeInvalid(t *testing.T) {
	now := time.Date(2026, 1, 28, 15, 4, 5, 0, time.UTC)
	inputs := []string{"", "  ", "-5", "0h ago", "next week", "2026-13-01", "5y"}
	for _, input := range inputs {
		if _, err := ParseTime(input, now); err == nil {
			t.Errorf("ParseTime(%q) expected error", input)
		}
	}
}

func TestParseUnix(t *testing.T) {
	now := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	got, err := ParseUnix("1d", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.AddDate(0, 0, -1).Unix(); got != want {
		t.Fatalf("ParseUnix = %d, want %d", got, want)
	}
}
