// Package cli holds small parsers for command line input.
package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches "2h ago", "30m ago", "1d ago", "2w ago", "1mo ago" and the same
// without the "ago" suffix.
var relativeRegex = regexp.MustCompile(`^(\d+)\s*(mo|w|d|h|m)(?:\s+ago)?$`)

// ParseTime parses a point in time given on the command line. Accepted forms:
// unix seconds, "today", "yesterday", relative offsets into the past
// ("2h ago", "7d"), YYYY-MM-DD (start of day in now's location) and RFC3339.
func ParseTime(s string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, fmt.Errorf("invalid time %q: must be >= 0", raw)
		}
		return time.Unix(unix, 0).In(now.Location()), nil
	}

	input := strings.ToLower(raw)
	switch input {
	case "now":
		return now, nil
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now).AddDate(0, 0, -1), nil
	}

	if m := relativeRegex.FindStringSubmatch(input); len(m) == 3 {
		value, err := strconv.Atoi(m[1])
		if err != nil || value < 1 {
			return time.Time{}, fmt.Errorf("invalid relative time %q", raw)
		}
		return subtract(now, value, m[2]), nil
	}

	if t, err := time.ParseInLocation(time.DateOnly, raw, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time expression %q", raw)
}

// ParseUnix is ParseTime returning unix seconds.
func ParseUnix(s string, now time.Time) (int64, error) {
	t, err := ParseTime(s, now)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func subtract(now time.Time, value int, unit string) time.Time {
	switch unit {
	case "mo":
		return now.AddDate(0, -value, 0)
	case "w":
		return now.AddDate(0, 0, -7*value)
	case "d":
		return now.AddDate(0, 0, -value)
	case "h":
		return now.Add(-time.Duration(value) * time.Hour)
	default:
		return now.Add(-time.Duration(value) * time.Minute)
	}
}
