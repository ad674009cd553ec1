// Package resolve turns loosely typed names into exact ones: image
// identifier prefixes into full identifiers, and misspelt transformation
// names into suggestions.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

var (
	ErrEmptyQuery = errors.New("empty search query")
	ErrEmptyItems = errors.New("no items to match against")
)

// AmbiguousError indicates multiple candidates matched equally well.
type AmbiguousError struct {
	Query      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "ambiguous match for %q", e.Query)
	if len(e.Candidates) > 0 {
		b.WriteString(", candidates:")
		for _, c := range e.Candidates {
			_, _ = fmt.Fprintf(&b, "\n  %s", c)
		}
	}
	return b.String()
}

// NotFoundError is returned when nothing matches. Suggestions holds the
// closest fuzzy matches, best first.
type NotFoundError struct {
	Query       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no match found for %q", e.Query)
	}
	return fmt.Sprintf("no match found for %q, did you mean %s?", e.Query, strings.Join(e.Suggestions, ", "))
}

// TruncatedError is returned when only part of the candidates could be
// searched, so a match cannot be proven unique.
type TruncatedError struct {
	Query   string
	Scanned int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("cannot resolve %q: only the first %d candidates were searched, use a longer prefix", e.Query, e.Scanned)
}

const maxCandidates = 5

// Prefix resolves query to the single item it is a case-insensitive prefix
// of. An exact match always wins.
func Prefix(query string, items []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	var matches []string
	for _, item := range items {
		if strings.EqualFold(item, query) {
			return item, nil
		}
		if len(item) > len(query) && strings.EqualFold(item[:len(query)], query) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Query: query, Suggestions: Suggest(query, items, 3)}
	case 1:
		return matches[0], nil
	}
	if len(matches) > maxCandidates {
		matches = matches[:maxCandidates]
	}
	return "", &AmbiguousError{Query: query, Candidates: matches}
}

type lowerSource []string

func (s lowerSource) String(i int) string { return strings.ToLower(s[i]) }
func (s lowerSource) Len() int            { return len(s) }

// Match finds the best fuzzy match for query. Exact case-insensitive
// matches win; a tie between the two best fuzzy scores is ambiguous.
func Match(query string, items []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if len(items) == 0 {
		return "", ErrEmptyItems
	}

	for _, item := range items {
		if strings.EqualFold(item, query) {
			return item, nil
		}
	}

	results := fuzzy.FindFrom(strings.ToLower(query), lowerSource(items))
	if len(results) == 0 {
		return "", &NotFoundError{Query: query}
	}
	if len(results) > 1 && results[0].Score == results[1].Score {
		return "", &AmbiguousError{Query: query, Candidates: names(items, results, maxCandidates)}
	}
	return items[results[0].Index], nil
}

// Suggest returns up to limit items ranked by fuzzy score (best first).
// When fuzzy matching finds nothing, items sharing the query's first letter
// are offered instead.
func Suggest(query string, items []string, limit int) []string {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" || len(items) == 0 || limit <= 0 {
		return nil
	}

	if results := fuzzy.FindFrom(query, lowerSource(items)); len(results) > 0 {
		return names(items, results, limit)
	}

	var out []string
	for _, item := range items {
		if strings.HasPrefix(strings.ToLower(item), query[:1]) {
			out = append(out, item)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func names(items []string, results fuzzy.Matches, limit int) []string {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = items[r.Index]
	}
	return out
}
