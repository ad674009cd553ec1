package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryDefaults(t *testing.T) {
	q := New()
	assert.Equal(t, 1, q.Page())
	assert.Equal(t, 20, q.Limit())
	assert.Equal(t, map[string]any{"page": 1, "limit": 20}, q.Map())
}

func TestQueryWithPageDoesNotMutate(t *testing.T) {
	q := New()
	next := q.WithPage(123)

	assert.Equal(t, 123, next.Page())
	assert.Equal(t, 20, next.Limit())
	assert.Equal(t, 1, q.Page())
	assert.Equal(t, map[string]any{"page": 1, "limit": 20}, q.Map())
}

func TestQueryWithLimitDoesNotMutate(t *testing.T) {
	q := New()
	next := q.WithLimit(5)

	assert.Equal(t, 5, next.Limit())
	assert.Equal(t, 1, next.Page())
	assert.Equal(t, 20, q.Limit())
}

func TestQueryPassesThroughInvalidValues(t *testing.T) {
	q := New().WithPage(0).WithLimit(-3)
	assert.Equal(t, 0, q.Page())
	assert.Equal(t, -3, q.Limit())
}

func TestQueryFieldsOrder(t *testing.T) {
	fields := New().Fields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"page", "limit"}, keys)
}

func TestQueryValues(t *testing.T) {
	v := New().WithPage(3).WithLimit(50).Values()
	assert.Equal(t, url.Values{"page": {"3"}, "limit": {"50"}}, v)
}
