package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagesQueryDefaults(t *testing.T) {
	want := map[string]any{
		"metadata":          false,
		"from":              nil,
		"to":                nil,
		"ids":               []string{},
		"checksums":         []string{},
		"originalChecksums": []string{},
		"sort":              []string{},
		"page":              1,
		"limit":             20,
	}
	assert.Equal(t, want, NewImagesQuery().Map())
}

func TestImagesQueryFieldsOrder(t *testing.T) {
	fields := NewImagesQuery().Fields()
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"metadata", "from", "to", "ids", "checksums", "originalChecksums", "sort", "page", "limit"}, keys)
}

func TestImagesQueryMutatorsReturnCopies(t *testing.T) {
	base := NewImagesQuery()
	baseMap := base.Map()

	tests := []struct {
		name  string
		apply func(ImagesQuery) ImagesQuery
		key   string
		want  any
	}{
		{"page", func(q ImagesQuery) ImagesQuery { return q.WithPage(4) }, "page", 4},
		{"limit", func(q ImagesQuery) ImagesQuery { return q.WithLimit(7) }, "limit", 7},
		{"metadata", func(q ImagesQuery) ImagesQuery { return q.WithMetadata(true) }, "metadata", true},
		{"from", func(q ImagesQuery) ImagesQuery { return q.WithFrom(1349865000) }, "from", int64(1349865000)},
		{"to", func(q ImagesQuery) ImagesQuery { return q.WithTo(1349866000) }, "to", int64(1349866000)},
		{"ids", func(q ImagesQuery) ImagesQuery { return q.WithIDs("a", "b") }, "ids", []string{"a", "b"}},
		{"checksums", func(q ImagesQuery) ImagesQuery { return q.WithChecksums("c1") }, "checksums", []string{"c1"}},
		{"originalChecksums", func(q ImagesQuery) ImagesQuery { return q.WithOriginalChecksums("o1", "o2") }, "originalChecksums", []string{"o1", "o2"}},
		{"sort", func(q ImagesQuery) ImagesQuery { return q.WithSort("size:desc", "added") }, "sort", []string{"size:desc", "added"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := tt.apply(base)

			assert.Equal(t, baseMap, base.Map(), "receiver must not change")

			got := next.Map()
			assert.Equal(t, tt.want, got[tt.key])
			for k, v := range baseMap {
				if k == tt.key {
					continue
				}
				assert.Equal(t, v, got[k], "field %s changed unexpectedly", k)
			}
		})
	}
}

func TestImagesQueryListsAreCopied(t *testing.T) {
	ids := []string{"a", "b"}
	q := NewImagesQuery().WithIDs(ids...)
	ids[0] = "changed"

	assert.Equal(t, []string{"a", "b"}, q.IDs())

	out := q.IDs()
	out[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, q.IDs())
}

func TestImagesQueryFromTo(t *testing.T) {
	q := NewImagesQuery()
	_, ok := q.From()
	assert.False(t, ok)

	q = q.WithFrom(10).WithTo(20)
	from, ok := q.From()
	require.True(t, ok)
	assert.Equal(t, int64(10), from)
	to, ok := q.To()
	require.True(t, ok)
	assert.Equal(t, int64(20), to)
}

func TestImagesQueryValues(t *testing.T) {
	q := NewImagesQuery().
		WithPage(2).
		WithLimit(10).
		WithMetadata(true).
		WithFrom(100).
		WithIDs("id1", "id2").
		WithSort("size:desc")

	v := q.Values()
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "10", v.Get("limit"))
	assert.Equal(t, "1", v.Get("metadata"))
	assert.Equal(t, "100", v.Get("from"))
	assert.Empty(t, v.Get("to"))
	assert.Equal(t, []string{"id1", "id2"}, v["ids[]"])
	assert.Equal(t, []string{"size:desc"}, v["sort[]"])
	assert.NotContains(t, v, "checksums[]")
}

func TestPagerImplementations(t *testing.T) {
	pagers := []Pager{New().WithPage(3), NewImagesQuery().WithPage(3)}
	for _, p := range pagers {
		assert.Equal(t, 3, p.Page())
		assert.Equal(t, 20, p.Limit())
	}
}
