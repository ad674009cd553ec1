// Package query holds the immutable paging and filter values sent with
// listing requests.
//
// Every With* method returns a modified copy; the receiver is never changed,
// so a base query can be shared and specialised freely.
package query

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Field is one serialized query field. Fields are returned in a stable order.
type Field struct {
	Key   string
	Value any
}

// Pager is implemented by every query carrying the base paging fields.
type Pager interface {
	Page() int
	Limit() int
}

// Query is the generic paging query.
type Query struct {
	page  int
	limit int
}

// New returns a Query with the default page and limit.
func New() Query {
	return Query{page: DefaultPage, limit: DefaultLimit}
}

func (q Query) Page() int  { return q.page }
func (q Query) Limit() int { return q.limit }

// WithPage returns a copy of q with page set. The value is not validated.
func (q Query) WithPage(page int) Query {
	q.page = page
	return q
}

// WithLimit returns a copy of q with limit set. The value is not validated.
func (q Query) WithLimit(limit int) Query {
	q.limit = limit
	return q
}

// Fields returns page and limit.
func (q Query) Fields() []Field {
	return pagingFields(q)
}

// Map returns Fields as a map.
func (q Query) Map() map[string]any {
	return toMap(q.Fields())
}

// Values encodes q as URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	addPaging(v, q)
	return v
}

func pagingFields(p Pager) []Field {
	return []Field{
		{Key: "page", Value: p.Page()},
		{Key: "limit", Value: p.Limit()},
	}
}

func addPaging(v url.Values, p Pager) {
	v.Set("page", strconv.Itoa(p.Page()))
	v.Set("limit", strconv.Itoa(p.Limit()))
}

func toMap(fields []Field) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}
