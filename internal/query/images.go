package query

import (
	"net/url"
	"slices"
	"strconv"
)

// ImagesQuery filters the images listing of a user.
type ImagesQuery struct {
	paging            Query
	metadata          bool
	from              *int64
	to                *int64
	ids               []string
	checksums         []string
	originalChecksums []string
	sort              []string
}

var _ Pager = ImagesQuery{}

// NewImagesQuery returns an ImagesQuery with every filter unset.
func NewImagesQuery() ImagesQuery {
	return ImagesQuery{
		paging:            New(),
		ids:               []string{},
		checksums:         []string{},
		originalChecksums: []string{},
		sort:              []string{},
	}
}

// Page returns the page number, starting at 1.
func (q ImagesQuery) Page() int { return q.paging.Page() }

// Limit returns the number of images per page.
func (q ImagesQuery) Limit() int { return q.paging.Limit() }

// Metadata reports whether image metadata is included in the listing.
func (q ImagesQuery) Metadata() bool { return q.metadata }

// IDs returns a copy of the image identifier filter.
func (q ImagesQuery) IDs() []string { return slices.Clone(q.ids) }

// Checksums returns a copy of the checksum filter.
func (q ImagesQuery) Checksums() []string { return slices.Clone(q.checksums) }

// OriginalChecksums returns a copy of the original checksum filter.
func (q ImagesQuery) OriginalChecksums() []string { return slices.Clone(q.originalChecksums) }

// Sort returns a copy of the sort fields.
func (q ImagesQuery) Sort() []string { return slices.Clone(q.sort) }

// From returns the lower bound unix timestamp, if set.
func (q ImagesQuery) From() (int64, bool) { return deref(q.from) }

// To returns the upper bound unix timestamp, if set.
func (q ImagesQuery) To() (int64, bool) { return deref(q.to) }

// WithPage returns a copy of q asking for page.
func (q ImagesQuery) WithPage(page int) ImagesQuery {
	q.paging = q.paging.WithPage(page)
	return q
}

// WithLimit returns a copy of q with limit images per page.
func (q ImagesQuery) WithLimit(limit int) ImagesQuery {
	q.paging = q.paging.WithLimit(limit)
	return q
}

// WithMetadata toggles inclusion of image metadata in the listing.
func (q ImagesQuery) WithMetadata(metadata bool) ImagesQuery {
	q.metadata = metadata
	return q
}

// WithFrom only lists images added at or after the unix timestamp.
func (q ImagesQuery) WithFrom(unix int64) ImagesQuery {
	q.from = &unix
	return q
}

// WithTo only lists images added at or before the unix timestamp.
func (q ImagesQuery) WithTo(unix int64) ImagesQuery {
	q.to = &unix
	return q
}

// WithIDs only lists the given image identifiers.
func (q ImagesQuery) WithIDs(ids ...string) ImagesQuery {
	q.ids = cloneList(ids)
	return q
}

// WithChecksums only lists images with one of the checksums.
func (q ImagesQuery) WithChecksums(checksums ...string) ImagesQuery {
	q.checksums = cloneList(checksums)
	return q
}

// WithOriginalChecksums only lists images whose original upload had one of
// the checksums.
func (q ImagesQuery) WithOriginalChecksums(checksums ...string) ImagesQuery {
	q.originalChecksums = cloneList(checksums)
	return q
}

// WithSort sets the sort order, e.g. "size:desc", "added".
func (q ImagesQuery) WithSort(sort ...string) ImagesQuery {
	q.sort = cloneList(sort)
	return q
}

// Fields returns the image filters followed by the paging fields.
func (q ImagesQuery) Fields() []Field {
	fields := []Field{
		{Key: "metadata", Value: q.metadata},
		{Key: "from", Value: optional(q.from)},
		{Key: "to", Value: optional(q.to)},
		{Key: "ids", Value: q.IDs()},
		{Key: "checksums", Value: q.Checksums()},
		{Key: "originalChecksums", Value: q.OriginalChecksums()},
		{Key: "sort", Value: q.Sort()},
	}
	return append(fields, pagingFields(q)...)
}

// Map returns Fields keyed by name.
func (q ImagesQuery) Map() map[string]any {
	return toMap(q.Fields())
}

// Values encodes q using the parameter names of the images resource.
// Unset filters are left out.
func (q ImagesQuery) Values() url.Values {
	v := url.Values{}
	addPaging(v, q)
	if q.metadata {
		v.Set("metadata", "1")
	}
	if q.from != nil {
		v.Set("from", strconv.FormatInt(*q.from, 10))
	}
	if q.to != nil {
		v.Set("to", strconv.FormatInt(*q.to, 10))
	}
	for _, id := range q.ids {
		v.Add("ids[]", id)
	}
	for _, c := range q.checksums {
		v.Add("checksums[]", c)
	}
	for _, c := range q.originalChecksums {
		v.Add("originalChecksums[]", c)
	}
	for _, s := range q.sort {
		v.Add("sort[]", s)
	}
	return v
}

func cloneList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}

// optional keeps the map value an untyped nil when unset.
func optional(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func deref(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
