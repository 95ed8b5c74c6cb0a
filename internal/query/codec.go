package query

import (
	"net/url"
	"strings"
)

// Codec maps FilterSets to and from query strings. The zero value is not
// usable; build one with NewCodec.
type Codec struct {
	defaults FilterSet
}

// NewCodec returns a codec whose fresh-session page size is perPage.
// Out-of-range values fall back to DefaultPerPage.
func NewCodec(perPage int) Codec {
	if perPage < 1 || perPage > MaxPerPage {
		perPage = DefaultPerPage
	}
	return Codec{defaults: FilterSet{
		Page:      1,
		PerPage:   perPage,
		SortBy:    SortCreatedAt,
		SortOrder: Desc,
	}}
}

// Defaults is the FilterSet of a view with no filters applied.
func (c Codec) Defaults() FilterSet {
	return c.defaults
}

// Parse reads a query string. It never fails: unknown keys are ignored and
// malformed values keep their defaults.
func (c Codec) Parse(raw string) FilterSet {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	// ParseQuery keeps every pair it could decode even when it reports an error.
	vals, _ := url.ParseQuery(raw)

	f := c.defaults
	for _, key := range Keys {
		v, ok := vals[key]
		if !ok || len(v) == 0 {
			continue
		}
		_ = assign(&f, c.defaults, key, v[0])
	}
	return f
}

// Normalize strips no-op and invalid values from f.
func (c Codec) Normalize(f FilterSet) FilterSet {
	out := c.defaults
	for _, key := range Keys {
		_ = assign(&out, c.defaults, key, f.Value(key))
	}
	return out
}

// Canonical is the minimal address-bar form of f: keys at their default or
// no-op value are omitted, so the default view encodes to "".
func (c Codec) Canonical(f FilterSet) string {
	return c.encode(c.Normalize(f), false)
}

// Request is the query sent with GET /tasks. Paging and sorting keys are
// always present.
func (c Codec) Request(f FilterSet) string {
	return c.encode(c.Normalize(f), true)
}

func (c Codec) encode(f FilterSet, full bool) string {
	var b strings.Builder
	for _, key := range Keys {
		v := f.Value(key)
		if v == "" {
			continue
		}
		if !full && v == c.defaults.Value(key) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}
