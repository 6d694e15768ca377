package model

import (
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/schema"
)

// ListFilter is the full filter/sort/pagination state of one list view.
// Zero-valued optional fields mean "no filter" and are omitted from the
// encoded form, so two filters that differ only in how their unset fields
// were constructed encode identically.
type ListFilter struct {
	Search   string    `schema:"search,omitempty" json:"search,omitempty"`
	Level    string    `schema:"level,omitempty" json:"level,omitempty"`
	Start    time.Time `schema:"start,omitempty" json:"start,omitempty"`
	End      time.Time `schema:"end,omitempty" json:"end,omitempty"`
	Page     int       `schema:"page" json:"page"`
	PageSize int       `schema:"pageSize" json:"pageSize"`
	SortBy   string    `schema:"sortBy,omitempty" json:"sortBy,omitempty"`
	SortDesc bool      `schema:"sortDesc,omitempty" json:"sortDesc,omitempty"`
}

var (
	encoderOnce sync.Once
	encoder     *schema.Encoder
)

func listEncoder() *schema.Encoder {
	encoderOnce.Do(func() {
		encoder = schema.NewEncoder()
		// Timestamps always travel as RFC 3339 UTC regardless of the zone
		// they were constructed in.
		encoder.RegisterEncoder(time.Time{}, func(v reflect.Value) string {
			return v.Interface().(time.Time).UTC().Format(time.RFC3339)
		})
	})
	return encoder
}

// Values encodes the filter into URL query parameters. This is the only
// serialization of ListFilter in the module: cache keys and request query
// strings are both derived from it.
func (f ListFilter) Values() url.Values {
	v := url.Values{}
	// Encode only fails for non-struct sources, which cannot happen here.
	_ = listEncoder().Encode(&f, v)
	return v
}

// Canonical returns the deterministic string form of the filter: encoded
// query parameters with keys in sorted order.
func (f ListFilter) Canonical() string {
	return f.Values().Encode()
}

// Equivalent reports whether two filters produce the same canonical form.
func (f ListFilter) Equivalent(other ListFilter) bool {
	return f.Canonical() == other.Canonical()
}
