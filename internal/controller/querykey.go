package controller

import (
	"fmt"

	"github.com/opspanel/opspanel/pkg/model"
)

// Operation names addressable per resource.
const (
	OpList  = "list"
	OpCount = "count"
)

// QueryKey addresses one cache entry: a resource, an operation, and the
// canonical form of the filter that parameterizes it. Comparable, so it can
// be used directly as a map key.
type QueryKey struct {
	Resource model.Resource
	Op       string
	Params   string
}

// BuildKey derives the cache key for an operation on a resource under the
// given filter. Total and deterministic: deep-equal filters yield identical
// keys regardless of how they were constructed, because the params component
// is the filter's canonical serialization (sorted keys, unset optionals
// omitted, timestamps in RFC 3339 UTC).
func BuildKey(resource model.Resource, op string, f model.ListFilter) QueryKey {
	return QueryKey{
		Resource: resource,
		Op:       op,
		Params:   f.Canonical(),
	}
}

func (k QueryKey) String() string {
	return fmt.Sprintf("%s/%s?%s", k.Resource, k.Op, k.Params)
}
