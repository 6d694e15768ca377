// Package model defines the shared data model for the admin console core:
// resource names, list pages, and the error taxonomy used across the
// client, controller, and live-feed layers.
package model

import "fmt"

// Resource identifies one browsable backend collection.
type Resource string

const (
	ResourceLogs               Resource = "logs"
	ResourceUsers              Resource = "users"
	ResourcePermissionRequests Resource = "permission_requests"
	ResourceAPIUsage           Resource = "api_usage"
)

// IsValid checks if the resource is a known collection.
func (r Resource) IsValid() bool {
	switch r {
	case ResourceLogs, ResourceUsers, ResourcePermissionRequests, ResourceAPIUsage:
		return true
	default:
		return false
	}
}

// Item is a single row of a resource collection. Field layouts differ per
// resource, so rows are carried as loose maps; only the "id" field is
// interpreted by this module.
type Item map[string]any

// ID returns the row identifier. JSON numbers decode as float64, so numeric
// ids are normalized to their decimal string form.
func (i Item) ID() string {
	switch v := i["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Page is one fetched page of a resource listing.
type Page struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"totalCount"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// ItemIDs returns the ids of all rows on the page, in page order.
func (p *Page) ItemIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ID())
	}
	return ids
}
