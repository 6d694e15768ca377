// Package live consumes the backend change feed over a websocket and
// invalidates cached resource data when matching events arrive.
package live

import (
	"encoding/json"
	"time"
)

// Message types sent by the change feed endpoint.
const (
	TypeChange = "change"
	TypePing   = "ping"
)

// Envelope is the outer frame of every feed message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChangeEvent describes a single mutation applied on the backend.
type ChangeEvent struct {
	Resource  string         `json:"resource"`
	ID        string         `json:"id,omitempty"`
	Operation string         `json:"operation"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AsMap flattens the event into the shape the filter matcher evaluates.
func (e ChangeEvent) AsMap() map[string]any {
	m := map[string]any{
		"resource":  e.Resource,
		"id":        e.ID,
		"operation": e.Operation,
	}
	for k, v := range e.Fields {
		m[k] = v
	}
	return m
}
