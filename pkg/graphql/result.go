package graphql

import (
	"encoding/json"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Result is one GraphQL execution result. A request/response operation
// produces exactly one; a streaming operation produces an ordered sequence
// of them.
type Result struct {
	Data       json.RawMessage        `json:"data,omitempty"`
	Errors     gqlerror.List          `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`

	// Incremental-delivery fields, present on multipart/SSE patch parts.
	Path    []interface{} `json:"path,omitempty"`
	Label   string        `json:"label,omitempty"`
	HasNext *bool         `json:"hasNext,omitempty"`
}

// HasErrors reports whether the server attached any errors to this result.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// UnmarshalData decodes the data payload into v. A nil payload is a no-op.
func (r *Result) UnmarshalData(v interface{}) error {
	if r.Data == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}
