package graphql

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// Request describes one GraphQL operation to execute. It is immutable once
// constructed; transports read it but never modify it.
type Request struct {
	// Query is the operation source text. Exactly one of Query or Document
	// must be set; when both are set Document wins.
	Query string

	// Document is the parsed operation, if the caller already has one.
	Document *ast.QueryDocument

	// OperationName selects the operation when the document defines several.
	OperationName string

	// Variables carries the operation's variable values.
	Variables map[string]interface{}

	// Extensions carries per-request metadata. The keys "endpoint" and
	// "headers" are recognized as transport overrides.
	Extensions map[string]interface{}

	parsed *ast.QueryDocument
}

// Doc returns the parsed document, parsing Query on first use. The parse
// result is cached on the request.
func (r *Request) Doc() (*ast.QueryDocument, error) {
	if r.Document != nil {
		return r.Document, nil
	}
	if r.parsed != nil {
		return r.parsed, nil
	}
	doc, err := Parse(r.Query)
	if err != nil {
		return nil, err
	}
	r.parsed = doc
	return doc, nil
}

// QueryText returns the operation source, printing the document when the
// request was built from a pre-parsed one. Printing is stable: the same
// document always yields the same text.
func (r *Request) QueryText() string {
	if r.Document != nil {
		return Print(r.Document)
	}
	return r.Query
}

// EndpointOverride returns the per-request endpoint from extensions, or "".
func (r *Request) EndpointOverride() string {
	if r.Extensions == nil {
		return ""
	}
	if ep, ok := r.Extensions["endpoint"].(string); ok {
		return ep
	}
	return ""
}

// HeaderOverrides returns per-request headers from extensions. Both
// map[string]string and map[string]interface{} (with string values) forms
// are accepted since extensions frequently round-trip through JSON.
func (r *Request) HeaderOverrides() map[string]string {
	if r.Extensions == nil {
		return nil
	}
	switch h := r.Extensions["headers"].(type) {
	case map[string]string:
		return h
	case map[string]interface{}:
		out := make(map[string]string, len(h))
		for k, v := range h {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

// WireExtensions returns the extensions to serialize on the wire. Transport
// overrides are stripped so they never leak to the server.
func (r *Request) WireExtensions() map[string]interface{} {
	if len(r.Extensions) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(r.Extensions))
	for k, v := range r.Extensions {
		if k == "endpoint" || k == "headers" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
