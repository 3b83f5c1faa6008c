package graphqltools

import (
	"context"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/transport"
)

// Version represents the current version of the library
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewTransportConfig returns a config with sensible defaults for an endpoint
	NewTransportConfig = transport.DefaultTransportConfig

	// NewTransport builds the dispatch router from a config
	NewTransport = transport.New

	// RegisterHTTPClient registers a named HTTP client for config lookup
	RegisterHTTPClient = transport.RegisterHTTPClient

	// RegisterDialer registers a named websocket dialer for config lookup
	RegisterDialer = transport.RegisterDialer
)

// Subscription protocol selectors
const (
	ProtocolWS         = transport.ProtocolWS
	ProtocolLegacyWS   = transport.ProtocolLegacyWS
	ProtocolSSE        = transport.ProtocolSSE
	ProtocolGraphQLSSE = transport.ProtocolGraphQLSSE
)

// Loader is the high-level entry point. It owns a configured transport
// router and exposes operation-shaped conveniences over it.
type Loader struct {
	router *transport.Router
}

// New builds a Loader from a transport config. Configuration problems
// surface here, before any request is made.
func New(config transport.TransportConfig) (*Loader, error) {
	router, err := transport.New(config)
	if err != nil {
		return nil, err
	}
	return &Loader{router: router}, nil
}

// Do executes any GraphQL document, routing it to the transport its
// operation kind requires. Subscriptions and live queries come back as a
// stream, everything else as a single result.
func (l *Loader) Do(ctx context.Context, req *graphql.Request) (*transport.Response, error) {
	return l.router.Do(ctx, req)
}

// Query runs a query and decodes the single result.
func (l *Loader) Query(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Result, error) {
	return l.single(ctx, query, variables)
}

// Mutate runs a mutation and decodes the single result.
func (l *Loader) Mutate(ctx context.Context, mutation string, variables map[string]interface{}) (*graphql.Result, error) {
	return l.single(ctx, mutation, variables)
}

func (l *Loader) single(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Result, error) {
	resp, err := l.router.Do(ctx, &graphql.Request{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}
	if resp.Streaming() {
		// A streamed response to a plain query carries its base payload
		// first; later elements are incremental patches the single-result
		// convenience does not apply.
		defer resp.Stream.Close()
		if resp.Stream.Next() {
			return resp.Stream.Get(), nil
		}
		if err := resp.Stream.Err(); err != nil {
			return nil, err
		}
		return nil, errors.ErrNoResult
	}
	return resp.Result, nil
}

// Subscribe starts a subscription and returns its result stream. The
// caller consumes it with Next/Get and releases it with Close.
func (l *Loader) Subscribe(ctx context.Context, query string, variables map[string]interface{}) (*transport.Stream, error) {
	return l.router.Subscribe(ctx, &graphql.Request{Query: query, Variables: variables})
}

// Close releases any persistent subscription connection.
func (l *Loader) Close() error {
	return l.router.Close()
}
