// Package transport provides a config-driven execution layer for remote
// GraphQL endpoints.
//
// Key features:
//   - Unified TransportConfig-based construction (one New call builds the
//     whole executor stack)
//   - Automatic middleware composition (retry, observability, tracing)
//   - Per-request HTTP verb and body-encoding negotiation, including
//     multipart file uploads
//   - Three response encodings (JSON, multipart/mixed incremental,
//     text/event-stream) decoded behind one result-stream abstraction
//   - Four subscription transports (graphql-transport-ws, legacy graphql-ws,
//     SSE over the HTTP executor, dedicated graphql-sse client) selected
//     once at build time
//
// Usage:
//
//	config := transport.DefaultTransportConfig("https://api.example/graphql")
//	config.Retry = 3
//	router, err := transport.New(config)
package transport

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// Executor issues one request/response style GraphQL operation. The
// returned Response carries either a single result or, when the server
// answers with an incremental encoding, a lazy result stream.
type Executor interface {
	Execute(ctx context.Context, req *graphql.Request) (*Response, error)
}

// SubscriptionExecutor translates one subscribe call into a lazy stream of
// execution results. Closing the stream tears down the server-side
// subscription.
type SubscriptionExecutor interface {
	Subscribe(ctx context.Context, req *graphql.Request) (*Stream, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *graphql.Request) (*Response, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	return f(ctx, req)
}

// Response is what an executor produces. Exactly one of Result or Stream
// is set: Result for a plain JSON response, Stream for an incremental one.
type Response struct {
	Result *graphql.Result
	Stream *Stream
}

// Streaming reports whether the response is a lazy result sequence.
func (r *Response) Streaming() bool { return r != nil && r.Stream != nil }

// SubscriptionProtocol selects the subscription transport. The choice is
// fixed when the executor stack is built and never re-evaluated per request.
type SubscriptionProtocol string

const (
	// ProtocolWS is the modern graphql-transport-ws subprotocol.
	ProtocolWS SubscriptionProtocol = "WS"
	// ProtocolLegacyWS is the legacy graphql-ws subprotocol.
	ProtocolLegacyWS SubscriptionProtocol = "LEGACY_WS"
	// ProtocolSSE runs subscriptions over the HTTP executor using GET and
	// text/event-stream decoding.
	ProtocolSSE SubscriptionProtocol = "SSE"
	// ProtocolGraphQLSSE uses a dedicated graphql-sse client in distinct
	// connections mode.
	ProtocolGraphQLSSE SubscriptionProtocol = "GRAPHQL_SSE"
)

// TransportConfig is the unified configuration for the executor stack.
type TransportConfig struct {
	// Endpoint is the HTTP endpoint for queries and mutations. A ws:// or
	// wss:// endpoint is rewritten to its HTTP counterpart for HTTP calls.
	Endpoint string

	// SubscriptionsEndpoint overrides the endpoint used by the subscription
	// transport. Defaults to Endpoint with the scheme rewritten as needed.
	SubscriptionsEndpoint string

	// SubscriptionProtocol selects one of the four subscription transports.
	// Empty selects ProtocolWS.
	SubscriptionProtocol SubscriptionProtocol

	// Method overrides the HTTP verb for query operations ("GET" or "POST").
	// Mutations always use POST.
	Method string

	// UseGETForQueries sends query operations as GET requests.
	UseGETForQueries bool

	// Multipart enables multipart/form-data encoding when variables carry
	// file-like values.
	Multipart bool

	// Retry is the maximum number of re-attempts after the initial one.
	// Zero disables the retry middleware. Results carrying GraphQL errors
	// count as retry-eligible, so configuring retries on an executor used
	// for non-idempotent mutations is a caller-controlled risk.
	Retry int

	// Timeout aborts an HTTP request that has not settled in time. Zero
	// means no timeout.
	Timeout time.Duration

	// Credentials selects the cookie policy: "include" attaches a cookie
	// jar to the default HTTP client. Ignored when a custom client is used.
	Credentials string

	// Headers are attached to every outgoing request. Per-request header
	// overrides from extensions win on key collision.
	Headers map[string]string

	// HTTPClient is a custom HTTP client used for HTTP, SSE-over-HTTP and
	// graphql-sse calls.
	HTTPClient *http.Client

	// HTTPClientName references a client registered via RegisterHTTPClient.
	// Resolved at build time; unknown names fail New.
	HTTPClientName string

	// Dialer is a custom websocket dialer for the WS transports.
	Dialer *websocket.Dialer

	// DialerName references a dialer registered via RegisterDialer.
	DialerName string

	// ConnectionInitPayload is sent with the websocket connection_init
	// message, typically carrying auth parameters.
	ConnectionInitPayload map[string]interface{}

	// Logger receives transport diagnostics. Defaults to a no-op logger.
	Logger logging.Logger

	// Observability configures the metrics/logging middleware.
	Observability ObservabilityConfig

	// EnableTracing wraps the HTTP executor in an OpenTelemetry span per
	// execution.
	EnableTracing bool
}

// DefaultTransportConfig returns a configuration with sensible defaults for
// the given endpoint.
func DefaultTransportConfig(endpoint string) TransportConfig {
	return TransportConfig{
		Endpoint:             endpoint,
		SubscriptionProtocol: ProtocolWS,
		Timeout:              30 * time.Second,
	}
}

// Capability registry. Custom fetch and socket implementations are
// registered by name and referenced from TransportConfig, resolved once at
// build time. This replaces dynamic module loading with an explicit,
// compile-time-visible injection point.
var capabilities = struct {
	mu          sync.RWMutex
	httpClients map[string]*http.Client
	dialers     map[string]*websocket.Dialer
}{
	httpClients: make(map[string]*http.Client),
	dialers:     make(map[string]*websocket.Dialer),
}

// RegisterHTTPClient registers a named HTTP client for use via
// TransportConfig.HTTPClientName.
func RegisterHTTPClient(name string, client *http.Client) {
	capabilities.mu.Lock()
	defer capabilities.mu.Unlock()
	capabilities.httpClients[name] = client
}

// RegisterDialer registers a named websocket dialer for use via
// TransportConfig.DialerName.
func RegisterDialer(name string, dialer *websocket.Dialer) {
	capabilities.mu.Lock()
	defer capabilities.mu.Unlock()
	capabilities.dialers[name] = dialer
}

func lookupHTTPClient(name string) (*http.Client, bool) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	c, ok := capabilities.httpClients[name]
	return c, ok
}

func lookupDialer(name string) (*websocket.Dialer, bool) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	d, ok := capabilities.dialers[name]
	return d, ok
}

// New validates the configuration and builds the dispatch router: an HTTP
// executor wrapped in the configured middleware chain, plus exactly one
// subscription transport.
func New(config TransportConfig) (*Router, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	client, err := resolveHTTPClient(&config)
	if err != nil {
		return nil, err
	}
	dialer, err := resolveDialer(&config)
	if err != nil {
		return nil, err
	}

	httpEndpoint := ToHTTPEndpoint(config.Endpoint)

	httpExec := newHTTPExecutor(httpExecutorConfig{
		endpoint:         httpEndpoint,
		client:           client,
		method:           config.Method,
		useGETForQueries: config.UseGETForQueries,
		multipart:        config.Multipart,
		headers:          config.Headers,
		timeout:          config.Timeout,
		retryEnabled:     config.Retry > 0,
		sseProtocol:      config.SubscriptionProtocol == ProtocolSSE,
		logger:           logger,
	})

	var mw []Middleware
	if config.Retry > 0 {
		mw = append(mw, NewRetryMiddleware(config.Retry, logger))
	}
	if config.Observability.EnableMetrics || config.Observability.EnableLogging {
		mw = append(mw, NewObservabilityMiddleware(config.Observability, logger))
	}
	if config.EnableTracing {
		mw = append(mw, NewTracingMiddleware(httpEndpoint))
	}
	wrapped := ChainMiddleware(mw...).Wrap(httpExec)

	sub := buildSubscriptionExecutor(&config, httpExec, client, dialer, logger)

	return &Router{
		http:          wrapped,
		subscriptions: sub,
		logger:        logger,
	}, nil
}

func validateConfig(config *TransportConfig) error {
	if config.Endpoint == "" {
		return errors.Config("endpoint is required")
	}
	switch config.SubscriptionProtocol {
	case "", ProtocolWS, ProtocolLegacyWS, ProtocolSSE, ProtocolGraphQLSSE:
	default:
		return errors.Config("unknown subscription protocol: " + string(config.SubscriptionProtocol))
	}
	switch config.Method {
	case "", http.MethodGet, http.MethodPost:
	default:
		return errors.Config("method must be GET or POST, got " + config.Method)
	}
	if config.Retry < 0 {
		return errors.Config("retry count must not be negative")
	}
	return nil
}

func resolveHTTPClient(config *TransportConfig) (*http.Client, error) {
	if config.HTTPClient != nil {
		return config.HTTPClient, nil
	}
	if config.HTTPClientName != "" {
		c, ok := lookupHTTPClient(config.HTTPClientName)
		if !ok {
			return nil, errors.UnknownCapability("HTTP client", config.HTTPClientName)
		}
		return c, nil
	}
	client := &http.Client{}
	if config.Credentials == "include" {
		if jar, err := cookiejar.New(nil); err == nil {
			client.Jar = jar
		}
	}
	return client, nil
}

func resolveDialer(config *TransportConfig) (*websocket.Dialer, error) {
	if config.Dialer != nil {
		return config.Dialer, nil
	}
	if config.DialerName != "" {
		d, ok := lookupDialer(config.DialerName)
		if !ok {
			return nil, errors.UnknownCapability("dialer", config.DialerName)
		}
		return d, nil
	}
	return websocket.DefaultDialer, nil
}

// buildSubscriptionExecutor resolves the four-way protocol state machine.
// Exactly one subscription transport is instantiated per built router.
func buildSubscriptionExecutor(config *TransportConfig, httpExec *httpExecutor, client *http.Client, dialer *websocket.Dialer, logger logging.Logger) SubscriptionExecutor {
	wsEndpoint := config.SubscriptionsEndpoint
	if wsEndpoint == "" {
		wsEndpoint = config.Endpoint
	}

	switch config.SubscriptionProtocol {
	case ProtocolSSE:
		return &sseOverHTTP{exec: httpExec}
	case ProtocolGraphQLSSE:
		endpoint := config.SubscriptionsEndpoint
		if endpoint == "" {
			endpoint = ToHTTPEndpoint(config.Endpoint) + "/stream"
		}
		return newGraphQLSSEClient(endpoint, client, config.Headers, logger)
	case ProtocolLegacyWS:
		return newLegacyWSClient(ToWSEndpoint(wsEndpoint), dialer, config.Headers, config.ConnectionInitPayload, logger)
	default:
		return newWSClient(ToWSEndpoint(wsEndpoint), dialer, config.Headers, config.ConnectionInitPayload, logger)
	}
}
