package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

const (
	acceptJSONMultipart = "application/json, multipart/mixed"
	acceptJSONSSE       = "application/json, text/event-stream"
)

// wireRequest is the JSON body shape of a GraphQL HTTP request. Field order
// is fixed: {query, variables, operationName, extensions}.
type wireRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName *string                `json:"operationName"`
	Extensions    map[string]interface{} `json:"extensions,omitempty"`
}

func newWireRequest(req *graphql.Request) wireRequest {
	wire := wireRequest{
		Query:      req.QueryText(),
		Variables:  req.Variables,
		Extensions: req.WireExtensions(),
	}
	if wire.Variables == nil {
		wire.Variables = map[string]interface{}{}
	}
	if req.OperationName != "" {
		name := req.OperationName
		wire.OperationName = &name
	}
	return wire
}

type httpExecutorConfig struct {
	endpoint         string
	client           *http.Client
	method           string
	useGETForQueries bool
	multipart        bool
	headers          map[string]string
	timeout          time.Duration
	retryEnabled     bool
	sseProtocol      bool
	logger           logging.Logger
}

// httpExecutor issues queries and mutations over HTTP, negotiating verb and
// body encoding per request and handing the response to the decoder.
type httpExecutor struct {
	cfg httpExecutorConfig
}

func newHTTPExecutor(cfg httpExecutorConfig) *httpExecutor {
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	return &httpExecutor{cfg: cfg}
}

func (e *httpExecutor) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	endpoint := e.cfg.endpoint
	if override := req.EndpointOverride(); override != "" {
		endpoint = ToHTTPEndpoint(override)
	}

	headers := mergeHeaders(e.cfg.headers, req.HeaderOverrides())

	kind := graphql.OperationQuery
	streamingOp := false
	if doc, err := req.Doc(); err == nil {
		if k, err := graphql.Classify(doc, req.OperationName); err == nil {
			kind = k
		}
		if op, err := graphql.Operation(doc, req.OperationName); err == nil {
			streamingOp = kind == graphql.OperationSubscription || graphql.IsLiveQuery(op, req.Variables)
		}
	}

	// Subscriptions and live queries reach this executor only when the SSE
	// protocol runs them over plain HTTP; they travel as GET so the server
	// can answer with an event stream.
	sse := e.cfg.sseProtocol && streamingOp

	verb := http.MethodPost
	if sse || (kind == graphql.OperationQuery &&
		(e.cfg.method == http.MethodGet || e.cfg.useGETForQueries)) {
		verb = http.MethodGet
	}

	// Timeout and external cancellation share one abort signal. The timer
	// is cleared on settlement; firing after settlement is a no-op because
	// context cancellation is idempotent.
	reqCtx, abort := context.WithCancel(ctx)
	var timedOut atomic.Bool
	var timer *time.Timer
	if e.cfg.timeout > 0 {
		timer = time.AfterFunc(e.cfg.timeout, func() {
			timedOut.Store(true)
			abort()
		})
	}
	settle := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	httpReq, err := e.buildRequest(reqCtx, verb, endpoint, req, headers)
	if err != nil {
		settle()
		abort()
		return nil, err
	}

	e.cfg.logger.Debug("dispatching GraphQL HTTP request",
		logging.String("endpoint", endpoint),
		logging.String("verb", verb),
		logging.String("kind", string(kind)))

	resp, err := e.cfg.client.Do(httpReq)
	if err != nil {
		settle()
		abort()
		switch {
		case timedOut.Load():
			return nil, errors.Timeout(endpoint, e.cfg.timeout)
		case ctx.Err() != nil:
			return nil, errors.Cancelled("request to " + endpoint)
		default:
			return nil, errors.ConnectionFailed("http", endpoint, err)
		}
	}

	// A GraphQL error can ride on any status, so a non-2xx body is still
	// decoded unless retry is configured, in which case the status is
	// raised so the retry loop observes it uniformly.
	if e.cfg.retryEnabled && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		settle()
		resp.Body.Close()
		abort()
		return nil, errors.HTTPStatus(resp.StatusCode, resp.Status)
	}

	response, err := decodeResponse(resp, abort, e.cfg.logger)
	settle()
	if err != nil {
		// The body read fails with a context error when the deadline
		// fires mid-read; surface that as the timeout or cancellation
		// it is rather than a decode failure.
		switch {
		case timedOut.Load():
			return nil, errors.Timeout(endpoint, e.cfg.timeout)
		case ctx.Err() != nil:
			return nil, errors.Cancelled("request to " + endpoint)
		}
	}
	return response, err
}

// buildRequest assembles the outgoing HTTP request. GET serializes the
// whole operation into query parameters; POST carries a JSON body, or a
// multipart form when variables contain file-like values.
func (e *httpExecutor) buildRequest(ctx context.Context, verb, endpoint string, req *graphql.Request, headers map[string]string) (*http.Request, error) {
	wire := newWireRequest(req)

	var httpReq *http.Request
	var err error

	if verb == http.MethodGet {
		target, buildErr := buildGETURL(endpoint, wire)
		if buildErr != nil {
			return nil, buildErr
		}
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errors.Config("invalid endpoint URL: " + err.Error())
		}
	} else {
		var body bytes.Buffer
		contentType := "application/json"

		if e.cfg.multipart && graphql.ContainsFiles(req.Variables) {
			contentType, err = encodeMultipartForm(ctx, &body, wire, req.Variables)
			if err != nil {
				return nil, err
			}
		} else {
			if err := json.NewEncoder(&body).Encode(wire); err != nil {
				return nil, errors.Config("failed to encode request body: " + err.Error())
			}
		}

		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
		if err != nil {
			return nil, errors.Config("invalid endpoint URL: " + err.Error())
		}
		httpReq.Header.Set("Content-Type", contentType)
	}

	// Advertise which incremental encodings we can decode: SSE for GET
	// under the SSE subscription protocol, multipart otherwise.
	if verb == http.MethodGet && e.cfg.sseProtocol {
		httpReq.Header.Set("Accept", acceptJSONSSE)
	} else {
		httpReq.Header.Set("Accept", acceptJSONMultipart)
	}

	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// buildGETURL serializes the request into URL query parameters. Variables
// and extensions are JSON-stringified only when non-empty so the query
// string stays free of empty-object noise; the output is deterministic for
// a given request.
func buildGETURL(endpoint string, wire wireRequest) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Config("invalid endpoint URL: " + err.Error())
	}

	q := u.Query()
	q.Set("query", wire.Query)
	if wire.OperationName != nil {
		q.Set("operationName", *wire.OperationName)
	}
	if len(wire.Variables) > 0 {
		raw, err := json.Marshal(wire.Variables)
		if err != nil {
			return "", errors.Config("failed to encode variables: " + err.Error())
		}
		q.Set("variables", string(raw))
	}
	if len(wire.Extensions) > 0 {
		raw, err := json.Marshal(wire.Extensions)
		if err != nil {
			return "", errors.Config("failed to encode extensions: " + err.Error())
		}
		q.Set("extensions", string(raw))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mergeHeaders(base, overrides map[string]string) map[string]string {
	if len(overrides) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// sseOverHTTP runs subscriptions through the HTTP executor with the SSE
// protocol flags forcing GET and text/event-stream decoding.
type sseOverHTTP struct {
	exec *httpExecutor
}

func (s *sseOverHTTP) Subscribe(ctx context.Context, req *graphql.Request) (*Stream, error) {
	resp, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Streaming() {
		return resp.Stream, nil
	}
	return singleStream(resp.Result), nil
}
