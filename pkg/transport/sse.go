package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// graphqlSSEClient speaks the graphql-sse protocol in distinct-connections
// mode: every subscription is one long-lived POST whose response body is a
// text/event-stream of next/complete events. There is no shared connection
// to manage, so Close is a no-op kept for interface symmetry with the
// websocket clients.
type graphqlSSEClient struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
	logger   logging.Logger
}

func newGraphQLSSEClient(endpoint string, client *http.Client, headers map[string]string, logger logging.Logger) *graphqlSSEClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &graphqlSSEClient{
		endpoint: endpoint,
		client:   client,
		headers:  headers,
		logger:   logger,
	}
}

func (c *graphqlSSEClient) Subscribe(ctx context.Context, req *graphql.Request) (*Stream, error) {
	endpoint := c.endpoint
	if override := req.EndpointOverride(); override != "" {
		endpoint = ToHTTPEndpoint(override)
	}

	body, err := json.Marshal(newWireRequest(req))
	if err != nil {
		return nil, errors.Config("failed to encode request body: " + err.Error())
	}

	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, errors.Config("invalid endpoint " + endpoint + ": " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for k, v := range mergeHeaders(c.headers, req.HeaderOverrides()) {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, errors.Subscribe("graphql-sse", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, errors.Subscribe("graphql-sse", endpoint,
			errors.HTTPStatus(resp.StatusCode, resp.Status))
	}

	c.logger.Debug("sse subscription opened", logging.String("endpoint", endpoint))
	return decodeEventStream(resp.Body, cancel, c.logger), nil
}

func (c *graphqlSSEClient) Close() error { return nil }
