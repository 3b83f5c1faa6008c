package transport

import (
	"context"
	"io"
	"strings"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// Router dispatches operations to the HTTP executor or the subscription
// transport. Classification happens per request, since one built router
// serves every operation kind; transport selection happened once at build
// time and is never revisited here.
type Router struct {
	http          Executor
	subscriptions SubscriptionExecutor
	logger        logging.Logger
}

// Do classifies the request and routes it. Subscriptions and live queries
// go to the subscription transport and come back as streams; queries and
// mutations go over HTTP.
func (r *Router) Do(ctx context.Context, req *graphql.Request) (*Response, error) {
	doc, err := req.Doc()
	if err != nil {
		return nil, err
	}
	kind, err := graphql.Classify(doc, req.OperationName)
	if err != nil {
		return nil, err
	}

	if kind == graphql.OperationSubscription {
		stream, err := r.subscriptions.Subscribe(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Response{Stream: stream}, nil
	}

	if kind == graphql.OperationQuery {
		op, err := graphql.Operation(doc, req.OperationName)
		if err != nil {
			return nil, err
		}
		if graphql.IsLiveQuery(op, req.Variables) {
			stream, err := r.subscriptions.Subscribe(ctx, req)
			if err != nil {
				return nil, err
			}
			return &Response{Stream: stream}, nil
		}
	}

	return r.http.Execute(ctx, req)
}

// Execute routes directly to the HTTP executor, bypassing classification.
func (r *Router) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	return r.http.Execute(ctx, req)
}

// Subscribe routes directly to the subscription transport.
func (r *Router) Subscribe(ctx context.Context, req *graphql.Request) (*Stream, error) {
	return r.subscriptions.Subscribe(ctx, req)
}

// Close releases the long-lived subscription connection, if the selected
// transport holds one.
func (r *Router) Close() error {
	if closer, ok := r.subscriptions.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ToHTTPEndpoint rewrites a websocket URL to its HTTP counterpart:
// ws:// becomes http://, wss:// becomes https://. Other schemes pass
// through unchanged.
func ToHTTPEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "wss://"):
		return "https://" + strings.TrimPrefix(endpoint, "wss://")
	case strings.HasPrefix(endpoint, "ws://"):
		return "http://" + strings.TrimPrefix(endpoint, "ws://")
	default:
		return endpoint
	}
}

// ToWSEndpoint rewrites an HTTP URL to its websocket counterpart:
// http:// becomes ws://, https:// becomes wss://. Other schemes pass
// through unchanged.
func ToWSEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}
