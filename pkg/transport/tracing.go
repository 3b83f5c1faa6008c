package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
)

const tracerName = "github.com/lipsumar/graphql-tools/pkg/transport"

// TracingMiddleware opens an OpenTelemetry span around each execution.
// Span export is the embedding application's concern; this middleware only
// uses the globally configured tracer provider.
type TracingMiddleware struct {
	endpoint string
	tracer   trace.Tracer
}

// NewTracingMiddleware creates tracing middleware for the given endpoint.
func NewTracingMiddleware(endpoint string) Middleware {
	return &TracingMiddleware{
		endpoint: endpoint,
		tracer:   otel.Tracer(tracerName),
	}
}

// Wrap implements the Middleware interface.
func (tm *TracingMiddleware) Wrap(next Executor) Executor {
	return &tracedExecutor{next: next, middleware: tm}
}

type tracedExecutor struct {
	next       Executor
	middleware *TracingMiddleware
}

func (t *tracedExecutor) Execute(ctx context.Context, req *graphql.Request) (*Response, error) {
	kind := string(graphql.OperationQuery)
	if doc, err := req.Doc(); err == nil {
		if k, err := graphql.Classify(doc, req.OperationName); err == nil {
			kind = string(k)
		}
	}

	ctx, span := t.middleware.tracer.Start(ctx, "graphql.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.endpoint", t.middleware.endpoint),
			attribute.String("graphql.operation.kind", kind),
			attribute.String("graphql.operation.name", req.OperationName),
		),
	)
	defer span.End()

	result, err := t.next.Execute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result.Result != nil && result.Result.HasErrors() {
		span.SetAttributes(attribute.Int("graphql.errors.count", len(result.Result.Errors)))
	}
	return result, nil
}
