// Package graphqltools implements a GraphQL client execution core: it
// dispatches queries and mutations over HTTP, routes subscriptions and
// live queries to a streaming transport, and decodes plain JSON,
// incremental multipart and server-sent-event responses into a uniform
// result stream.
//
// The entry point is New, which builds a Loader from a
// transport.TransportConfig:
//
//	loader, err := graphqltools.New(graphqltools.NewTransportConfig("https://api.example.com/graphql"))
//	if err != nil {
//	    return err
//	}
//	defer loader.Close()
//
//	result, err := loader.Query(ctx, "{ viewer { name } }", nil)
//
// Subscriptions come back as a lazy result stream:
//
//	stream, err := loader.Subscribe(ctx, "subscription { messages }", nil)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    handle(stream.Get())
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// The subscription transport (graphql-transport-ws, legacy graphql-ws,
// SSE over HTTP, or dedicated graphql-sse) is selected once in the config
// and never re-negotiated per request.
package graphqltools
