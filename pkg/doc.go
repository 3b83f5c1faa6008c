// Package pkg contains the core components of the GraphQL execution
// library.
//
// The library executes GraphQL operations against a remote endpoint:
// queries and mutations over HTTP, subscriptions and live queries over a
// configurable streaming transport. Responses are decoded into a uniform
// result stream whether they arrive as plain JSON, incremental
// multipart/mixed parts or server-sent events.
//
// # Usage
//
// To execute operations against an endpoint:
//
//	import (
//	    "context"
//	    graphqltools "github.com/lipsumar/graphql-tools"
//	)
//
//	func main() {
//	    loader, err := graphqltools.New(graphqltools.NewTransportConfig("https://api.example.com/graphql"))
//	    if err != nil {
//	        // Handle error
//	    }
//	    defer loader.Close()
//
//	    ctx := context.Background()
//	    result, err := loader.Query(ctx, "{ viewer { name } }", nil)
//	    // ...
//
//	    stream, err := loader.Subscribe(ctx, "subscription { messages }", nil)
//	    for stream.Next() {
//	        _ = stream.Get()
//	    }
//	    stream.Close()
//	}
//
// # Sub-packages
//
// The library consists of several sub-packages:
//
//   - graphql: Request and result types, document parsing and file upload handling
//   - transport: HTTP execution, response decoding, subscription clients and dispatch
//   - errors: Structured error types shared across the library
//   - logging: Leveled structured logging used throughout the library
package pkg
