// Package graphql defines the wire-level data model shared by every
// transport: execution requests, execution results, file uploads, and the
// document handling (parsing, classification, printing) the dispatch layer
// relies on.
package graphql
