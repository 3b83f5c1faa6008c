package graphql

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	loadererrors "github.com/lipsumar/graphql-tools/pkg/errors"
)

// OperationKind is the kind of a GraphQL operation.
type OperationKind string

const (
	OperationQuery        OperationKind = "query"
	OperationMutation     OperationKind = "mutation"
	OperationSubscription OperationKind = "subscription"
)

// LiveDirective is the directive marking a query for server-driven
// re-delivery over the subscription transport.
const LiveDirective = "live"

// Parse parses a GraphQL operation document.
func Parse(query string) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return nil, loadererrors.InvalidDocument(err)
	}
	return doc, nil
}

// Print renders a document to text. The output is deterministic: printing
// the same document any number of times yields identical bytes.
func Print(doc *ast.QueryDocument) string {
	var b strings.Builder
	formatter.NewFormatter(&b).FormatQueryDocument(doc)
	return b.String()
}

// Operation selects the operation definition the request targets: the one
// matching name, or the only one when name is empty.
func Operation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, error) {
	if name == "" {
		if len(doc.Operations) == 0 {
			return nil, loadererrors.InvalidDocument(fmt.Errorf("document defines no operations"))
		}
		return doc.Operations[0], nil
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, loadererrors.InvalidDocument(fmt.Errorf("operation %q not found in document", name))
}

// Classify returns the operation kind for the named operation in doc.
func Classify(doc *ast.QueryDocument, operationName string) (OperationKind, error) {
	op, err := Operation(doc, operationName)
	if err != nil {
		return "", err
	}
	switch op.Operation {
	case ast.Mutation:
		return OperationMutation, nil
	case ast.Subscription:
		return OperationSubscription, nil
	default:
		return OperationQuery, nil
	}
}

// IsLiveQuery reports whether op is annotated with @live and the annotation
// is active for the given variable values. An `if` argument referencing a
// variable disables the live query when that variable is false; a literal
// `if: false` disables it outright.
func IsLiveQuery(op *ast.OperationDefinition, variables map[string]interface{}) bool {
	if op == nil || op.Operation != ast.Query {
		return false
	}
	d := op.Directives.ForName(LiveDirective)
	if d == nil {
		return false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil || arg.Value == nil {
		return true
	}
	switch arg.Value.Kind {
	case ast.BooleanValue:
		return arg.Value.Raw != "false"
	case ast.Variable:
		if variables == nil {
			return true
		}
		if v, ok := variables[arg.Value.Raw]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return true
	}
	return true
}
