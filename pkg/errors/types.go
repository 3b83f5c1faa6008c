// Package errors provides structured error handling for the GraphQL URL
// loader. It classifies failures into categories the retry and dispatch
// layers can act on programmatically, and keeps the underlying cause
// available through the standard error chain.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies an error for handling decisions.
type Category string

const (
	// CategoryTransport covers connection and HTTP-level failures.
	CategoryTransport Category = "transport"
	// CategoryDecode covers malformed JSON, multipart or SSE framing.
	CategoryDecode Category = "decode"
	// CategoryGraphQL covers errors reported by the server inside an
	// otherwise well-formed execution result.
	CategoryGraphQL Category = "graphql"
	// CategoryConfig covers invalid loader configuration; fatal, never retried.
	CategoryConfig Category = "config"
	// CategoryTimeout covers timeout-triggered aborts.
	CategoryTimeout Category = "timeout"
	// CategoryCancelled covers caller-initiated aborts.
	CategoryCancelled Category = "cancelled"
)

// LoaderError is the interface implemented by all errors produced by this
// module.
type LoaderError interface {
	error

	// Code returns a stable machine-readable error code.
	Code() string

	// Category returns the error category for classification.
	Category() Category

	// Retryable reports whether the retry decorator may re-attempt the
	// operation that produced this error.
	Retryable() bool

	// WithDetail returns a copy of the error with additional detail appended.
	WithDetail(detail string) LoaderError

	// Unwrap returns the underlying cause for error chain traversal.
	Unwrap() error
}

// Sentinel errors used across the transport layer.
var (
	// ErrNoResult is raised when retries are exhausted without obtaining
	// either a result or a concrete error from the inner executor.
	ErrNoResult = errors.New("no result returned from executor")

	// ErrStreamClosed is returned when reading from a result stream after
	// it has been cancelled.
	ErrStreamClosed = errors.New("result stream closed")
)

type baseError struct {
	code      string
	message   string
	detail    string
	category  Category
	retryable bool
	cause     error
}

func (e *baseError) Error() string {
	msg := e.message
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() string       { return e.code }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Retryable() bool    { return e.retryable }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithDetail(detail string) LoaderError {
	clone := *e
	if clone.detail != "" {
		clone.detail = clone.detail + "; " + detail
	} else {
		clone.detail = detail
	}
	return &clone
}

// New creates a LoaderError with the given code, message and category.
func New(code, message string, category Category, retryable bool) LoaderError {
	return &baseError{
		code:      code,
		message:   message,
		category:  category,
		retryable: retryable,
	}
}

// Wrap creates a LoaderError wrapping an underlying cause.
func Wrap(cause error, code, message string, category Category, retryable bool) LoaderError {
	return &baseError{
		code:      code,
		message:   message,
		category:  category,
		retryable: retryable,
		cause:     cause,
	}
}

// CategoryOf returns the category of err if it is a LoaderError, or
// CategoryTransport otherwise. Unknown errors come from the network stack,
// so transport is the conservative default.
func CategoryOf(err error) Category {
	var le LoaderError
	if errors.As(err, &le) {
		return le.Category()
	}
	return CategoryTransport
}

// IsRetryable reports whether err may be retried. Errors that do not
// implement LoaderError default to retryable, matching the behavior of the
// network stack where transient failures are the common case.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var le LoaderError
	if errors.As(err, &le) {
		return le.Retryable()
	}
	return true
}
