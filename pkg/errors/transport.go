package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ConnectionFailed creates an error for failures to reach the endpoint.
func ConnectionFailed(transport, endpoint string, cause error) LoaderError {
	return Wrap(
		cause,
		CodeConnectionFailed,
		fmt.Sprintf("failed to connect via %s to %s", transport, endpoint),
		CategoryTransport,
		true,
	)
}

// HTTPStatus creates an error for a non-2xx HTTP response. The status text
// is preserved so the retry loop surfaces something human-readable when
// attempts are exhausted.
func HTTPStatus(statusCode int, statusText string) LoaderError {
	if statusText == "" {
		statusText = http.StatusText(statusCode)
	}
	// Client errors other than 408/429 will not change on a re-attempt.
	retryable := statusCode >= 500 ||
		statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests
	return New(
		CodeHTTPStatus,
		fmt.Sprintf("HTTP %d: %s", statusCode, statusText),
		CategoryTransport,
		retryable,
	)
}

// Decode creates an error for a malformed response body.
func Decode(contentType string, cause error) LoaderError {
	code := CodeInvalidJSON
	switch {
	case contentType == "multipart/mixed":
		code = CodeInvalidMultipart
	case contentType == "text/event-stream":
		code = CodeInvalidEvent
	}
	return Wrap(
		cause,
		code,
		fmt.Sprintf("failed to decode %s response", contentType),
		CategoryDecode,
		false,
	)
}

// Timeout creates an error for a request aborted by its timeout.
func Timeout(endpoint string, after time.Duration) LoaderError {
	return New(
		CodeTimeout,
		fmt.Sprintf("request to %s timed out after %s", endpoint, after),
		CategoryTimeout,
		true,
	)
}

// Cancelled creates an error for a caller-aborted request.
func Cancelled(operation string) LoaderError {
	return New(
		CodeCancelled,
		fmt.Sprintf("%s cancelled", operation),
		CategoryCancelled,
		false,
	)
}

// Config creates a fatal configuration error.
func Config(message string) LoaderError {
	return New(CodeInvalidConfig, message, CategoryConfig, false)
}

// UnknownCapability creates an error for a capability reference that was
// never registered.
func UnknownCapability(kind, name string) LoaderError {
	return New(
		CodeUnknownCapability,
		fmt.Sprintf("no %s registered under %q", kind, name),
		CategoryConfig,
		false,
	)
}

// InvalidDocument creates an error for an unparsable GraphQL document.
func InvalidDocument(cause error) LoaderError {
	return Wrap(cause, CodeInvalidDocument, "invalid GraphQL document", CategoryConfig, false)
}

// Subscribe creates an error for a failed subscription establishment.
func Subscribe(protocol, endpoint string, cause error) LoaderError {
	return Wrap(
		cause,
		CodeSubscribeFailed,
		fmt.Sprintf("%s subscription to %s failed", protocol, endpoint),
		CategoryTransport,
		true,
	)
}
