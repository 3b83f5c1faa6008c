package errors

// Stable error codes. These are carried in the Code() of every LoaderError
// so callers can switch on failure kind without string matching.
const (
	// Transport codes
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeHTTPStatus       = "HTTP_STATUS"
	CodeWebSocketClosed  = "WEBSOCKET_CLOSED"
	CodeSubscribeFailed  = "SUBSCRIBE_FAILED"

	// Decode codes
	CodeInvalidJSON      = "INVALID_JSON"
	CodeInvalidMultipart = "INVALID_MULTIPART"
	CodeInvalidEvent     = "INVALID_EVENT_STREAM"

	// Lifecycle codes
	CodeTimeout   = "TIMEOUT"
	CodeCancelled = "CANCELLED"

	// Configuration codes
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeUnknownCapability = "UNKNOWN_CAPABILITY"
	CodeInvalidDocument   = "INVALID_DOCUMENT"
)
