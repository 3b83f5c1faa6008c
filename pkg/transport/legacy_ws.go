package transport

import (
	"github.com/gorilla/websocket"

	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// graphql-ws, the legacy subprotocol still spoken by older servers. Same
// connection lifecycle as the modern one; the frame vocabulary differs and
// teardown is a distinct "stop" frame rather than a reused "complete".
var legacyProtocol = socketProtocol{
	name:           "graphql-ws",
	initType:       "connection_init",
	ackType:        "connection_ack",
	subscribeType:  "start",
	nextType:       "data",
	errorType:      "error",
	completeType:   "complete",
	stopType:       "stop",
	keepAliveTypes: []string{"ka", "connection_keep_alive"},
}

func newLegacyWSClient(endpoint string, dialer *websocket.Dialer, headers map[string]string, initPayload map[string]interface{}, logger logging.Logger) *socketClient {
	return newSocketClient(endpoint, dialer, headers, initPayload, legacyProtocol, logger)
}
