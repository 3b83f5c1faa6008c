package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/sync/singleflight"

	"github.com/lipsumar/graphql-tools/pkg/errors"
	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

const wsHandshakeTimeout = 10 * time.Second

// socketProtocol captures the differences between the two websocket
// subprotocols so one client implementation serves both. The variant is
// fixed at construction.
type socketProtocol struct {
	name           string // Sec-WebSocket-Protocol value
	initType       string
	ackType        string
	subscribeType  string
	nextType       string
	errorType      string
	completeType   string
	stopType       string // client-initiated teardown frame
	keepAliveTypes []string
}

// graphql-transport-ws, the modern subprotocol.
var modernProtocol = socketProtocol{
	name:           "graphql-transport-ws",
	initType:       "connection_init",
	ackType:        "connection_ack",
	subscribeType:  "subscribe",
	nextType:       "next",
	errorType:      "error",
	completeType:   "complete",
	stopType:       "complete",
	keepAliveTypes: []string{"ping", "pong"},
}

type socketMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// socketClient is a persistent subscription client over one websocket
// connection. The connection is established lazily on the first subscribe
// and shared by every logical subscription; concurrent first subscribes
// collapse into a single dial via singleflight.
type socketClient struct {
	endpoint    string
	dialer      *websocket.Dialer
	headers     map[string]string
	initPayload map[string]interface{}
	protocol    socketProtocol
	logger      logging.Logger

	connectGroup singleflight.Group

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]*Stream
	closed bool

	writeMu sync.Mutex
}

func newWSClient(endpoint string, dialer *websocket.Dialer, headers map[string]string, initPayload map[string]interface{}, logger logging.Logger) *socketClient {
	return newSocketClient(endpoint, dialer, headers, initPayload, modernProtocol, logger)
}

func newSocketClient(endpoint string, dialer *websocket.Dialer, headers map[string]string, initPayload map[string]interface{}, protocol socketProtocol, logger logging.Logger) *socketClient {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &socketClient{
		endpoint:    endpoint,
		dialer:      dialer,
		headers:     headers,
		initPayload: initPayload,
		protocol:    protocol,
		logger:      logger,
		subs:        make(map[string]*Stream),
	}
}

// Subscribe registers one logical subscription on the shared connection
// and returns its result stream. Closing the stream sends the protocol's
// teardown frame so the server-side subscription is released, not just the
// local consumption.
func (c *socketClient) Subscribe(ctx context.Context, req *graphql.Request) (*Stream, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, errors.Subscribe(c.protocol.name, c.endpoint, err)
	}

	id := uuid.NewString()
	stream := NewStream(func() { c.stop(id) })

	c.mu.Lock()
	conn := c.conn
	if conn == nil || c.closed {
		c.mu.Unlock()
		return nil, errors.Subscribe(c.protocol.name, c.endpoint, fmt.Errorf("connection lost"))
	}
	c.subs[id] = stream
	c.mu.Unlock()

	payload, err := json.Marshal(newWireRequest(req))
	if err != nil {
		c.forget(id)
		return nil, errors.Config("failed to encode subscribe payload: " + err.Error())
	}
	if err := c.write(conn, socketMessage{ID: id, Type: c.protocol.subscribeType, Payload: payload}); err != nil {
		c.forget(id)
		return nil, errors.Subscribe(c.protocol.name, c.endpoint, err)
	}

	// Tie the stream to the caller's context without pinning a goroutine
	// past the stream's own lifetime. The watcher also exits when the
	// server completes the sequence, even if the consumer never calls
	// Close.
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-stream.closed:
		case <-stream.finished:
		}
	}()

	c.logger.Debug("subscription started",
		logging.String("protocol", c.protocol.name),
		logging.String("id", id))
	return stream, nil
}

// ensureConnected dials, performs the init/ack handshake and starts the
// read loop, exactly once per connection even under concurrent subscribes.
func (c *socketClient) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client closed")
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_, err, _ := c.connectGroup.Do("connect", func() (interface{}, error) {
		c.mu.Lock()
		if c.conn != nil {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()
		return nil, c.connect(ctx)
	})
	return err
}

func (c *socketClient) connect(ctx context.Context) error {
	dialer := *c.dialer
	dialer.Subprotocols = []string{c.protocol.name}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = wsHandshakeTimeout
	}

	header := http.Header{}
	for k, v := range c.headers {
		header.Set(k, v)
	}

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}

	var initPayload json.RawMessage
	if c.initPayload != nil {
		initPayload, err = json.Marshal(c.initPayload)
		if err != nil {
			conn.Close()
			return err
		}
	}
	if err := c.write(conn, socketMessage{Type: c.protocol.initType, Payload: initPayload}); err != nil {
		conn.Close()
		return err
	}

	// Wait for the ack, skipping keep-alive frames the server may emit
	// before it.
	conn.SetReadDeadline(time.Now().Add(wsHandshakeTimeout))
	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			return err
		}
		if msg.Type == c.protocol.ackType {
			break
		}
		if c.isKeepAlive(msg.Type) {
			continue
		}
		conn.Close()
		return fmt.Errorf("expected %s, got %s", c.protocol.ackType, msg.Type)
	}
	conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	c.logger.Debug("websocket connected",
		logging.String("protocol", c.protocol.name),
		logging.String("endpoint", c.endpoint))
	return nil
}

func (c *socketClient) readLoop(conn *websocket.Conn) {
	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch msg.Type {
		case c.protocol.nextType:
			var result graphql.Result
			if err := json.Unmarshal(msg.Payload, &result); err != nil {
				c.failSub(msg.ID, errors.Decode("application/json", err))
				continue
			}
			if stream := c.lookup(msg.ID); stream != nil {
				stream.Emit(&result)
			}
		case c.protocol.errorType:
			// Server-reported subscription errors are sequence elements,
			// not raised failures; the element terminates the sequence.
			result := &graphql.Result{Errors: decodeErrorPayload(msg.Payload)}
			if stream := c.take(msg.ID); stream != nil {
				stream.Emit(result)
				stream.End()
			}
		case c.protocol.completeType:
			if stream := c.take(msg.ID); stream != nil {
				stream.End()
			}
		case "ping":
			c.write(conn, socketMessage{Type: "pong"})
		default:
			if !c.isKeepAlive(msg.Type) {
				c.logger.Debug("ignoring websocket frame", logging.String("type", msg.Type))
			}
		}
	}
}

// handleDisconnect tears down every live subscription. A deliberate Close
// ends the streams normally; an unexpected read error fails them so the
// consumer can distinguish.
func (c *socketClient) handleDisconnect(conn *websocket.Conn, cause error) {
	conn.Close()

	c.mu.Lock()
	deliberate := c.closed
	if c.conn == conn {
		c.conn = nil
	}
	orphans := c.subs
	c.subs = make(map[string]*Stream)
	c.mu.Unlock()

	for _, stream := range orphans {
		if deliberate {
			stream.End()
		} else {
			stream.Fail(errors.Wrap(cause, errors.CodeWebSocketClosed,
				"websocket connection lost", errors.CategoryTransport, true))
		}
	}
}

func (c *socketClient) lookup(id string) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[id]
}

// take removes and returns the stream for id.
func (c *socketClient) take(id string) *Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	stream := c.subs[id]
	delete(c.subs, id)
	return stream
}

func (c *socketClient) failSub(id string, err error) {
	if stream := c.take(id); stream != nil {
		stream.Fail(err)
	}
}

// forget drops a subscription without touching the wire.
func (c *socketClient) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

// stop tears down one server-side subscription. Invoked from Stream.Close,
// which guarantees it runs at most once per stream.
func (c *socketClient) stop(id string) {
	c.mu.Lock()
	_, live := c.subs[id]
	delete(c.subs, id)
	conn := c.conn
	c.mu.Unlock()

	if live && conn != nil {
		c.write(conn, socketMessage{ID: id, Type: c.protocol.stopType})
	}
}

func (c *socketClient) write(conn *websocket.Conn, msg socketMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *socketClient) isKeepAlive(msgType string) bool {
	for _, t := range c.protocol.keepAliveTypes {
		if t == msgType {
			return true
		}
	}
	return false
}

// Close shuts the shared connection down. Live subscription streams end
// normally.
func (c *socketClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		return conn.Close()
	}
	return nil
}

// decodeErrorPayload accepts the shapes both subprotocols use: an array of
// GraphQL errors (modern) or a single error object (legacy).
func decodeErrorPayload(payload json.RawMessage) gqlerror.List {
	var list gqlerror.List
	if err := json.Unmarshal(payload, &list); err == nil && len(list) > 0 {
		return list
	}
	var single gqlerror.Error
	if err := json.Unmarshal(payload, &single); err == nil && single.Message != "" {
		return gqlerror.List{&single}
	}
	return gqlerror.List{gqlerror.Errorf("subscription error: %s", string(payload))}
}
