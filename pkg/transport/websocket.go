package transport

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

// WebSocket carries netcon envelopes over a WebSocket connection:
// one binary message per envelope, no extra framing. This is how the
// deployed bridge exposes the console to remote operators.
type WebSocket struct {
	conn         *websocket.Conn
	log          logging.LeveledLogger
	writeTimeout time.Duration

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

// WebSocketConfig configures the WebSocket transport.
type WebSocketConfig struct {
	// HandshakeTimeout bounds the dial handshake.
	// Zero means DefaultDialTimeout.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each envelope write. Zero disables deadlines.
	WriteTimeout time.Duration

	// LoggerFactory creates the transport's logger.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// DialWebSocket connects to a netcon bridge endpoint (ws:// or wss://).
func DialWebSocket(url string, config WebSocketConfig) (*WebSocket, error) {
	if url == "" {
		return nil, ErrInvalidAddress
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = DefaultDialTimeout
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	ws := NewWebSocket(conn, config)
	if ws.log != nil {
		ws.log.Infof("connected to %s", url)
	}
	return ws, nil
}

// NewWebSocket wraps an established WebSocket connection. Useful on the
// accepting side of a bridge and in tests.
func NewWebSocket(conn *websocket.Conn, config WebSocketConfig) *WebSocket {
	conn.SetReadLimit(protocol.MaxFrameSize)

	ws := &WebSocket{conn: conn}
	if config.LoggerFactory != nil {
		ws.log = config.LoggerFactory.NewLogger("transport-ws")
	}
	if config.WriteTimeout > 0 {
		ws.writeTimeout = config.WriteTimeout
	}
	return ws
}

// ReadEnvelope reads the next binary message. One binary message
// carries exactly one envelope; anything else on the wire is dropped.
// Control frames are handled by gorilla internally.
func (ws *WebSocket) ReadEnvelope() ([]byte, error) {
	for {
		messageType, data, err := ws.conn.ReadMessage()
		if err != nil {
			if ws.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			if ws.log != nil {
				ws.log.Warnf("dropping non-binary message (%d bytes)", len(data))
			}
			continue
		}
		return data, nil
	}
}

// WriteEnvelope writes one envelope as one binary message.
func (ws *WebSocket) WriteEnvelope(data []byte) error {
	if ws.isClosed() {
		return ErrClosed
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	if ws.writeTimeout > 0 {
		ws.conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout))
	}
	return ws.conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close frame (best effort) and tears the connection down.
func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}
	ws.closed = true
	ws.mu.Unlock()

	ws.writeMu.Lock()
	ws.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.writeMu.Unlock()

	if ws.log != nil {
		ws.log.Info("closing websocket")
	}
	return ws.conn.Close()
}

// RemoteAddr returns the peer's address.
func (ws *WebSocket) RemoteAddr() net.Addr {
	return ws.conn.RemoteAddr()
}

func (ws *WebSocket) isClosed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.closed
}

// Verify WebSocket implements Transport.
var _ Transport = (*WebSocket)(nil)
