package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

// TCP carries netcon envelopes over a TCP connection using the
// protocol package's magic+length framing. This is the transport the
// game server itself speaks.
type TCP struct {
	conn   net.Conn
	reader *protocol.StreamReader
	writer *protocol.StreamWriter
	log    logging.LeveledLogger

	writeMu sync.Mutex // serializes frames on the wire

	mu     sync.Mutex
	closed bool
}

// TCPConfig configures the TCP transport.
type TCPConfig struct {
	// DialTimeout bounds connection establishment.
	// Zero means DefaultDialTimeout.
	DialTimeout time.Duration

	// LoggerFactory creates the transport's logger.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// DefaultDialTimeout is used when TCPConfig.DialTimeout is zero.
const DefaultDialTimeout = 10 * time.Second

// DialTCP connects to a game server's netcon listener.
func DialTCP(addr string, config TCPConfig) (*TCP, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}

	timeout := config.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}

	t := NewTCP(conn, config.LoggerFactory)
	if t.log != nil {
		t.log.Infof("connected to %s", conn.RemoteAddr())
	}
	return t, nil
}

// NewTCP wraps an existing connection. Useful for tests with net.Pipe
// and for servers accepting netcon connections.
func NewTCP(conn net.Conn, loggerFactory logging.LoggerFactory) *TCP {
	t := &TCP{
		conn:   conn,
		reader: protocol.NewStreamReader(conn),
		writer: protocol.NewStreamWriter(conn),
	}
	if loggerFactory != nil {
		t.log = loggerFactory.NewLogger("transport-tcp")
	}
	return t
}

// ReadEnvelope reads the next framed envelope from the connection.
func (t *TCP) ReadEnvelope() ([]byte, error) {
	data, err := t.reader.Read()
	if err != nil {
		if t.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}
	return data, nil
}

// WriteEnvelope writes one envelope as a single frame.
func (t *TCP) WriteEnvelope(data []byte) error {
	if t.isClosed() {
		return ErrClosed
	}
	if len(data) > protocol.MaxFrameSize {
		return ErrMessageTooLarge
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.writer.Write(data)
}

// Close closes the connection, unblocking any pending read.
func (t *TCP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if t.log != nil {
		t.log.Infof("closing connection to %s", t.conn.RemoteAddr())
	}
	return t.conn.Close()
}

// RemoteAddr returns the peer's address.
func (t *TCP) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *TCP) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Verify TCP implements Transport.
var _ Transport = (*TCP)(nil)
