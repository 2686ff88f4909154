// Package transport provides duplex transports that carry one netcon
// envelope per transport message. TCP connections use the protocol
// package's magic+length framing; WebSocket connections map one binary
// message to one envelope; Pipe provides an in-memory pair for
// deterministic tests without sockets.
package transport

import "net"

// Transport is a persistent duplex envelope stream.
//
// ReadEnvelope is called from a single reader goroutine and blocks
// until a whole envelope arrives. WriteEnvelope may be called
// concurrently; implementations serialize writes so frames never
// interleave. Close unblocks pending reads and is idempotent.
type Transport interface {
	// ReadEnvelope reads the next envelope's encoded bytes.
	ReadEnvelope() ([]byte, error)

	// WriteEnvelope writes one envelope's encoded bytes as one message.
	WriteEnvelope(data []byte) error

	// Close shuts the transport down and unblocks readers.
	Close() error

	// RemoteAddr returns the peer's address.
	RemoteAddr() net.Addr
}
