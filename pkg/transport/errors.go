package transport

import "errors"

// Transport errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed
	// transport.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when an empty or unusable peer
	// address is provided.
	ErrInvalidAddress = errors.New("transport: invalid address")

	// ErrMessageTooLarge is returned when an envelope exceeds the
	// transport's frame limit.
	ErrMessageTooLarge = errors.New("transport: message too large")
)
