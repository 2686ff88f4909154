package protocol

import "errors"

// Protocol layer errors.
var (
	// ErrMalformedFrame is returned when an envelope or message is
	// structurally invalid (truncated fields, missing nonce on an
	// encrypted envelope, empty payload). Fatal to the frame only.
	ErrMalformedFrame = errors.New("protocol: malformed frame")

	// ErrUnknownMessageType is returned when a request or response
	// carries a type code outside the game server's wire contract.
	// The frame is dropped rather than misrouted.
	ErrUnknownMessageType = errors.New("protocol: unknown message type")

	// ErrBadMagic is returned when a stream frame does not start with
	// the netcon frame magic.
	ErrBadMagic = errors.New("protocol: bad frame magic")

	// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

	// ErrEmptyFrame is returned when a stream frame declares zero length.
	ErrEmptyFrame = errors.New("protocol: empty frame")

	// ErrStreamReadFailed is returned when reading a frame from the
	// byte stream fails mid-frame.
	ErrStreamReadFailed = errors.New("protocol: failed to read from stream")
)
