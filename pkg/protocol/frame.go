package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Byte-stream framing. Each envelope on a TCP connection is preceded by
// an 8-byte header: frame magic then envelope length, both big-endian.
// Message-oriented transports (WebSocket) skip this layer entirely and
// carry one envelope per transport message.

const (
	// FrameMagic marks the start of every stream frame.
	// 'R' + ('C'<<8) + ('o'<<16) + ('n'<<24), as the game server defines it.
	FrameMagic uint32 = 0x6E6F4352

	// FrameHeaderSize is magic (4) + length (4).
	FrameHeaderSize = 8

	// MaxFrameSize bounds a single envelope. Console output is line
	// oriented; anything past this is a corrupt or hostile frame.
	MaxFrameSize = 1 << 20
)

// StreamWriter adds netcon framing to an io.Writer.
type StreamWriter struct {
	w io.Writer
}

// NewStreamWriter creates a stream writer for netcon framing.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Write writes one envelope's encoded bytes as a single frame.
func (sw *StreamWriter) Write(envelope []byte) error {
	if len(envelope) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, FrameHeaderSize+len(envelope))
	binary.BigEndian.PutUint32(buf[0:4], FrameMagic)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(envelope)))
	copy(buf[FrameHeaderSize:], envelope)

	// One Write call per frame so concurrent framers on the same
	// writer cannot interleave header and body.
	_, err := sw.w.Write(buf)
	return err
}

// StreamReader reads netcon-framed envelopes from an io.Reader.
type StreamReader struct {
	r io.Reader
}

// NewStreamReader creates a stream reader for netcon framing.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// Read reads one frame and returns the envelope bytes without the header.
// io.EOF is passed through untouched so callers can detect a clean close.
func (sr *StreamReader) Read() ([]byte, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(sr.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reading frame header: %w", ErrStreamReadFailed, err)
	}

	if binary.BigEndian.Uint32(header[0:4]) != FrameMagic {
		return nil, ErrBadMagic
	}

	length := binary.BigEndian.Uint32(header[4:8])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	envelope := make([]byte, length)
	if _, err := io.ReadFull(sr.r, envelope); err != nil {
		return nil, fmt.Errorf("%w: reading frame body: %w", ErrStreamReadFailed, err)
	}
	return envelope, nil
}
