package session

import "errors"

// Session package errors.
var (
	// ErrNoKeys is returned when a key set is constructed without keys
	// and plaintext is not allowed.
	ErrNoKeys = errors.New("session: key set has no keys")

	// ErrDecryptionFailed is returned when no configured key verifies an
	// encrypted envelope. Trust cannot be established; connection-fatal.
	ErrDecryptionFailed = errors.New("session: no key verifies the envelope")

	// ErrEncryptionRequired is returned for a plaintext envelope when
	// the key set does not allow plaintext traffic.
	ErrEncryptionRequired = errors.New("session: plaintext envelope rejected, encryption required")

	// ErrNotAuthenticated is returned when a command is issued before
	// the session reaches the Authenticated state. Rejected locally, no
	// transport traffic is produced.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrInvalidTransition is returned for a state change the state
	// machine does not permit.
	ErrInvalidTransition = errors.New("session: invalid state transition")

	// ErrClosed is returned when an operation is attempted on a closed
	// session.
	ErrClosed = errors.New("session: closed")

	// ErrDuplicateID is returned when a waiter is registered under a
	// messageId that is still pending. Guards counter wrap-around.
	ErrDuplicateID = errors.New("session: duplicate pending message id")

	// ErrIDSpaceExhausted is returned when every usable messageId is
	// simultaneously pending. Practically unreachable.
	ErrIDSpaceExhausted = errors.New("session: message id space exhausted")
)
