package netcon

import "errors"

var (
	// ErrConnectionClosed is returned for operations on a closed client
	// and delivered to callers whose requests were in flight when the
	// connection went down.
	ErrConnectionClosed = errors.New("netcon: connection closed")

	// ErrRequestTimeout is returned when no correlated response arrives
	// within the request timeout. The pending id is released; a late
	// response under it is dropped as stray.
	ErrRequestTimeout = errors.New("netcon: request timed out")

	// ErrTooManyOutstanding is returned in fail-fast mode when all
	// outstanding-request slots are taken.
	ErrTooManyOutstanding = errors.New("netcon: too many outstanding requests")

	// ErrAuthRejected is returned when the server answers the AUTH
	// request with a rejection.
	ErrAuthRejected = errors.New("netcon: authentication rejected")
)
