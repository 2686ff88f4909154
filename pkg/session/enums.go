// Package session tracks per-connection netcon state: the
// authentication state machine, the ordered pre-shared key set with
// first-success commit, the monotonic message-id counter, and the table
// of callers waiting on correlated responses.
package session

// State is the authentication state of a netcon connection.
//
// Connected -> AuthPending on sending the auth request,
// AuthPending -> Authenticated or Failed on the auth outcome, and any
// state -> Closed on transport shutdown. Authenticated, Failed and
// Closed are terminal for their transitions; only Authenticated
// sessions may issue commands.
type State int

const (
	// StateConnected is a freshly opened, unauthenticated connection.
	StateConnected State = iota

	// StateAuthPending means an auth request is in flight.
	StateAuthPending

	// StateAuthenticated means the server accepted the RCON password.
	StateAuthenticated

	// StateFailed means authentication failed: wrong key or password,
	// timeout, or a handshake decode/decrypt error.
	StateFailed

	// StateClosed means the transport is gone and all resources are
	// released.
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthPending:
		return "AuthPending"
	case StateAuthenticated:
		return "Authenticated"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the state is a defined value.
func (s State) IsValid() bool {
	return s >= StateConnected && s <= StateClosed
}

// CanSendCommands returns true if exec and console-log requests may be
// issued in this state.
func (s State) CanSendCommands() bool {
	return s == StateAuthenticated
}
