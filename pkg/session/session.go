package session

import (
	"sync"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

// Waiter receives the correlated response for one outstanding request.
// The channel is buffered; it is closed without a value when the
// session shuts down.
type Waiter <-chan *protocol.Response

// Session holds the per-connection protocol state: authentication
// state, the monotonic message-id counter, and the pending table
// mapping outstanding messageIds to waiting callers.
//
// Invariant: every pending id maps to at most one waiter and is
// released exactly once: on matching response, timeout, cancel, or
// session close.
type Session struct {
	mu      sync.Mutex
	state   State
	nextID  uint32
	pending map[uint32]chan *protocol.Response
}

// New creates a session in the Connected state.
func New() *Session {
	return &Session{
		state:   StateConnected,
		pending: make(map[uint32]chan *protocol.Response),
	}
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the state machine to next, validating the edge.
// Closed is reachable from every state; entering Closed releases all
// pending waiters.
func (s *Session) Transition(next State) error {
	s.mu.Lock()

	if next == StateClosed {
		if s.state != StateClosed {
			s.state = StateClosed
			s.failAllLocked()
		}
		s.mu.Unlock()
		return nil
	}

	ok := false
	switch s.state {
	case StateConnected:
		ok = next == StateAuthPending || next == StateFailed
	case StateAuthPending:
		ok = next == StateAuthenticated || next == StateFailed
	case StateAuthenticated, StateFailed, StateClosed:
		ok = false
	}
	if !ok {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.state = next
	s.mu.Unlock()
	return nil
}

// RequireCommands verifies the session may issue commands.
func (s *Session) RequireCommands() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return ErrClosed
	}
	if !s.state.CanSendCommands() {
		return ErrNotAuthenticated
	}
	return nil
}

// Register allocates the next messageId and registers a waiter for it.
// Ids increase monotonically and wrap past zero (0 is never issued, so
// a zero id on the wire is visibly unsolicited). If the candidate id is
// still pending from a previous wrap, it is skipped.
func (s *Session) Register() (uint32, Waiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return 0, nil, ErrClosed
	}

	for attempts := 0; attempts < len(s.pending)+1; attempts++ {
		s.nextID++
		if s.nextID == 0 {
			s.nextID = 1
		}
		if _, dup := s.pending[s.nextID]; dup {
			continue
		}
		ch := make(chan *protocol.Response, 1)
		s.pending[s.nextID] = ch
		return s.nextID, ch, nil
	}
	return 0, nil, ErrIDSpaceExhausted
}

// Resolve delivers a correlated response to its waiter and releases the
// id. Returns false if no waiter is pending under that id (stray or
// duplicate frame; the caller drops and logs it).
func (s *Session) Resolve(id uint32, resp *protocol.Response) bool {
	s.mu.Lock()
	ch, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	ch <- resp
	return true
}

// Release removes a pending waiter without delivering a response,
// freeing the id after a timeout or cancellation. Releasing an id that
// is no longer pending is a no-op.
func (s *Session) Release(id uint32) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Outstanding returns the number of requests awaiting a response.
func (s *Session) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// failAllLocked closes every pending waiter channel. A closed channel
// yields a nil response, which callers map to a connection-closed
// error. Caller must hold s.mu.
func (s *Session) failAllLocked() {
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
}
