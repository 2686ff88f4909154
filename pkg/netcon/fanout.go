package netcon

import (
	"sync"
	"sync/atomic"
)

// Subscription is one subscriber's view of the console-log stream.
// Lines arrive in server order on C. The queue is bounded; when a
// subscriber falls behind, the oldest queued line is dropped and the
// drop counter incremented. A slow subscriber never blocks the
// connection's read loop or other subscribers.
type Subscription struct {
	ch      chan string
	dropped atomic.Uint64
	f       *fanout
}

// C returns the line channel. It is closed when the subscription is
// cancelled or the client closes.
func (s *Subscription) C() <-chan string {
	return s.ch
}

// Dropped returns how many lines were discarded because the
// subscriber's queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe cancels the subscription and closes its channel.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.f.remove(s)
}

// deliver queues a line without blocking, evicting the oldest queued
// line when full. Called only from the fan-out with its lock held, so
// it is the sole sender on s.ch.
func (s *Subscription) deliver(line string) {
	for {
		select {
		case s.ch <- line:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// fanout replicates console-log lines to every live subscription.
type fanout struct {
	buffer int

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newFanout(buffer int) *fanout {
	return &fanout{
		buffer: buffer,
		subs:   make(map[*Subscription]struct{}),
	}
}

func (f *fanout) subscribe() *Subscription {
	s := &Subscription{
		ch: make(chan string, f.buffer),
		f:  f,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(s.ch)
		return s
	}
	f.subs[s] = struct{}{}
	return s
}

func (f *fanout) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[s]; !ok {
		return
	}
	delete(f.subs, s)
	close(s.ch)
}

func (f *fanout) publish(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		s.deliver(line)
	}
}

func (f *fanout) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for s := range f.subs {
		delete(f.subs, s)
		close(s.ch)
	}
}
