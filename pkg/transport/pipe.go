package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

// Pipe is an in-memory Transport for tests: two endpoints joined by a
// pion test bridge, one envelope per bridge packet, no real network
// I/O. A background pump delivers queued packets so tests need no
// manual ticking.
type Pipe struct {
	conn net.Conn
	id   int
	core *pipeCore

	writeMu sync.Mutex
}

// pipeCore is the bridge and pump shared by both endpoints.
// Closing either endpoint closes both bridge conns so a peer blocked in
// ReadEnvelope is released.
type pipeCore struct {
	bridge *test.Bridge
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// drainDeadline bounds how long close waits for queued packets to be
// handed to their readers before giving up on them.
const drainDeadline = time.Second

func (c *pipeCore) close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		// bridgeConn.Close only flags the conn as closing; the bridge
		// releases blocked readers on a later tick that sees the flag
		// with an empty queue. Flag both conns first, keep ticking
		// until the queues drain, then one more tick fires the close
		// path before the pump stops.
		c.bridge.GetConn0().Close()
		c.bridge.GetConn1().Close()

		deadline := time.Now().Add(drainDeadline)
		for c.bridge.Len(0) > 0 || c.bridge.Len(1) > 0 {
			if !time.Now().Before(deadline) {
				break
			}
			c.bridge.Tick()
			time.Sleep(pumpInterval)
		}
		c.bridge.Tick()

		close(c.stopCh)
		c.wg.Wait()
	})
}

func (c *pipeCore) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// pumpInterval is how often queued bridge packets are delivered.
const pumpInterval = time.Millisecond

// NewPipePair creates two connected in-memory transports.
// Envelopes written on one endpoint arrive at the other in order.
func NewPipePair() (*Pipe, *Pipe) {
	core := &pipeCore{
		bridge: test.NewBridge(),
		stopCh: make(chan struct{}),
	}

	core.wg.Add(1)
	go func() {
		defer core.wg.Done()
		ticker := time.NewTicker(pumpInterval)
		defer ticker.Stop()
		for {
			select {
			case <-core.stopCh:
				return
			case <-ticker.C:
				core.bridge.Tick()
			}
		}
	}()

	p0 := &Pipe{conn: core.bridge.GetConn0(), id: 0, core: core}
	p1 := &Pipe{conn: core.bridge.GetConn1(), id: 1, core: core}
	return p0, p1
}

// ReadEnvelope reads the next envelope (one bridge packet).
func (p *Pipe) ReadEnvelope() ([]byte, error) {
	buf := make([]byte, protocol.MaxFrameSize)
	n, err := p.conn.Read(buf)
	if err != nil {
		if p.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}
	data := make([]byte, n)
	copy(data, buf[:n])
	return data, nil
}

// WriteEnvelope writes one envelope as one bridge packet.
func (p *Pipe) WriteEnvelope(data []byte) error {
	if p.isClosed() {
		return ErrClosed
	}
	if len(data) > protocol.MaxFrameSize {
		return ErrMessageTooLarge
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.conn.Write(data)
	return err
}

// Close closes both endpoints and stops the shared pump. A peer
// blocked in ReadEnvelope returns ErrClosed.
func (p *Pipe) Close() error {
	p.core.close()
	return nil
}

// RemoteAddr returns a synthetic address naming the peer endpoint.
func (p *Pipe) RemoteAddr() net.Addr {
	return pipeAddr{id: 1 - p.id}
}

func (p *Pipe) isClosed() bool {
	return p.core.isClosed()
}

// pipeAddr implements net.Addr for pipe endpoints.
type pipeAddr struct {
	id int
}

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return fmt.Sprintf("pipe:%d", a.id) }

// Verify Pipe implements Transport.
var _ Transport = (*Pipe)(nil)
