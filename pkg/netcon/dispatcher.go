package netcon

import (
	"context"
	"errors"
	"time"

	"github.com/pion/logging"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
	"github.com/sleep1223/r5-server-bot/pkg/session"
	"github.com/sleep1223/r5-server-bot/pkg/transport"
)

// dispatcher pairs outbound requests with their correlated responses.
// It owns the outstanding-slot backpressure and the per-request
// timeout; the session tracks ids and waiters, the transport
// serializes frames on the wire.
type dispatcher struct {
	tr   transport.Transport
	sess *session.Session
	keys *session.KeySet

	slots       chan struct{}
	blockOnFull bool
	timeout     time.Duration
	log         logging.LeveledLogger
}

func newDispatcher(tr transport.Transport, sess *session.Session, keys *session.KeySet, config Config) *dispatcher {
	d := &dispatcher{
		tr:          tr,
		sess:        sess,
		keys:        keys,
		slots:       make(chan struct{}, config.MaxOutstanding),
		blockOnFull: config.BlockOnFull,
		timeout:     config.RequestTimeout,
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("netcon-dispatch")
	}
	return d
}

// send issues one request and waits for the response echoing its id.
// The pending id is released on every path: response, timeout,
// cancellation, or connection close.
func (d *dispatcher) send(ctx context.Context, typ protocol.RequestType, msg, val string) (*protocol.Response, error) {
	if err := d.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer d.releaseSlot()

	id, waiter, err := d.sess.Register()
	if err != nil {
		return nil, mapSessionErr(err)
	}

	if err := d.write(id, typ, msg, val); err != nil {
		d.sess.Release(id)
		return nil, err
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-waiter:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return resp, nil
	case <-ctx.Done():
		d.sess.Release(id)
		return nil, ctx.Err()
	case <-timer.C:
		d.sess.Release(id)
		if d.log != nil {
			d.log.Warnf("request %d (%s) timed out after %s", id, typ, d.timeout)
		}
		return nil, ErrRequestTimeout
	}
}

// post issues one request without waiting for a response. The id is
// allocated so the frame looks like any other request on the wire, but
// no waiter is registered; a correlated reply is dropped as stray.
func (d *dispatcher) post(typ protocol.RequestType, msg, val string) error {
	id, _, err := d.sess.Register()
	if err != nil {
		return mapSessionErr(err)
	}
	d.sess.Release(id)
	return d.write(id, typ, msg, val)
}

func (d *dispatcher) write(id uint32, typ protocol.RequestType, msg, val string) error {
	req := &protocol.Request{
		MessageID:   id,
		RequestType: typ,
		RequestMsg:  msg,
		RequestVal:  val,
	}

	env, err := d.keys.Seal(protocol.EncodeRequest(req))
	if err != nil {
		return err
	}
	if err := d.tr.WriteEnvelope(env.Encode()); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return ErrConnectionClosed
		}
		return err
	}
	return nil
}

func (d *dispatcher) acquireSlot(ctx context.Context) error {
	if d.blockOnFull {
		select {
		case d.slots <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case d.slots <- struct{}{}:
		return nil
	default:
		return ErrTooManyOutstanding
	}
}

func (d *dispatcher) releaseSlot() {
	<-d.slots
}

func mapSessionErr(err error) error {
	if errors.Is(err, session.ErrClosed) {
		return ErrConnectionClosed
	}
	return err
}
