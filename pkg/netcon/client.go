// Package netcon implements the client side of the game server's
// remote console protocol: encrypted protobuf envelopes carrying
// requests, correlated responses, and pushed console-log lines over a
// single connection.
package netcon

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pion/logging"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
	"github.com/sleep1223/r5-server-bot/pkg/session"
	"github.com/sleep1223/r5-server-bot/pkg/transport"
)

// Result is the outcome of an executed console command.
type Result struct {
	// Success is false when the server flagged the command as failed.
	Success bool
	// Message is the server's immediate reply text, if any.
	Message string
}

// Client is a remote console connection to a game server. It owns
// exactly one reader goroutine; any number of goroutines may issue
// requests concurrently. All methods are safe for concurrent use.
//
// The pre-shared envelope keys and the RCON password are separate
// trust domains: keys protect the wire, the password authorizes the
// session. Neither stands in for the other.
type Client struct {
	tr   transport.Transport
	sess *session.Session
	keys *session.KeySet
	disp *dispatcher
	logs *fanout
	log  logging.LeveledLogger

	closeOnce sync.Once
	readDone  chan struct{}
}

// NewClient wraps an established transport. The returned client is in
// the Connected state; call Authenticate before issuing commands.
func NewClient(tr transport.Transport, keys *session.KeySet, config Config) *Client {
	config = config.withDefaults()

	c := &Client{
		tr:       tr,
		sess:     session.New(),
		keys:     keys,
		logs:     newFanout(config.SubscriberBuffer),
		readDone: make(chan struct{}),
	}
	c.disp = newDispatcher(tr, c.sess, keys, config)
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("netcon-client")
	}

	go c.readLoop()
	return c
}

// Dial connects to a game server's netcon TCP listener.
func Dial(addr string, keys *session.KeySet, config Config) (*Client, error) {
	tr, err := transport.DialTCP(addr, transport.TCPConfig{
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	return NewClient(tr, keys, config), nil
}

// DialWebSocket connects to a netcon endpoint bridged over WebSocket,
// one envelope per binary message.
func DialWebSocket(url string, keys *session.KeySet, config Config) (*Client, error) {
	tr, err := transport.DialWebSocket(url, transport.WebSocketConfig{
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	return NewClient(tr, keys, config), nil
}

// Authenticate presents the RCON password and waits for the server's
// verdict. With multiple candidate keys it probes them in order: a
// request sealed under the wrong key draws no response, so on timeout
// the next key is tried until one yields a verifiable reply, which
// commits that key for the rest of the session.
//
// On acceptance the client enables console-log streaming the way the
// original console does, then enters the Authenticated state. A
// rejection returns ErrAuthRejected and the session is Failed.
func (c *Client) Authenticate(ctx context.Context, password string) error {
	if err := c.sess.Transition(session.StateAuthPending); err != nil {
		return err
	}

	attempts := c.keys.Len()
	if attempts == 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		c.keys.SetPreferred(i)

		resp, err := c.disp.send(ctx, protocol.RequestAuth, password, "")
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrRequestTimeout) && !c.keys.Committed() && i+1 < attempts {
				if c.log != nil {
					c.log.Infof("no auth response under key %d, trying next candidate", i)
				}
				continue
			}
			_ = c.sess.Transition(session.StateFailed)
			return err
		}

		if resp.ResponseVal == "-1" {
			_ = c.sess.Transition(session.StateFailed)
			return ErrAuthRejected
		}

		if err := c.sess.Transition(session.StateAuthenticated); err != nil {
			return mapSessionErr(err)
		}
		if c.log != nil {
			c.log.Infof("authenticated: %s", resp.ResponseMsg)
		}

		// responseVal 0 asks the client to opt in to log streaming.
		if resp.ResponseVal == "" || resp.ResponseVal == "0" {
			if err := c.disp.post(protocol.RequestSendConsoleLog, "", "1"); err != nil {
				if c.log != nil {
					c.log.Warnf("enabling console log stream: %v", err)
				}
			}
		}
		return nil
	}

	_ = c.sess.Transition(session.StateFailed)
	return lastErr
}

// ExecCommand runs a console command and returns the server's
// correlated reply. Before authentication it fails with
// ErrNotAuthenticated and nothing touches the wire.
//
// cmd and val are merged the way the original console client does:
// val may repeat the command token or carry only the arguments.
func (c *Client) ExecCommand(ctx context.Context, cmd, val string) (Result, error) {
	if err := c.sess.RequireCommands(); err != nil {
		return Result{}, mapSessionErr(err)
	}

	name, full := normalizeExecCommand(cmd, val)
	resp, err := c.disp.send(ctx, protocol.RequestExecCommand, name, full)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: resp.ResponseVal != "-1",
		Message: resp.ResponseMsg,
	}, nil
}

// StreamConsoleLog turns the server's console-log push stream on or
// off. Authenticate enables it automatically when the server asks.
func (c *Client) StreamConsoleLog(enable bool) error {
	if err := c.sess.RequireCommands(); err != nil {
		return mapSessionErr(err)
	}
	val := "0"
	if enable {
		val = "1"
	}
	return c.disp.post(protocol.RequestSendConsoleLog, "", val)
}

// SubscribeConsoleLog registers a new console-log subscriber.
// Cancel it with Subscription.Unsubscribe; Close cancels all.
func (c *Client) SubscribeConsoleLog() *Subscription {
	return c.logs.subscribe()
}

// State returns the session's current authentication state.
func (c *Client) State() session.State {
	return c.sess.State()
}

// Close tears down the connection. Pending requests fail with
// ErrConnectionClosed and every subscription channel is closed.
// Safe to call more than once.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

// Done is closed when the reader goroutine has exited.
func (c *Client) Done() <-chan struct{} {
	return c.readDone
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		_ = c.sess.Transition(session.StateClosed)
		c.tr.Close()
		c.logs.close()
	})
}

// readLoop is the connection's only reader. Console-log pushes go to
// the fan-out; correlated responses resolve their waiter; strays are
// dropped. During the handshake a frame that fails to decode is
// connection-fatal; once authenticated such frames are logged and
// skipped. A frame that fails AEAD verification is always fatal, the
// peer is sealing under a key this client cannot agree on.
func (c *Client) readLoop() {
	defer close(c.readDone)

	for {
		raw, err := c.tr.ReadEnvelope()
		if err != nil {
			if c.log != nil && !errors.Is(err, transport.ErrClosed) {
				c.log.Errorf("read: %v", err)
			}
			c.shutdown()
			return
		}

		env, err := protocol.DecodeEnvelope(raw)
		if err != nil {
			if c.dropOrDie("envelope", err) {
				return
			}
			continue
		}

		plaintext, err := c.keys.Open(env)
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedFrame) {
				if c.dropOrDie("envelope", err) {
					return
				}
				continue
			}
			if c.log != nil {
				c.log.Errorf("cannot decrypt inbound frame: %v", err)
			}
			c.shutdown()
			return
		}

		resp, err := protocol.DecodeResponse(plaintext)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownMessageType) {
				// Forward-compatibility guard: an unrecognized type
				// code drops the frame, never the connection.
				if c.log != nil {
					c.log.Warnf("dropping response: %v", err)
				}
				continue
			}
			if c.dropOrDie("response", err) {
				return
			}
			continue
		}

		c.route(resp)
	}
}

// dropOrDie handles a malformed inbound frame. It reports true when
// the error is fatal and the loop must exit.
func (c *Client) dropOrDie(what string, err error) bool {
	if c.sess.State() == session.StateAuthenticated {
		if c.log != nil {
			c.log.Warnf("dropping malformed %s: %v", what, err)
		}
		return false
	}
	if c.log != nil {
		c.log.Errorf("malformed %s during handshake: %v", what, err)
	}
	c.shutdown()
	return true
}

func (c *Client) route(resp *protocol.Response) {
	switch {
	case resp.ResponseType == protocol.ResponseConsoleLog:
		c.logs.publish(resp.ResponseMsg)
	case resp.ResponseType.IsCorrelated():
		if !c.sess.Resolve(resp.MessageID, resp) && c.log != nil {
			c.log.Debugf("dropping stray %s response id=%d", resp.ResponseType, resp.MessageID)
		}
	}
}

// normalizeExecCommand merges the command and value tokens into the
// (requestMsg, requestVal) pair the server expects: requestMsg carries
// the command name, requestVal the full command line. When val already
// repeats the command token it wins wholesale.
func normalizeExecCommand(cmd, val string) (string, string) {
	cmd = strings.TrimSpace(cmd)
	val = strings.TrimSpace(val)

	if cmd == "" && val == "" {
		return "", ""
	}

	full := cmd
	if val != "" {
		cmdToken := firstToken(cmd)
		valToken := firstToken(val)
		if cmdToken != "" && valToken == cmdToken {
			full = val
		} else {
			full = strings.TrimSpace(cmd + " " + val)
		}
	}
	return firstToken(full), full
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
