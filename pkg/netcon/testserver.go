package netcon

import (
	"sync"

	"github.com/sleep1223/r5-server-bot/pkg/protocol"
	"github.com/sleep1223/r5-server-bot/pkg/session"
	"github.com/sleep1223/r5-server-bot/pkg/transport"
)

// =============================================================================
// Exported Test Infrastructure
// =============================================================================

// TestServer fakes the game server end of a netcon connection for
// tests: it decrypts inbound requests with its own key set, answers
// them through a scriptable handler, and can push unsolicited
// console-log lines. Frames it cannot decrypt are dropped without a
// reply, exactly like the real server, which is what makes key
// probing during authentication observable in tests.
type TestServer struct {
	tr   transport.Transport
	keys *session.KeySet

	password string
	authVal  string
	handler  func(req *protocol.Request) []*protocol.Response

	requests chan *protocol.Request

	closeOnce sync.Once
	done      chan struct{}
}

// TestServerConfig configures a TestServer.
type TestServerConfig struct {
	// Keys is the server's key set. Inbound frames that fail to
	// decrypt under it are silently dropped.
	Keys *session.KeySet

	// Password is the RCON password the server accepts.
	Password string

	// AuthVal is the responseVal sent on successful authentication.
	// Empty means "0", which asks the client to enable log streaming.
	AuthVal string

	// Handler overrides the default request handling when set.
	// Returned responses are sealed and written in order.
	Handler func(req *protocol.Request) []*protocol.Response
}

// NewTestPair wires a TestServer to one end of an in-memory pipe and
// returns the other end for the client under test.
func NewTestPair(config TestServerConfig) (transport.Transport, *TestServer) {
	clientEnd, serverEnd := transport.NewPipePair()
	return clientEnd, NewTestServer(serverEnd, config)
}

// NewTestServer runs a fake game server on an established transport.
func NewTestServer(tr transport.Transport, config TestServerConfig) *TestServer {
	if config.AuthVal == "" {
		config.AuthVal = "0"
	}
	s := &TestServer{
		tr:       tr,
		keys:     config.Keys,
		password: config.Password,
		authVal:  config.AuthVal,
		handler:  config.Handler,
		requests: make(chan *protocol.Request, 64),
		done:     make(chan struct{}),
	}
	if s.handler == nil {
		s.handler = s.handleRequest
	}
	go s.serve()
	return s
}

// Requests exposes every request the server decoded, in arrival order.
func (s *TestServer) Requests() <-chan *protocol.Request {
	return s.requests
}

// PushConsoleLog sends an unsolicited console-log line to the client.
func (s *TestServer) PushConsoleLog(line string) error {
	return s.send(&protocol.Response{
		ResponseType: protocol.ResponseConsoleLog,
		ResponseMsg:  line,
	})
}

// SendResponse seals and writes an arbitrary response, for stray and
// duplicate correlation scenarios.
func (s *TestServer) SendResponse(resp *protocol.Response) error {
	return s.send(resp)
}

// SendRaw writes raw bytes as one envelope frame, for malformed-frame
// scenarios.
func (s *TestServer) SendRaw(data []byte) error {
	return s.tr.WriteEnvelope(data)
}

// Close tears down the server's end of the connection.
func (s *TestServer) Close() error {
	s.closeOnce.Do(func() {
		s.tr.Close()
	})
	<-s.done
	return nil
}

func (s *TestServer) serve() {
	defer close(s.done)

	for {
		raw, err := s.tr.ReadEnvelope()
		if err != nil {
			return
		}

		env, err := protocol.DecodeEnvelope(raw)
		if err != nil {
			continue
		}
		plaintext, err := s.keys.Open(env)
		if err != nil {
			// Wrong key or tampered frame: no reply, like the real server.
			continue
		}
		req, err := protocol.DecodeRequest(plaintext)
		if err != nil {
			continue
		}

		select {
		case s.requests <- req:
		default:
		}

		for _, resp := range s.handler(req) {
			if err := s.send(resp); err != nil {
				return
			}
		}
	}
}

func (s *TestServer) handleRequest(req *protocol.Request) []*protocol.Response {
	switch req.RequestType {
	case protocol.RequestAuth:
		val := s.authVal
		msg := "Welcome"
		if req.RequestMsg != s.password {
			val = "-1"
			msg = "Bad password"
		}
		return []*protocol.Response{{
			MessageID:    req.MessageID,
			ResponseType: protocol.ResponseAuth,
			ResponseMsg:  msg,
			ResponseVal:  val,
		}}
	case protocol.RequestExecCommand:
		return []*protocol.Response{{
			MessageID:    req.MessageID,
			ResponseType: protocol.ResponseString,
			ResponseMsg:  "executed: " + req.RequestVal,
			ResponseVal:  "1",
		}}
	case protocol.RequestSendConsoleLog:
		return nil
	}
	return nil
}

func (s *TestServer) send(resp *protocol.Response) error {
	env, err := s.keys.Seal(protocol.EncodeResponse(resp))
	if err != nil {
		return err
	}
	return s.tr.WriteEnvelope(env.Encode())
}
