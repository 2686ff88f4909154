// Package protocol implements the netcon wire schema: the request and
// response messages exchanged with a dedicated game server's remote
// console, the encryption envelope around them, and the byte-stream
// framing.
//
// The integer type codes below are a foreign wire contract shared with
// the game server's console implementation. They are not free to
// renumber, and codes outside the contract are rejected at decode time
// rather than defaulted.
package protocol

// RequestType identifies what a console request asks the server to do.
type RequestType uint32

const (
	// RequestExecCommand executes a console command on the server.
	RequestExecCommand RequestType = 0

	// RequestAuth authenticates the connection with the RCON password.
	RequestAuth RequestType = 1

	// RequestSendConsoleLog toggles streaming of the server's console
	// log to this connection.
	RequestSendConsoleLog RequestType = 2
)

// String returns a human-readable name for the request type.
func (t RequestType) String() string {
	switch t {
	case RequestExecCommand:
		return "ExecCommand"
	case RequestAuth:
		return "Auth"
	case RequestSendConsoleLog:
		return "SendConsoleLog"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the request type is part of the wire contract.
func (t RequestType) IsValid() bool {
	return t <= RequestSendConsoleLog
}

// ResponseType identifies what a console response carries.
type ResponseType uint32

const (
	// ResponseAuth is the reply to an auth request. Correlated: its
	// messageId echoes the originating request.
	ResponseAuth ResponseType = 0

	// ResponseConsoleLog is an unsolicited console log line pushed by
	// the server. Its messageId carries no correlation meaning.
	ResponseConsoleLog ResponseType = 1

	// ResponseString is correlated command output for an exec request.
	ResponseString ResponseType = 2
)

// String returns a human-readable name for the response type.
func (t ResponseType) String() string {
	switch t {
	case ResponseAuth:
		return "Auth"
	case ResponseConsoleLog:
		return "ConsoleLog"
	case ResponseString:
		return "String"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the response type is part of the wire contract.
func (t ResponseType) IsValid() bool {
	return t <= ResponseString
}

// IsCorrelated returns true if responses of this type echo the
// originating request's messageId and belong to the dispatcher.
// Console log pushes go to the fan-out instead.
func (t ResponseType) IsCorrelated() bool {
	return t == ResponseAuth || t == ResponseString
}
