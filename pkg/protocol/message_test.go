package protocol

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestRequestRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "exec command",
			req: Request{
				MessageID:   7,
				RequestType: RequestExecCommand,
				RequestMsg:  "status",
				RequestVal:  "status",
			},
		},
		{
			name: "auth",
			req: Request{
				MessageID:   1,
				RequestType: RequestAuth,
				RequestMsg:  "hunter2",
			},
		},
		{
			name: "enable console log",
			req: Request{
				MessageID:   2,
				RequestType: RequestSendConsoleLog,
				RequestVal:  "1",
			},
		},
		{
			name: "zero values",
			req:  Request{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := EncodeRequest(&tc.req)
			got, err := DecodeRequest(data)
			if err != nil {
				t.Fatalf("DecodeRequest() error: %v", err)
			}
			if *got != tc.req {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", got, tc.req)
			}
		})
	}
}

func TestResponseRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{
			name: "auth reply",
			resp: Response{
				MessageID:    1,
				ResponseType: ResponseAuth,
				ResponseMsg:  "Welcome",
				ResponseVal:  "1",
			},
		},
		{
			name: "console log push",
			resp: Response{
				ResponseType: ResponseConsoleLog,
				ResponseMsg:  "[Server] map changed to mp_rr_canyonlands\n",
			},
		},
		{
			name: "command output",
			resp: Response{
				MessageID:    42,
				ResponseType: ResponseString,
				ResponseMsg:  "hostname: test server",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := EncodeResponse(&tc.resp)
			got, err := DecodeResponse(data)
			if err != nil {
				t.Fatalf("DecodeResponse() error: %v", err)
			}
			if *got != tc.resp {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", got, tc.resp)
			}
		})
	}
}

func TestDecodeRejectsUnknownTypeCode(t *testing.T) {
	// A request type outside the wire contract must not decode.
	var b []byte
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, 9)

	if _, err := DecodeRequest(b); err != ErrUnknownMessageType {
		t.Errorf("DecodeRequest(type=9) = %v, want ErrUnknownMessageType", err)
	}
	if _, err := DecodeResponse(b); err != ErrUnknownMessageType {
		t.Errorf("DecodeResponse(type=9) = %v, want ErrUnknownMessageType", err)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	// Future servers may add fields; decoding must not break on them.
	b := EncodeResponse(&Response{MessageID: 3, ResponseType: ResponseString, ResponseMsg: "ok"})
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "future extension")

	got, err := DecodeResponse(b)
	if err != nil {
		t.Fatalf("DecodeResponse() error: %v", err)
	}
	if got.MessageID != 3 || got.ResponseMsg != "ok" {
		t.Errorf("known fields lost: %+v", got)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	data := EncodeRequest(&Request{MessageID: 900, RequestType: RequestAuth, RequestMsg: "password"})

	// Every strict prefix that cuts into a field must fail cleanly.
	for i := 1; i < len(data); i++ {
		if _, err := DecodeRequest(data[:i]); err == nil {
			// Some prefixes happen to end on a field boundary and
			// decode to a partial (still well-formed) message.
			continue
		} else if err != ErrMalformedFrame && err != ErrUnknownMessageType {
			t.Fatalf("DecodeRequest(prefix %d) unexpected error: %v", i, err)
		}
	}
}

func TestTypeCodesAreStable(t *testing.T) {
	// The game server's wire contract. These never change.
	if RequestExecCommand != 0 || RequestAuth != 1 || RequestSendConsoleLog != 2 {
		t.Fatal("request type codes drifted from the wire contract")
	}
	if ResponseAuth != 0 || ResponseConsoleLog != 1 || ResponseString != 2 {
		t.Fatal("response type codes drifted from the wire contract")
	}
}

func TestResponseTypeCorrelation(t *testing.T) {
	if !ResponseAuth.IsCorrelated() || !ResponseString.IsCorrelated() {
		t.Error("auth and string responses must be correlated")
	}
	if ResponseConsoleLog.IsCorrelated() {
		t.Error("console log pushes must not be correlated")
	}
}
