package protocol

import "google.golang.org/protobuf/encoding/protowire"

// Request is a console request sent to the game server.
//
// MessageID is assigned by the sender and must be unique among its
// outstanding requests on the connection; the server echoes it in
// correlated responses.
type Request struct {
	MessageID   uint32
	MessageType uint32
	RequestType RequestType
	RequestMsg  string
	RequestVal  string
}

// Response is a console response received from the game server.
// Correlated responses (Auth, String) echo the request's MessageID;
// console log pushes carry no meaningful MessageID.
type Response struct {
	MessageID    uint32
	MessageType  uint32
	ResponseType ResponseType
	ResponseMsg  string
	ResponseVal  string
}

// Protobuf field numbers for Request and Response.
// These mirror the game server's netcon .proto definition.
const (
	fieldMessageID   = 1
	fieldMessageType = 2
	fieldType        = 3
	fieldMsg         = 4
	fieldVal         = 5
)

// EncodeRequest encodes a request in protobuf wire format.
// Zero-valued fields are omitted, matching proto3 emitters.
func EncodeRequest(req *Request) []byte {
	var b []byte
	b = appendVarintField(b, fieldMessageID, uint64(req.MessageID))
	b = appendVarintField(b, fieldMessageType, uint64(req.MessageType))
	b = appendVarintField(b, fieldType, uint64(req.RequestType))
	b = appendStringField(b, fieldMsg, req.RequestMsg)
	b = appendStringField(b, fieldVal, req.RequestVal)
	return b
}

// DecodeRequest decodes a protobuf-encoded request.
// Returns ErrUnknownMessageType for type codes outside the wire
// contract, and ErrMalformedFrame for structural damage.
func DecodeRequest(data []byte) (*Request, error) {
	req := &Request{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch num {
		case fieldMessageID:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			req.MessageID = uint32(v)
		case fieldMessageType:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			req.MessageType = uint32(v)
		case fieldType:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			req.RequestType = RequestType(v)
		case fieldMsg:
			s, err := fieldString(typ, field)
			if err != nil {
				return err
			}
			req.RequestMsg = s
		case fieldVal:
			s, err := fieldString(typ, field)
			if err != nil {
				return err
			}
			req.RequestVal = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !req.RequestType.IsValid() {
		return nil, ErrUnknownMessageType
	}
	return req, nil
}

// EncodeResponse encodes a response in protobuf wire format.
func EncodeResponse(resp *Response) []byte {
	var b []byte
	b = appendVarintField(b, fieldMessageID, uint64(resp.MessageID))
	b = appendVarintField(b, fieldMessageType, uint64(resp.MessageType))
	b = appendVarintField(b, fieldType, uint64(resp.ResponseType))
	b = appendStringField(b, fieldMsg, resp.ResponseMsg)
	b = appendStringField(b, fieldVal, resp.ResponseVal)
	return b
}

// DecodeResponse decodes a protobuf-encoded response.
func DecodeResponse(data []byte) (*Response, error) {
	resp := &Response{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch num {
		case fieldMessageID:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			resp.MessageID = uint32(v)
		case fieldMessageType:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			resp.MessageType = uint32(v)
		case fieldType:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			resp.ResponseType = ResponseType(v)
		case fieldMsg:
			s, err := fieldString(typ, field)
			if err != nil {
				return err
			}
			resp.ResponseMsg = s
		case fieldVal:
			s, err := fieldString(typ, field)
			if err != nil {
				return err
			}
			resp.ResponseVal = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !resp.ResponseType.IsValid() {
		return nil, ErrUnknownMessageType
	}
	return resp, nil
}

// appendVarintField appends a varint field, omitting zero values.
func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendStringField appends a length-delimited field, omitting empties.
func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// walkFields iterates the top-level fields of a protobuf message,
// passing each field's raw value bytes to fn. Unknown field numbers are
// skipped for forward compatibility; structural damage surfaces as
// ErrMalformedFrame.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, field []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ErrMalformedFrame
		}
		data = data[n:]

		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return ErrMalformedFrame
		}
		if err := fn(num, typ, data[:m]); err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

// fieldVarint extracts a varint value from raw field bytes.
func fieldVarint(typ protowire.Type, field []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, ErrMalformedFrame
	}
	v, n := protowire.ConsumeVarint(field)
	if n < 0 {
		return 0, ErrMalformedFrame
	}
	return v, nil
}

// fieldString extracts a length-delimited value from raw field bytes.
func fieldString(typ protowire.Type, field []byte) (string, error) {
	if typ != protowire.BytesType {
		return "", ErrMalformedFrame
	}
	s, n := protowire.ConsumeString(field)
	if n < 0 {
		return "", ErrMalformedFrame
	}
	return s, nil
}

// fieldBytes extracts length-delimited raw bytes from field bytes.
func fieldBytes(typ protowire.Type, field []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, ErrMalformedFrame
	}
	b, n := protowire.ConsumeBytes(field)
	if n < 0 {
		return nil, ErrMalformedFrame
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
