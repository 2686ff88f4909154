package protocol

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/sleep1223/r5-server-bot/pkg/crypto"
)

// Envelope is the outer transport frame. Data holds either an encoded
// message in the clear (Encrypted false) or its AEAD ciphertext
// (Encrypted true, Nonce set). A nonce is never reused under a key;
// Seal draws a fresh one per frame.
type Envelope struct {
	Encrypted bool
	Nonce     []byte
	Data      []byte
}

// Protobuf field numbers for Envelope, mirroring the game server's
// netcon .proto definition.
const (
	fieldEncrypted = 1
	fieldNonce     = 2
	fieldData      = 3
)

// Seal wraps an encoded message into an encrypted envelope under key.
func Seal(plaintext []byte, key *crypto.Key) (*Envelope, error) {
	nonce, ciphertext, err := key.Seal(plaintext)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Encrypted: true,
		Nonce:     nonce,
		Data:      ciphertext,
	}, nil
}

// SealPlaintext wraps an encoded message without encryption.
// Only for transports that are trusted end to end; the receiving side
// rejects plaintext envelopes unless explicitly configured to allow them.
func SealPlaintext(plaintext []byte) *Envelope {
	return &Envelope{
		Encrypted: false,
		Data:      plaintext,
	}
}

// Validate checks the envelope's structural invariants.
func (e *Envelope) Validate() error {
	if len(e.Data) == 0 {
		return ErrMalformedFrame
	}
	if e.Encrypted && len(e.Nonce) == 0 {
		return ErrMalformedFrame
	}
	return nil
}

// Encode encodes the envelope in protobuf wire format.
func (e *Envelope) Encode() []byte {
	var b []byte
	if e.Encrypted {
		b = protowire.AppendTag(b, fieldEncrypted, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if len(e.Nonce) > 0 {
		b = protowire.AppendTag(b, fieldNonce, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Nonce)
	}
	if len(e.Data) > 0 {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Data)
	}
	return b
}

// DecodeEnvelope decodes and structurally validates an envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch num {
		case fieldEncrypted:
			v, err := fieldVarint(typ, field)
			if err != nil {
				return err
			}
			env.Encrypted = v != 0
		case fieldNonce:
			b, err := fieldBytes(typ, field)
			if err != nil {
				return err
			}
			env.Nonce = b
		case fieldData:
			b, err := fieldBytes(typ, field)
			if err != nil {
				return err
			}
			env.Data = b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}
