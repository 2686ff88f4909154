package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Key material helpers. Operators configure netcon keys as base64
// strings (the same format the game server's config uses); passphrase
// derivation is provided for deployments that prefer human-memorable
// secrets.

const (
	// DerivedKeySize is the key length produced by DeriveKey (AES-256).
	DerivedKeySize = 32

	// DeriveIterations is the PBKDF2 iteration count for DeriveKey.
	DeriveIterations = 100000
)

// ErrEmptyKey is returned when key material decodes to nothing.
var ErrEmptyKey = errors.New("crypto: empty key material")

// ParseKey decodes a base64-encoded pre-shared key into an AES-GCM key.
// Standard and raw (unpadded) encodings are both accepted.
func ParseKey(encoded string) (*Key, error) {
	material, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		material, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid base64 key: %w", err)
	}
	if len(material) == 0 {
		return nil, ErrEmptyKey
	}
	return NewKey(SuiteAESGCM, material)
}

// ParseKeys decodes an ordered list of base64 keys, preserving order.
// Order matters: decryption tries keys first to last.
func ParseKeys(encoded []string) ([]*Key, error) {
	keys := make([]*Key, 0, len(encoded))
	for i, e := range encoded {
		k, err := ParseKey(e)
		if err != nil {
			return nil, fmt.Errorf("crypto: key %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// DeriveKey derives a 256-bit AES-GCM key from a passphrase using
// PBKDF2-SHA256. The salt should be unique per deployment.
func DeriveKey(passphrase, salt string) (*Key, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	material := pbkdf2.Key([]byte(passphrase), []byte(salt), DeriveIterations, DerivedKeySize, sha256.New)
	return NewKey(SuiteAESGCM, material)
}
