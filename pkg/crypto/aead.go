// AEAD envelope encryption for the netcon protocol.
// Frames are sealed with a fresh random nonce per message so that a
// tampered nonce or ciphertext fails authentication instead of
// decrypting to garbage.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Suite identifies the AEAD construction used to seal envelopes.
type Suite uint8

const (
	// SuiteAESGCM is AES-GCM with a 12-byte nonce. The default suite;
	// accepts 128-, 192- or 256-bit keys.
	SuiteAESGCM Suite = iota

	// SuiteChaCha20Poly1305 is ChaCha20-Poly1305 with a 12-byte nonce.
	// Requires a 256-bit key.
	SuiteChaCha20Poly1305
)

// String returns a human-readable name for the suite.
func (s Suite) String() string {
	switch s {
	case SuiteAESGCM:
		return "AES-GCM"
	case SuiteChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the suite is a defined value.
func (s Suite) IsValid() bool {
	return s == SuiteAESGCM || s == SuiteChaCha20Poly1305
}

// Errors for AEAD operations.
var (
	ErrInvalidKeySize = errors.New("crypto: invalid key size")
	ErrInvalidSuite   = errors.New("crypto: unknown AEAD suite")
	ErrOpenFailed     = errors.New("crypto: authentication failed")
	ErrShortNonce     = errors.New("crypto: nonce has wrong length")
)

// Key is a pre-shared symmetric key bound to an AEAD suite.
// A Key is immutable after construction and safe for concurrent use.
type Key struct {
	suite Suite
	aead  cipher.AEAD
}

// NewKey creates a key for the given suite from raw key material.
func NewKey(suite Suite, material []byte) (*Key, error) {
	switch suite {
	case SuiteAESGCM:
		switch len(material) {
		case 16, 24, 32:
		default:
			return nil, ErrInvalidKeySize
		}
		block, err := aes.NewCipher(material)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return &Key{suite: suite, aead: aead}, nil

	case SuiteChaCha20Poly1305:
		if len(material) != chacha20poly1305.KeySize {
			return nil, ErrInvalidKeySize
		}
		aead, err := chacha20poly1305.New(material)
		if err != nil {
			return nil, err
		}
		return &Key{suite: suite, aead: aead}, nil

	default:
		return nil, ErrInvalidSuite
	}
}

// Suite returns the AEAD suite this key uses.
func (k *Key) Suite() Suite {
	return k.suite
}

// NonceSize returns the nonce length required by this key's suite.
func (k *Key) NonceSize() int {
	return k.aead.NonceSize()
}

// Seal encrypts plaintext under a fresh random nonce.
// It returns the nonce and the ciphertext (which includes the
// authentication tag) separately, matching the envelope layout.
func (k *Key) Seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = k.aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Open decrypts and authenticates ciphertext.
// Returns ErrOpenFailed if the tag does not verify under this key.
func (k *Key) Open(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != k.aead.NonceSize() {
		return nil, ErrShortNonce
	}
	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
