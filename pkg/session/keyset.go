package session

import (
	"sync"

	"github.com/sleep1223/r5-server-bot/pkg/crypto"
	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

// KeySet is an ordered collection of candidate pre-shared keys.
// Multiple keys support rotation and multi-tenant configurations:
// decryption tries keys in order and commits to the first one whose
// authentication tag verifies. Once committed, other keys are never
// retried for the life of the session, preventing key confusion.
//
// A KeySet is safe for concurrent use. The key list itself is immutable
// after construction; only the committed/preferred indices change.
type KeySet struct {
	keys           []*crypto.Key
	allowPlaintext bool

	mu        sync.RWMutex
	committed int // index of the committed key, -1 before commit
	preferred int // index Seal uses before a key is committed
}

// KeySetOption configures a KeySet.
type KeySetOption func(*KeySet)

// AllowPlaintext permits envelopes with the encrypted flag unset.
// Only for transports that are trusted end to end; the default is
// encryption-required.
func AllowPlaintext() KeySetOption {
	return func(ks *KeySet) {
		ks.allowPlaintext = true
	}
}

// NewKeySet creates a key set from an ordered list of candidate keys.
// At least one key is required unless plaintext is allowed.
func NewKeySet(keys []*crypto.Key, opts ...KeySetOption) (*KeySet, error) {
	ks := &KeySet{
		keys:      keys,
		committed: -1,
	}
	for _, opt := range opts {
		opt(ks)
	}
	if len(ks.keys) == 0 && !ks.allowPlaintext {
		return nil, ErrNoKeys
	}
	return ks, nil
}

// Len returns the number of candidate keys.
func (ks *KeySet) Len() int {
	return len(ks.keys)
}

// Committed returns true once a key has been committed.
func (ks *KeySet) Committed() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.committed >= 0
}

// SetPreferred selects which candidate key Seal uses before commit.
// The authentication handshake walks the set with this while probing
// for the key the server accepts.
func (ks *KeySet) SetPreferred(i int) {
	if i < 0 || i >= len(ks.keys) {
		return
	}
	ks.mu.Lock()
	ks.preferred = i
	ks.mu.Unlock()
}

// sealKey returns the key outbound frames are sealed under:
// the committed key if any, otherwise the preferred candidate.
func (ks *KeySet) sealKey() *crypto.Key {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if ks.committed >= 0 {
		return ks.keys[ks.committed]
	}
	if len(ks.keys) == 0 {
		return nil
	}
	return ks.keys[ks.preferred]
}

// Seal encrypts an encoded message into an envelope. With no keys
// configured (plaintext mode), the envelope travels in the clear.
func (ks *KeySet) Seal(plaintext []byte) (*protocol.Envelope, error) {
	key := ks.sealKey()
	if key == nil {
		if ks.allowPlaintext {
			return protocol.SealPlaintext(plaintext), nil
		}
		return nil, ErrNoKeys
	}
	return protocol.Seal(plaintext, key)
}

// Open decrypts an envelope. For encrypted envelopes it tries the
// committed key only (if committed), otherwise each candidate in order,
// committing to the first key that verifies. Plaintext envelopes pass
// through only when the set allows plaintext.
func (ks *KeySet) Open(env *protocol.Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	if !env.Encrypted {
		if !ks.allowPlaintext {
			return nil, ErrEncryptionRequired
		}
		return env.Data, nil
	}

	ks.mu.RLock()
	committed := ks.committed
	ks.mu.RUnlock()

	if committed >= 0 {
		plaintext, err := ks.keys[committed].Open(env.Nonce, env.Data)
		if err != nil {
			return nil, ErrDecryptionFailed
		}
		return plaintext, nil
	}

	for i, key := range ks.keys {
		plaintext, err := key.Open(env.Nonce, env.Data)
		if err != nil {
			continue
		}
		ks.mu.Lock()
		if ks.committed < 0 {
			ks.committed = i
		}
		ks.mu.Unlock()
		return plaintext, nil
	}
	return nil, ErrDecryptionFailed
}
