package session

import (
	"bytes"
	"testing"

	"github.com/sleep1223/r5-server-bot/pkg/crypto"
	"github.com/sleep1223/r5-server-bot/pkg/protocol"
)

func makeKey(t *testing.T, seed byte) *crypto.Key {
	t.Helper()
	material := make([]byte, 32)
	for i := range material {
		material[i] = seed + byte(i)
	}
	k, err := crypto.NewKey(crypto.SuiteAESGCM, material)
	if err != nil {
		t.Fatalf("NewKey() error: %v", err)
	}
	return k
}

func TestKeySetSealOpenRoundtrip(t *testing.T) {
	ks, err := NewKeySet([]*crypto.Key{makeKey(t, 1)})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}

	env, err := ks.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if !env.Encrypted {
		t.Fatal("Seal() produced plaintext envelope with a key configured")
	}

	got, err := ks.Open(env)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("roundtrip mismatch: %q", got)
	}
}

func TestKeySetTriesKeysInOrderAndCommits(t *testing.T) {
	wrong := makeKey(t, 10)
	right := makeKey(t, 20)

	// Receiver configured with the wrong key first: the right key must
	// still win, and win deterministically (ordered trial, not a set).
	ks, err := NewKeySet([]*crypto.Key{wrong, right})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}

	env, err := protocol.Seal([]byte("hello"), right)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if ks.Committed() {
		t.Fatal("key set committed before any traffic")
	}
	got, err := ks.Open(env)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Open() = %q", got)
	}
	if !ks.Committed() {
		t.Fatal("key set did not commit after first verified frame")
	}

	// After commit, frames under the other key must now fail: keys are
	// not retried once committed.
	envWrong, err := protocol.Seal([]byte("sneaky"), wrong)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if _, err := ks.Open(envWrong); err != ErrDecryptionFailed {
		t.Errorf("Open(other key after commit) = %v, want ErrDecryptionFailed", err)
	}

	// Outbound seals use the committed key.
	out, err := ks.Seal([]byte("reply"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	single, err := NewKeySet([]*crypto.Key{right})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}
	if _, err := single.Open(out); err != nil {
		t.Errorf("committed-key seal not readable by right key: %v", err)
	}
}

func TestKeySetNoKeyVerifies(t *testing.T) {
	ks, err := NewKeySet([]*crypto.Key{makeKey(t, 1), makeKey(t, 2)})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}

	env, err := protocol.Seal([]byte("data"), makeKey(t, 99))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if _, err := ks.Open(env); err != ErrDecryptionFailed {
		t.Errorf("Open() = %v, want ErrDecryptionFailed", err)
	}
	if ks.Committed() {
		t.Error("key set committed despite verification failure")
	}
}

func TestKeySetPlaintextPolicy(t *testing.T) {
	env := protocol.SealPlaintext([]byte("clear"))

	strict, err := NewKeySet([]*crypto.Key{makeKey(t, 1)})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}
	if _, err := strict.Open(env); err != ErrEncryptionRequired {
		t.Errorf("strict Open(plaintext) = %v, want ErrEncryptionRequired", err)
	}

	relaxed, err := NewKeySet([]*crypto.Key{makeKey(t, 1)}, AllowPlaintext())
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}
	got, err := relaxed.Open(env)
	if err != nil {
		t.Fatalf("relaxed Open(plaintext) error: %v", err)
	}
	if string(got) != "clear" {
		t.Errorf("Open() = %q", got)
	}
}

func TestKeySetRequiresKeysUnlessPlaintext(t *testing.T) {
	if _, err := NewKeySet(nil); err != ErrNoKeys {
		t.Errorf("NewKeySet(nil) = %v, want ErrNoKeys", err)
	}

	ks, err := NewKeySet(nil, AllowPlaintext())
	if err != nil {
		t.Fatalf("NewKeySet(nil, AllowPlaintext) error: %v", err)
	}
	env, err := ks.Seal([]byte("open"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if env.Encrypted {
		t.Error("keyless Seal() produced an encrypted envelope")
	}
}

func TestKeySetPreferredControlsOutbound(t *testing.T) {
	k0 := makeKey(t, 1)
	k1 := makeKey(t, 2)
	ks, err := NewKeySet([]*crypto.Key{k0, k1})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}

	ks.SetPreferred(1)
	env, err := ks.Seal([]byte("probe"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if _, err := k1.Open(env.Nonce, env.Data); err != nil {
		t.Errorf("preferred key 1 did not seal the frame: %v", err)
	}

	// Out-of-range preference is ignored.
	ks.SetPreferred(7)
	env2, err := ks.Seal([]byte("probe2"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if _, err := k1.Open(env2.Nonce, env2.Data); err != nil {
		t.Errorf("out-of-range SetPreferred changed the seal key: %v", err)
	}
}

func TestKeySetOpenRejectsMalformed(t *testing.T) {
	ks, err := NewKeySet([]*crypto.Key{makeKey(t, 3)})
	if err != nil {
		t.Fatalf("NewKeySet() error: %v", err)
	}

	bad := &protocol.Envelope{Encrypted: true, Data: []byte("no nonce")}
	if _, err := ks.Open(bad); err != protocol.ErrMalformedFrame {
		t.Errorf("Open(missing nonce) = %v, want ErrMalformedFrame", err)
	}
}
