package wrap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/util"
)

func mustKeyPair(t *testing.T) util.KeyPair {
	t.Helper()
	kp, err := util.GenerateX25519Keypair()
	if err != nil {
		t.Fatal(err)
	}
	return kp
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	w := New()
	recipient := mustKeyPair(t)
	keyMaterial := bytes.Repeat([]byte{0x42}, crypto.KeyMaterialSize)
	aad := []byte("envelope-1|alice|bob")

	wk, err := w.Wrap(keyMaterial, recipient.Public, aad)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if bytes.Contains(wk.Ciphertext, keyMaterial) {
		t.Fatal("wrapped key leaks key material")
	}

	got, err := w.UnwrapForSelf(wk, recipient.Private, aad)
	if err != nil {
		t.Fatalf("UnwrapForSelf: %v", err)
	}
	if !bytes.Equal(got, keyMaterial) {
		t.Fatal("round trip mismatch")
	}
}

func TestWrapForRecipients(t *testing.T) {
	w := New()
	alice := mustKeyPair(t)
	bob := mustKeyPair(t)
	carol := mustKeyPair(t)

	keyMaterial := bytes.Repeat([]byte{0x07}, crypto.KeyMaterialSize)
	recipients := RecipientKeySet{
		"alice": alice.Public,
		"bob":   bob.Public,
		"carol": carol.Public,
	}
	aadFor := func(recipientID string) []byte {
		return []byte("envelope-9|" + recipientID)
	}

	wrapped, err := w.WrapForRecipients(keyMaterial, recipients, aadFor)
	if err != nil {
		t.Fatalf("WrapForRecipients: %v", err)
	}
	if len(wrapped) != 3 {
		t.Fatalf("got %d wrapped keys, want 3", len(wrapped))
	}

	// Each recipient unwraps their own copy and no one else's.
	privs := map[string][32]byte{"alice": alice.Private, "bob": bob.Private, "carol": carol.Private}
	for id, priv := range privs {
		got, err := w.UnwrapForSelf(wrapped[id], priv, aadFor(id))
		if err != nil {
			t.Fatalf("%s unwrap: %v", id, err)
		}
		if !bytes.Equal(got, keyMaterial) {
			t.Fatalf("%s recovered wrong key material", id)
		}
	}
	if _, err := w.UnwrapForSelf(wrapped["bob"], alice.Private, aadFor("bob")); !errors.Is(err, ErrDecryptionDenied) {
		t.Fatalf("cross-recipient unwrap err = %v, want ErrDecryptionDenied", err)
	}

	// Independent ephemerals per recipient.
	if bytes.Equal(wrapped["alice"].EphemeralPublicKey, wrapped["bob"].EphemeralPublicKey) {
		t.Fatal("ephemeral key reused across recipients")
	}
}

func TestWrapForRecipients_Empty(t *testing.T) {
	w := New()
	if _, err := w.WrapForRecipients([]byte("km"), nil, nil); !errors.Is(err, ErrEmptyRecipientSet) {
		t.Fatalf("err = %v, want ErrEmptyRecipientSet", err)
	}
	if _, err := w.WrapForRecipients([]byte("km"), RecipientKeySet{}, nil); !errors.Is(err, ErrEmptyRecipientSet) {
		t.Fatalf("err = %v, want ErrEmptyRecipientSet", err)
	}
}

func TestUnwrapForSelf_UniformDenial(t *testing.T) {
	w := New()
	recipient := mustKeyPair(t)
	other := mustKeyPair(t)
	keyMaterial := bytes.Repeat([]byte{0x11}, crypto.KeyMaterialSize)
	aad := []byte("envelope-3|alice|bob")

	wk, err := w.Wrap(keyMaterial, recipient.Public, aad)
	if err != nil {
		t.Fatal(err)
	}

	flip := func(b []byte) []byte {
		out := make([]byte, len(b))
		copy(out, b)
		out[0] ^= 0x01
		return out
	}

	cases := []struct {
		name string
		wk   *WrappedKey
		priv [32]byte
		aad  []byte
	}{
		{"WrongPrivateKey", wk, other.Private, aad},
		{"WrongAAD", wk, recipient.Private, []byte("something else")},
		{"TamperedCiphertext", &WrappedKey{Ver: wk.Ver, EphemeralPublicKey: wk.EphemeralPublicKey, Salt: wk.Salt, Nonce: wk.Nonce, Ciphertext: flip(wk.Ciphertext)}, recipient.Private, aad},
		{"TamperedNonce", &WrappedKey{Ver: wk.Ver, EphemeralPublicKey: wk.EphemeralPublicKey, Salt: wk.Salt, Nonce: flip(wk.Nonce), Ciphertext: wk.Ciphertext}, recipient.Private, aad},
		{"TamperedSalt", &WrappedKey{Ver: wk.Ver, EphemeralPublicKey: wk.EphemeralPublicKey, Salt: flip(wk.Salt), Nonce: wk.Nonce, Ciphertext: wk.Ciphertext}, recipient.Private, aad},
		{"TamperedEphemeral", &WrappedKey{Ver: wk.Ver, EphemeralPublicKey: flip(wk.EphemeralPublicKey), Salt: wk.Salt, Nonce: wk.Nonce, Ciphertext: wk.Ciphertext}, recipient.Private, aad},
		{"BadVersion", &WrappedKey{Ver: 9, EphemeralPublicKey: wk.EphemeralPublicKey, Salt: wk.Salt, Nonce: wk.Nonce, Ciphertext: wk.Ciphertext}, recipient.Private, aad},
		{"ShortEphemeral", &WrappedKey{Ver: wk.Ver, EphemeralPublicKey: wk.EphemeralPublicKey[:16], Salt: wk.Salt, Nonce: wk.Nonce, Ciphertext: wk.Ciphertext}, recipient.Private, aad},
		{"Nil", nil, recipient.Private, aad},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := w.UnwrapForSelf(tc.wk, tc.priv, tc.aad)
			// Every failure is the same bare sentinel; callers learn nothing
			// about which check tripped.
			if err != ErrDecryptionDenied {
				t.Fatalf("err = %v, want exactly ErrDecryptionDenied", err)
			}
			if got != nil {
				t.Fatal("key material returned on failure")
			}
		})
	}
}

func TestWrappedKeyClone(t *testing.T) {
	w := New()
	recipient := mustKeyPair(t)
	wk, err := w.Wrap(bytes.Repeat([]byte{0x01}, crypto.KeyMaterialSize), recipient.Public, nil)
	if err != nil {
		t.Fatal(err)
	}

	clone := wk.Clone()
	clone.Ciphertext[0] ^= 0xFF
	if wk.Ciphertext[0] == clone.Ciphertext[0] {
		t.Fatal("clone shares backing storage with original")
	}

	var nilWK *WrappedKey
	if nilWK.Clone() != nil {
		t.Fatal("clone of nil should be nil")
	}
}
