// Package wrap protects per-message key material for each recipient
// individually: an ephemeral X25519 agreement against the recipient's
// public key yields a wrapping key, and the key material is sealed under
// it. Only the holder of the matching private key can unwrap.
package wrap

import (
	"errors"
	"fmt"

	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/util"
)

var (
	// ErrEmptyRecipientSet indicates a wrap was requested for no one.
	ErrEmptyRecipientSet = errors.New("empty recipient set")
	// ErrDecryptionDenied indicates a wrapped key could not be recovered.
	// Every unwrap failure maps here so a caller cannot distinguish a
	// wrong key from tampered data.
	ErrDecryptionDenied = errors.New("decryption denied")
)

// wrapKeyInfo labels the HKDF derivation of key-wrapping keys, keeping
// them disjoint from content keys.
const wrapKeyInfo = "voxseal:key-wrap:v1"

const wrapVersion = 1

// wrapSaltLen is the size of the per-wrap HKDF salt.
const wrapSaltLen = 32

// WrappedKey is one recipient's sealed copy of a message's key material.
// EphemeralPublicKey is the sender's one-time X25519 public key for this
// wrap; it is not the sender's identity key.
type WrappedKey struct {
	Ver                int    `json:"ver"`
	EphemeralPublicKey []byte `json:"ephemeralPublicKey"`
	Salt               []byte `json:"salt"`
	Nonce              []byte `json:"nonce"`
	Ciphertext         []byte `json:"ciphertext"`
}

// Clone returns a deep copy.
func (w *WrappedKey) Clone() *WrappedKey {
	if w == nil {
		return nil
	}
	return &WrappedKey{
		Ver:                w.Ver,
		EphemeralPublicKey: util.CopyBytes(w.EphemeralPublicKey),
		Salt:               util.CopyBytes(w.Salt),
		Nonce:              util.CopyBytes(w.Nonce),
		Ciphertext:         util.CopyBytes(w.Ciphertext),
	}
}

// RecipientKeySet maps recipient user IDs to their X25519 public keys.
type RecipientKeySet map[string][32]byte

// AADFunc supplies the additional authenticated data to bind into the
// wrap for a given recipient, typically tying it to an envelope and
// sender.
type AADFunc func(recipientID string) []byte

// Wrapper wraps and unwraps per-message key material. Construct with New.
type Wrapper struct {
	provider crypto.Provider
}

// Option customizes a Wrapper.
type Option func(*Wrapper)

// WithProvider substitutes the cryptographic provider.
func WithProvider(p crypto.Provider) Option {
	return func(w *Wrapper) {
		w.provider = p
	}
}

// New creates a Wrapper backed by the standard provider unless overridden.
func New(opts ...Option) *Wrapper {
	w := &Wrapper{provider: crypto.Standard()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WrapForRecipients wraps keyMaterial once per recipient, each under an
// independent ephemeral key. aadFor may be nil when no context binding is
// wanted. Fails atomically: if any single wrap fails, no partial result
// is returned.
func (w *Wrapper) WrapForRecipients(keyMaterial []byte, recipients RecipientKeySet, aadFor AADFunc) (map[string]*WrappedKey, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyRecipientSet
	}

	wrapped := make(map[string]*WrappedKey, len(recipients))
	for recipientID, pub := range recipients {
		var aad []byte
		if aadFor != nil {
			aad = aadFor(recipientID)
		}
		wk, err := w.Wrap(keyMaterial, pub, aad)
		if err != nil {
			return nil, fmt.Errorf("wrapping key for %q: %w", recipientID, err)
		}
		wrapped[recipientID] = wk
	}
	return wrapped, nil
}

// Wrap seals keyMaterial to a single recipient public key under a fresh
// ephemeral X25519 agreement.
func (w *Wrapper) Wrap(keyMaterial []byte, recipientPub [32]byte, aad []byte) (*WrappedKey, error) {
	eph, err := w.provider.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key pair: %w", err)
	}
	defer util.WipeArray32(&eph.Private)

	shared, err := w.provider.SharedSecret(eph.Private, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("computing shared secret: %w", err)
	}
	defer util.WipeArray32(&shared)

	salt, err := w.provider.RandomBytes(wrapSaltLen)
	if err != nil {
		return nil, fmt.Errorf("generating wrap salt: %w", err)
	}

	wrapKey, err := w.provider.DeriveKey(shared[:], salt, []byte(wrapKeyInfo))
	if err != nil {
		return nil, fmt.Errorf("deriving wrap key: %w", err)
	}
	defer util.WipeBytes(wrapKey)

	nonce, ciphertext, err := w.provider.Seal(wrapKey, keyMaterial, aad)
	if err != nil {
		return nil, fmt.Errorf("sealing key material: %w", err)
	}

	return &WrappedKey{
		Ver:                wrapVersion,
		EphemeralPublicKey: eph.Public[:],
		Salt:               salt,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
	}, nil
}

// UnwrapForSelf recovers key material from a WrappedKey using the holder's
// private key. All failures, whatever their cause, return exactly
// ErrDecryptionDenied. The caller must wipe the returned material after
// use.
func (w *Wrapper) UnwrapForSelf(wk *WrappedKey, priv [32]byte, aad []byte) ([]byte, error) {
	if wk == nil || wk.Ver != wrapVersion || len(wk.EphemeralPublicKey) != 32 {
		return nil, ErrDecryptionDenied
	}

	var ephPub [32]byte
	copy(ephPub[:], wk.EphemeralPublicKey)

	shared, err := w.provider.SharedSecret(priv, ephPub)
	if err != nil {
		return nil, ErrDecryptionDenied
	}
	defer util.WipeArray32(&shared)

	wrapKey, err := w.provider.DeriveKey(shared[:], wk.Salt, []byte(wrapKeyInfo))
	if err != nil {
		return nil, ErrDecryptionDenied
	}
	defer util.WipeBytes(wrapKey)

	keyMaterial, err := w.provider.Open(wrapKey, wk.Nonce, wk.Ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionDenied
	}
	return keyMaterial, nil
}
