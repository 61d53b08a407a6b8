// Package crypto exposes the cryptographic capability surface used by the
// rest of the module. All primitives are reached through the Provider
// interface so tests can substitute a deterministic implementation and
// alternative platforms can supply their own.
package crypto

import (
	"fmt"

	"github.com/jmcleod/voxseal/internal/util"
)

// KeyPair holds an X25519 public/private key pair.
type KeyPair = util.KeyPair

// Argon2idParams configures Argon2id key derivation.
type Argon2idParams = util.Argon2idParams

// KeyMaterialSize is the size in bytes of per-message symmetric key material.
const KeyMaterialSize = util.AESKeySize

// Provider is the set of cryptographic operations the engine depends on:
// secure randomness, AEAD seal/open, content digests, identity key pairs,
// ECDH agreement, and HKDF key derivation.
type Provider interface {
	// RandomBytes returns n bytes from a cryptographically secure source.
	RandomBytes(n int) ([]byte, error)

	// NewKeyMaterial returns fresh random symmetric key material,
	// KeyMaterialSize bytes long.
	NewKeyMaterial() ([]byte, error)

	// Seal encrypts plainText under key with an AEAD, binding aad. The
	// nonce is fresh per call and returned separately from the ciphertext.
	Seal(key, plainText, aad []byte) (nonce, cipherText []byte, err error)

	// Open reverses Seal, failing if the authentication tag does not verify.
	Open(key, nonce, cipherText, aad []byte) ([]byte, error)

	// Digest computes a collision-resistant content digest.
	Digest(data []byte) []byte

	// GenerateKeyPair creates a new asymmetric identity key pair.
	GenerateKeyPair() (KeyPair, error)

	// SharedSecret performs ECDH between a private and a public key.
	SharedSecret(priv, pub [32]byte) ([32]byte, error)

	// DeriveKey derives a 32-byte key from secret, salt, and info via HKDF.
	DeriveKey(secret, salt, info []byte) ([]byte, error)
}

// standard implements Provider with AES-256-GCM, SHA-256, X25519, and
// HKDF-SHA256 from the platform crypto libraries.
type standard struct{}

var standardProvider Provider = standard{}

// Standard returns the default production Provider.
func Standard() Provider {
	return standardProvider
}

func (standard) RandomBytes(n int) ([]byte, error) {
	return util.RandomBytes(n)
}

func (standard) NewKeyMaterial() ([]byte, error) {
	return util.NewAESKey()
}

func (standard) Seal(key, plainText, aad []byte) ([]byte, []byte, error) {
	return util.SealAES(key, plainText, aad)
}

func (standard) Open(key, nonce, cipherText, aad []byte) ([]byte, error) {
	return util.OpenAES(key, nonce, cipherText, aad)
}

func (standard) Digest(data []byte) []byte {
	return util.DigestSHA256(data)
}

func (standard) GenerateKeyPair() (KeyPair, error) {
	kp, err := util.GenerateX25519Keypair()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generating identity key pair: %w", err)
	}
	return kp, nil
}

func (standard) SharedSecret(priv, pub [32]byte) ([32]byte, error) {
	return util.SharedSecret(priv, pub)
}

func (standard) DeriveKey(secret, salt, info []byte) ([]byte, error) {
	return util.HKDF(secret, salt, info)
}
