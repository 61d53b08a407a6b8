// Package cipher performs the symmetric half of message protection: each
// message is encrypted under fresh one-time key material with AES-256-GCM,
// and a plaintext digest travels alongside so callers can detect
// corruption that slips past transport checks.
package cipher

import (
	"errors"
	"fmt"

	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/util"
)

var (
	// ErrAuthenticationFailed indicates the ciphertext, IV, key, or bound
	// context did not verify. Nothing about the failure cause is exposed.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrIntegrityViolation indicates the ciphertext authenticated but the
	// recovered plaintext does not match the recorded digest.
	ErrIntegrityViolation = errors.New("integrity violation")
)

// contentKeyInfo labels the HKDF derivation of per-message content keys,
// keeping them disjoint from keys derived for any other purpose.
const contentKeyInfo = "voxseal:content:v1"

// saltLen is the size of the per-message content-key derivation salt.
const saltLen = 32

// Sealed is the output of one content encryption: everything the envelope
// needs, plus the one-time key material that must still be wrapped per
// recipient. KeyMaterial is the caller's to wipe once wrapping is done.
type Sealed struct {
	Ciphertext  []byte
	KeyMaterial []byte
	IV          []byte
	Salt        []byte
	Digest      []byte
}

// Cipher encrypts and decrypts message content. The zero value is not
// usable; construct with New.
type Cipher struct {
	provider crypto.Provider
}

// Option customizes a Cipher.
type Option func(*Cipher)

// WithProvider substitutes the cryptographic provider.
func WithProvider(p crypto.Provider) Option {
	return func(c *Cipher) {
		c.provider = p
	}
}

// New creates a Cipher backed by the standard provider unless overridden.
func New(opts ...Option) *Cipher {
	c := &Cipher{provider: crypto.Standard()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncryptContent encrypts plaintext under fresh key material, binding aad
// into the authentication tag. Key material, IV, and salt are generated
// anew on every call and never reused across messages.
func (c *Cipher) EncryptContent(plaintext, aad []byte) (*Sealed, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext must not be empty")
	}

	keyMaterial, err := c.provider.NewKeyMaterial()
	if err != nil {
		return nil, fmt.Errorf("generating key material: %w", err)
	}
	salt, err := c.provider.RandomBytes(saltLen)
	if err != nil {
		util.WipeBytes(keyMaterial)
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	contentKey, err := c.provider.DeriveKey(keyMaterial, salt, []byte(contentKeyInfo))
	if err != nil {
		util.WipeBytes(keyMaterial)
		return nil, fmt.Errorf("deriving content key: %w", err)
	}
	defer util.WipeBytes(contentKey)

	iv, ciphertext, err := c.provider.Seal(contentKey, plaintext, aad)
	if err != nil {
		util.WipeBytes(keyMaterial)
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	return &Sealed{
		Ciphertext:  ciphertext,
		KeyMaterial: keyMaterial,
		IV:          iv,
		Salt:        salt,
		Digest:      c.provider.Digest(plaintext),
	}, nil
}

// DecryptContent reverses EncryptContent. The AEAD tag is checked first;
// any tag failure surfaces as ErrAuthenticationFailed with no further
// detail. After a successful open the plaintext is hashed and compared
// against expectedDigest, and a mismatch surfaces as ErrIntegrityViolation.
func (c *Cipher) DecryptContent(ciphertext, keyMaterial, iv, salt, expectedDigest, aad []byte) ([]byte, error) {
	if len(keyMaterial) != crypto.KeyMaterialSize {
		return nil, ErrAuthenticationFailed
	}

	contentKey, err := c.provider.DeriveKey(keyMaterial, salt, []byte(contentKeyInfo))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	defer util.WipeBytes(contentKey)

	plaintext, err := c.provider.Open(contentKey, iv, ciphertext, aad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	if !util.EqualDigests(c.provider.Digest(plaintext), expectedDigest) {
		util.WipeBytes(plaintext)
		return nil, ErrIntegrityViolation
	}
	return plaintext, nil
}
