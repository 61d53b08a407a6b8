// Package engine ties the layers together into the two operations the
// application calls: encrypt a message to a set of recipients, and
// decrypt a received envelope as oneself. Per-message key material is
// generated, wrapped per recipient, and wiped before either operation
// returns.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jmcleod/voxseal/cipher"
	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/envelope"
	"github.com/jmcleod/voxseal/internal/aad"
	"github.com/jmcleod/voxseal/internal/util"
	"github.com/jmcleod/voxseal/internal/uuid"
	"github.com/jmcleod/voxseal/keypair"
	"github.com/jmcleod/voxseal/wrap"
)

// Identity is the per-user encryption context: who is acting, and the
// key pair manager holding their keys. There is no ambient current user;
// every engine call names its identity explicitly.
type Identity struct {
	UserID string
	Keys   *keypair.Manager
}

// Engine performs hybrid encryption and decryption of message envelopes.
// An Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	cipher  *cipher.Cipher
	wrapper *wrap.Wrapper
	now     func() time.Time
	newID   func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithProvider substitutes the cryptographic provider for both the
// content cipher and the key wrapper.
func WithProvider(p crypto.Provider) Option {
	return func(e *Engine) {
		e.cipher = cipher.New(cipher.WithProvider(p))
		e.wrapper = wrap.New(wrap.WithProvider(p))
	}
}

// WithClock substitutes the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDSource substitutes the envelope ID generator.
func WithIDSource(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New creates an Engine with the standard provider, wall clock, and
// random envelope IDs unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		cipher:  cipher.New(),
		wrapper: wrap.New(),
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type encryptOptions struct {
	metadata   *envelope.Metadata
	copyToSelf bool
}

// EncryptOption customizes a single encryption.
type EncryptOption func(*encryptOptions)

// WithMetadata attaches clear-text descriptive metadata to the envelope.
// Metadata is not encrypted; never put sensitive content in it.
func WithMetadata(m envelope.Metadata) EncryptOption {
	return func(o *encryptOptions) {
		o.metadata = &m
	}
}

// WithCopyToSelf adds the sender as a recipient so they can replay their
// own sent messages. The sender's public key comes from their Manager.
func WithCopyToSelf() EncryptOption {
	return func(o *encryptOptions) {
		o.copyToSelf = true
	}
}

// EncryptForRecipients encrypts plaintext so that each listed recipient,
// and only they, can recover it. All-or-nothing: if wrapping fails for
// any single recipient no envelope is returned.
func (e *Engine) EncryptForRecipients(ctx context.Context, id Identity, plaintext []byte, recipients wrap.RecipientKeySet, opts ...EncryptOption) (*envelope.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("identity has no user ID")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext must not be empty")
	}

	o := encryptOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.copyToSelf {
		if id.Keys == nil {
			return nil, fmt.Errorf("copy-to-self requires the identity's key pair manager")
		}
		selfPub, err := id.Keys.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("loading own public key: %w", err)
		}
		// Callers keep their map; the self entry goes on a copy.
		expanded := make(wrap.RecipientKeySet, len(recipients)+1)
		for rid, pub := range recipients {
			expanded[rid] = pub
		}
		expanded[id.UserID] = selfPub
		recipients = expanded
	}
	if len(recipients) == 0 {
		return nil, wrap.ErrEmptyRecipientSet
	}

	envelopeID := e.newID()

	sealed, err := e.cipher.EncryptContent(plaintext, aad.Content(envelopeID, id.UserID))
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}
	defer util.WipeBytes(sealed.KeyMaterial)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wrapped, err := e.wrapper.WrapForRecipients(sealed.KeyMaterial, recipients, func(recipientID string) []byte {
		return aad.KeyWrap(envelopeID, id.UserID, recipientID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPartialEncryptionFailure, err)
	}

	recipientIDs := make([]string, 0, len(recipients))
	for rid := range recipients {
		recipientIDs = append(recipientIDs, rid)
	}

	env := &envelope.Envelope{
		ID:              envelopeID,
		SenderID:        id.UserID,
		RecipientIDs:    recipientIDs,
		Ciphertext:      sealed.Ciphertext,
		IV:              sealed.IV,
		Salt:            sealed.Salt,
		WrappedKeys:     wrapped,
		IntegrityDigest: sealed.Digest,
		CreatedAt:       e.now().UTC(),
		Metadata:        o.metadata,
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// DecryptForSelf recovers the plaintext of env for the given identity.
// The identity must appear in the envelope's recipient list and hold the
// private key its wrapped key was sealed to.
func (e *Engine) DecryptForSelf(ctx context.Context, id Identity, env *envelope.Envelope) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("identity has no user ID")
	}
	if id.Keys == nil {
		return nil, keypair.ErrNotInitialized
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	wk, ok := env.WrappedKeyFor(id.UserID)
	if !ok {
		return nil, ErrNotARecipient
	}

	priv, err := id.Keys.PrivateKey()
	if err != nil {
		return nil, err
	}
	defer util.WipeArray32(&priv)

	keyMaterial, err := e.wrapper.UnwrapForSelf(wk, priv, aad.KeyWrap(env.ID, env.SenderID, id.UserID))
	if err != nil {
		// A failed unwrap is both a denial and an authentication failure;
		// callers match either sentinel.
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	defer util.WipeBytes(keyMaterial)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plaintext, err := e.cipher.DecryptContent(env.Ciphertext, keyMaterial, env.IV, env.Salt, env.IntegrityDigest, aad.Content(env.ID, env.SenderID))
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
