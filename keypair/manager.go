// Package keypair manages a user's long-lived asymmetric identity key
// pair: load-or-generate on first use, portable public-key export/import,
// passphrase-protected key pair export for device migration, and
// best-effort destruction on wipe.
package keypair

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/util"
	"github.com/jmcleod/voxseal/keystore"
)

// Manager owns one user's identity key pair. Create one Manager per
// logged-in user; it is not a process-wide singleton. The private key is
// held in a memguard Enclave between uses.
//
// Initialize and Wipe are serialized on an internal mutex, so a caller
// never observes a half-wiped key pair. Cross-process races on first
// initialization are resolved by the store's PutIfAbsent semantics.
type Manager struct {
	mu         sync.Mutex
	store      keystore.Store
	provider   crypto.Provider
	passphrase []byte // NFKD-normalized; nil means plain at-rest records
	kdfParams  crypto.Argon2idParams

	userID      string
	priv        *memguard.Enclave
	pub         [32]byte
	createdAt   time.Time
	initialized bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithProvider substitutes the cryptographic provider.
func WithProvider(p crypto.Provider) Option {
	return func(m *Manager) {
		m.provider = p
	}
}

// WithPassphrase seals at-rest key pair records under a key derived from
// the passphrase with Argon2id. Without this option records are stored
// unsealed, relying on the store's own protections.
func WithPassphrase(passphrase string) Option {
	return func(m *Manager) {
		m.passphrase = []byte(util.Normalize(passphrase))
	}
}

// WithKDFParams overrides the Argon2id parameters used for at-rest
// record sealing.
func WithKDFParams(params crypto.Argon2idParams) Option {
	return func(m *Manager) {
		m.kdfParams = params
	}
}

// NewManager creates a Manager backed by the given store.
func NewManager(store keystore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		provider:  crypto.Standard(),
		kdfParams: util.DefaultArgon2idParams(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the stored key pair for userID, generating and
// persisting a new one if none exists. It is idempotent: calling it again
// for the same user without an intervening Wipe keeps the same material.
// If two processes race to generate for the same user, the store decides
// a single winner and the loser adopts the winner's pair.
func (m *Manager) Initialize(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("user ID must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		if m.userID == userID {
			return nil
		}
		return fmt.Errorf("manager already initialized for user %q", m.userID)
	}

	rec, err := m.store.Get(userID)
	switch {
	case err == nil:
		return m.adopt(userID, rec)
	case errors.Is(err, keystore.ErrNotFound):
		// fall through to generation
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	kp, err := m.provider.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyGenerationFailed, err)
	}
	skp := &storedKeyPair{
		Ver:        keyPairVersion,
		UserID:     userID,
		PrivateKey: kp.Private,
		PublicKey:  kp.Public,
		CreatedAt:  time.Now().UTC(),
	}
	util.WipeArray32(&kp.Private)

	rec, err = sealKeyPair(skp, m.passphrase, m.kdfParams)
	if err != nil {
		util.WipeArray32(&skp.PrivateKey)
		return err
	}

	err = m.store.PutIfAbsent(userID, rec)
	switch {
	case err == nil:
		m.install(skp)
		return nil
	case errors.Is(err, keystore.ErrAlreadyExists):
		// Another process generated first; discard ours and adopt theirs.
		util.WipeArray32(&skp.PrivateKey)
		rec, err := m.store.Get(userID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return m.adopt(userID, rec)
	default:
		util.WipeArray32(&skp.PrivateKey)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func (m *Manager) adopt(userID string, rec *keystore.Record) error {
	skp, err := openKeyPair(rec, userID, m.passphrase)
	if err != nil {
		return err
	}
	m.install(skp)
	return nil
}

// install takes ownership of skp's private key bytes; the Enclave wipes
// the source array as it seals it.
func (m *Manager) install(skp *storedKeyPair) {
	m.userID = skp.UserID
	m.pub = skp.PublicKey
	m.createdAt = skp.CreatedAt
	m.priv = memguard.NewEnclave(skp.PrivateKey[:])
	m.initialized = true
}

// UserID returns the user this manager was initialized for, or "".
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// CreatedAt returns when the current key pair was generated.
func (m *Manager) CreatedAt() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return time.Time{}, ErrNotInitialized
	}
	return m.createdAt, nil
}

// PublicKey returns the current user's public key.
func (m *Manager) PublicKey() ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return [32]byte{}, ErrNotInitialized
	}
	return m.pub, nil
}

// PrivateKey returns a copy of the current user's private key. The caller
// must wipe the copy as soon as the operation that needed it completes.
func (m *Manager) PrivateKey() ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return [32]byte{}, ErrNotInitialized
	}
	buf, err := m.priv.Open()
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening private key enclave: %w", err)
	}
	defer buf.Destroy()
	var priv [32]byte
	copy(priv[:], buf.Bytes())
	return priv, nil
}

// ExportPublicKey returns the current user's public key in a portable,
// re-importable serialized form.
func (m *Manager) ExportPublicKey() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return marshalPublicKey(m.pub)
}

// ExportKeyPair encrypts the full key pair into a portable blob protected
// by the given passphrase, for moving an identity to another device.
// Treat the blob as highly sensitive.
func (m *Manager) ExportKeyPair(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}

	buf, err := m.priv.Open()
	if err != nil {
		return nil, fmt.Errorf("opening private key enclave: %w", err)
	}
	defer buf.Destroy()

	skp := storedKeyPair{
		Ver:       keyPairVersion,
		UserID:    m.userID,
		PublicKey: m.pub,
		CreatedAt: m.createdAt,
	}
	copy(skp.PrivateKey[:], buf.Bytes())
	defer util.WipeArray32(&skp.PrivateKey)

	normalized := []byte(util.Normalize(passphrase))
	defer util.WipeBytes(normalized)
	return sealExportBlob(&skp, normalized)
}

// ImportKeyPair installs an identity from a blob previously produced by
// ExportKeyPair and persists it to this manager's store.
func (m *Manager) ImportKeyPair(ctx context.Context, blob []byte, passphrase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return fmt.Errorf("manager already initialized for user %q", m.userID)
	}

	normalized := []byte(util.Normalize(passphrase))
	defer util.WipeBytes(normalized)

	skp, err := openExportBlob(blob, normalized)
	if err != nil {
		return err
	}

	rec, err := sealKeyPair(skp, m.passphrase, m.kdfParams)
	if err != nil {
		util.WipeArray32(&skp.PrivateKey)
		return err
	}
	if err := m.store.Put(skp.UserID, rec); err != nil {
		util.WipeArray32(&skp.PrivateKey)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	m.install(skp)
	return nil
}

type wipeOptions struct {
	purgeStore bool
}

// WipeOption customizes Wipe.
type WipeOption func(*wipeOptions)

// WithStorePurge also deletes the persisted record, so a later Initialize
// generates a fresh key pair instead of reloading the old one.
func WithStorePurge() WipeOption {
	return func(o *wipeOptions) {
		o.purgeStore = true
	}
}

// Wipe destroys the in-memory key handles. The private key is not
// retrievable from this manager afterwards; on-disk copies survive unless
// WithStorePurge is given. Wipe happens-before any subsequent Initialize
// on this manager.
func (m *Manager) Wipe(ctx context.Context, opts ...WipeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o := wipeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	userID := m.userID
	m.priv = nil
	util.WipeArray32(&m.pub)
	m.userID = ""
	m.createdAt = time.Time{}
	m.initialized = false

	if o.purgeStore && userID != "" {
		if err := m.store.Delete(userID); err != nil && !errors.Is(err, keystore.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
	}
	return nil
}
