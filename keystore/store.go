// Package keystore provides the persistence abstraction for a user's
// asymmetric key pair. A Store holds one Record per user identifier and
// must survive process restarts; backends live in the memory and bbolt
// subpackages.
package keystore

import (
	"errors"
	"time"

	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/util"
)

var (
	// ErrNotFound is returned when no key material exists for a user.
	ErrNotFound = errors.New("key material not found")
	// ErrAlreadyExists is returned by PutIfAbsent when a record is already
	// present for the user. The caller should reload and adopt it.
	ErrAlreadyExists = errors.New("key material already exists")
	// ErrStoreUnavailable is returned when the persistence medium cannot
	// be opened or written.
	ErrStoreUnavailable = errors.New("key store unavailable")
)

// Record schemes.
const (
	SchemePlain    = "plain"
	SchemeArgon2id = "argon2id-aes256gcm"
)

// Record is the at-rest form of a user's key pair. With SchemePlain the
// Ciphertext field holds the serialized key pair directly; with
// SchemeArgon2id it holds an AES-256-GCM ciphertext whose key is derived
// from a passphrase via Argon2id using Salt and KDFParams.
type Record struct {
	Ver        int                    `json:"ver"`
	Scheme     string                 `json:"scheme"`
	KDFParams  *crypto.Argon2idParams `json:"kdfParams,omitempty"`
	Salt       []byte                 `json:"salt,omitempty"`
	Nonce      []byte                 `json:"nonce,omitempty"`
	Ciphertext []byte                 `json:"ciphertext"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := &Record{
		Ver:        r.Ver,
		Scheme:     r.Scheme,
		Salt:       util.CopyBytes(r.Salt),
		Nonce:      util.CopyBytes(r.Nonce),
		Ciphertext: util.CopyBytes(r.Ciphertext),
		CreatedAt:  r.CreatedAt,
	}
	if r.KDFParams != nil {
		p := *r.KDFParams
		cp.KDFParams = &p
	}
	return cp
}

// Store persists key-pair records keyed by user identifier.
//
// PutIfAbsent is the serialization point for concurrent initialization:
// when two processes generate key pairs for the same user at the same
// time, exactly one write wins and the loser receives ErrAlreadyExists,
// after which it must reload and adopt the winner's record.
type Store interface {
	Put(userID string, rec *Record) error
	Get(userID string) (*Record, error)
	Delete(userID string) error
	PutIfAbsent(userID string, rec *Record) error
}
