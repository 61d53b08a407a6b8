// Package envelope defines the encrypted message container exchanged
// between family members: ciphertext, the parameters needed to decrypt
// it, and one wrapped key per recipient.
package envelope

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmcleod/voxseal/internal/util"
	"github.com/jmcleod/voxseal/wrap"
)

// ErrMalformedEnvelope indicates an envelope that is structurally
// invalid: missing fields, or a wrapped-key set that does not match the
// recipient list.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Metadata carries non-sensitive descriptive fields that travel in the
// clear alongside the ciphertext.
type Metadata struct {
	DurationMs int64  `json:"durationMs,omitempty"`
	Format     string `json:"format,omitempty"`
}

// Envelope is one encrypted message. The ciphertext is decryptable only
// by the users listed in RecipientIDs, each via their own wrapped key.
type Envelope struct {
	ID              string                      `json:"id"`
	SenderID        string                      `json:"senderId"`
	RecipientIDs    []string                    `json:"recipientIds"`
	Ciphertext      []byte                      `json:"ciphertext"`
	IV              []byte                      `json:"iv"`
	Salt            []byte                      `json:"salt"`
	WrappedKeys     map[string]*wrap.WrappedKey `json:"wrappedKeys"`
	IntegrityDigest []byte                      `json:"integrityDigest"`
	CreatedAt       time.Time                   `json:"createdAt"`
	Metadata        *Metadata                   `json:"metadata,omitempty"`
}

// Validate checks structural integrity: every required field present,
// and the wrapped-key set covering exactly the recipient list with no
// duplicates. It does not verify any cryptography.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil envelope", ErrMalformedEnvelope)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedEnvelope)
	}
	if e.SenderID == "" {
		return fmt.Errorf("%w: missing sender id", ErrMalformedEnvelope)
	}
	if len(e.RecipientIDs) == 0 {
		return fmt.Errorf("%w: no recipients", ErrMalformedEnvelope)
	}
	if len(e.Ciphertext) == 0 {
		return fmt.Errorf("%w: missing ciphertext", ErrMalformedEnvelope)
	}
	if len(e.IV) == 0 {
		return fmt.Errorf("%w: missing iv", ErrMalformedEnvelope)
	}
	if len(e.Salt) == 0 {
		return fmt.Errorf("%w: missing salt", ErrMalformedEnvelope)
	}
	if len(e.IntegrityDigest) == 0 {
		return fmt.Errorf("%w: missing integrity digest", ErrMalformedEnvelope)
	}

	seen := make(map[string]bool, len(e.RecipientIDs))
	for _, id := range e.RecipientIDs {
		if id == "" {
			return fmt.Errorf("%w: empty recipient id", ErrMalformedEnvelope)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate recipient %q", ErrMalformedEnvelope, id)
		}
		seen[id] = true
		wk, ok := e.WrappedKeys[id]
		if !ok || wk == nil {
			return fmt.Errorf("%w: no wrapped key for recipient %q", ErrMalformedEnvelope, id)
		}
	}
	for id := range e.WrappedKeys {
		if !seen[id] {
			return fmt.Errorf("%w: wrapped key for non-recipient %q", ErrMalformedEnvelope, id)
		}
	}
	return nil
}

// WrappedKeyFor returns the wrapped key addressed to userID, or false if
// userID is not among the envelope's recipients.
func (e *Envelope) WrappedKeyFor(userID string) (*wrap.WrappedKey, bool) {
	wk, ok := e.WrappedKeys[userID]
	if !ok || wk == nil {
		return nil, false
	}
	return wk, true
}

// Clone returns a deep copy.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	out := &Envelope{
		ID:              e.ID,
		SenderID:        e.SenderID,
		Ciphertext:      util.CopyBytes(e.Ciphertext),
		IV:              util.CopyBytes(e.IV),
		Salt:            util.CopyBytes(e.Salt),
		IntegrityDigest: util.CopyBytes(e.IntegrityDigest),
		CreatedAt:       e.CreatedAt,
	}
	if e.RecipientIDs != nil {
		out.RecipientIDs = make([]string, len(e.RecipientIDs))
		copy(out.RecipientIDs, e.RecipientIDs)
	}
	if e.WrappedKeys != nil {
		out.WrappedKeys = make(map[string]*wrap.WrappedKey, len(e.WrappedKeys))
		for id, wk := range e.WrappedKeys {
			out.WrappedKeys[id] = wk.Clone()
		}
	}
	if e.Metadata != nil {
		m := *e.Metadata
		out.Metadata = &m
	}
	return out
}
