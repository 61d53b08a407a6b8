package engine

import (
	"errors"

	"github.com/jmcleod/voxseal/cipher"
	"github.com/jmcleod/voxseal/wrap"
)

var (
	// ErrNotARecipient indicates the envelope carries no wrapped key for
	// the decrypting user.
	ErrNotARecipient = errors.New("not a recipient of this message")
	// ErrPartialEncryptionFailure indicates key wrapping failed for at
	// least one recipient; no envelope is produced in that case.
	ErrPartialEncryptionFailure = errors.New("partial encryption failure")

	// Security errors from the lower layers, re-exported so callers can
	// match without importing cipher or wrap directly.
	ErrAuthenticationFailed = cipher.ErrAuthenticationFailed
	ErrIntegrityViolation   = cipher.ErrIntegrityViolation
	ErrDecryptionDenied     = wrap.ErrDecryptionDenied
)
