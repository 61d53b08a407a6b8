package keypair

import (
	"errors"

	"github.com/jmcleod/voxseal/keystore"
)

var (
	// ErrStoreUnavailable indicates the backing key store could not be
	// opened or written. Aliased from keystore so errors.Is matches
	// through either package.
	ErrStoreUnavailable = keystore.ErrStoreUnavailable
	// ErrKeyGenerationFailed indicates the cryptographic provider could
	// not produce a key pair.
	ErrKeyGenerationFailed = errors.New("key generation failed")
	// ErrNotInitialized indicates the manager has no key material, either
	// because Initialize was never called or because Wipe destroyed it.
	ErrNotInitialized = errors.New("key pair manager not initialized")
	// ErrMalformedKey indicates a serialized key could not be parsed.
	ErrMalformedKey = errors.New("malformed key")
)
