package keypair

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmcleod/voxseal/crypto"
	"github.com/jmcleod/voxseal/internal/aad"
	"github.com/jmcleod/voxseal/internal/util"
	"github.com/jmcleod/voxseal/keystore"
)

const (
	keyPairVersion   = 1
	publicKeyVersion = 1
	publicKeyScheme  = "x25519"

	exportVersion = 1
	exportSaltLen = 16
)

// storedKeyPair is the serialized form of a user's key pair, written to
// the key store (optionally sealed) and to passphrase-protected export
// blobs.
type storedKeyPair struct {
	Ver        int       `json:"ver"`
	UserID     string    `json:"userId"`
	PrivateKey [32]byte  `json:"privateKey"`
	PublicKey  [32]byte  `json:"publicKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

// serializedPublicKey is the portable public-key interchange form handed
// to the directory layer and to other users.
type serializedPublicKey struct {
	Ver       int    `json:"ver"`
	Scheme    string `json:"scheme"`
	PublicKey []byte `json:"publicKey"`
}

func marshalPublicKey(pub [32]byte) ([]byte, error) {
	return json.Marshal(&serializedPublicKey{
		Ver:       publicKeyVersion,
		Scheme:    publicKeyScheme,
		PublicKey: pub[:],
	})
}

// ImportPublicKey parses a serialized public key belonging to another
// party into a key usable for wrapping.
func ImportPublicKey(serialized []byte) ([32]byte, error) {
	var spk serializedPublicKey
	if err := json.Unmarshal(serialized, &spk); err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if spk.Ver != publicKeyVersion {
		return [32]byte{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedKey, spk.Ver)
	}
	if spk.Scheme != publicKeyScheme {
		return [32]byte{}, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedKey, spk.Scheme)
	}
	if len(spk.PublicKey) != 32 {
		return [32]byte{}, fmt.Errorf("%w: public key must be 32 bytes, got %d", ErrMalformedKey, len(spk.PublicKey))
	}
	var pub [32]byte
	copy(pub[:], spk.PublicKey)
	return pub, nil
}

// sealKeyPair converts a storedKeyPair into an at-rest record. With a nil
// passphrase the record carries the serialized pair directly; otherwise
// it is sealed under an Argon2id-derived key bound to the owning user.
func sealKeyPair(skp *storedKeyPair, passphrase []byte, params crypto.Argon2idParams) (*keystore.Record, error) {
	plaintext, err := json.Marshal(skp)
	if err != nil {
		return nil, fmt.Errorf("marshaling key pair: %w", err)
	}

	if passphrase == nil {
		return &keystore.Record{
			Ver:        1,
			Scheme:     keystore.SchemePlain,
			Ciphertext: plaintext,
			CreatedAt:  skp.CreatedAt,
		}, nil
	}
	defer util.WipeBytes(plaintext)

	salt, err := util.RandomBytes(exportSaltLen)
	if err != nil {
		return nil, fmt.Errorf("generating record salt: %w", err)
	}
	key, err := util.DeriveArgon2idKey(string(passphrase), salt, params)
	if err != nil {
		return nil, fmt.Errorf("deriving record key: %w", err)
	}
	defer util.WipeBytes(key)

	nonce, ciphertext, err := util.SealAES(key, plaintext, aad.KeyRecord(skp.UserID))
	if err != nil {
		return nil, fmt.Errorf("sealing key pair: %w", err)
	}

	return &keystore.Record{
		Ver:        1,
		Scheme:     keystore.SchemeArgon2id,
		KDFParams:  &params,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		CreatedAt:  skp.CreatedAt,
	}, nil
}

// openKeyPair reverses sealKeyPair and verifies the record belongs to the
// expected user.
func openKeyPair(rec *keystore.Record, userID string, passphrase []byte) (*storedKeyPair, error) {
	if rec.Ver != 1 {
		return nil, fmt.Errorf("%w: unsupported record version %d", ErrMalformedKey, rec.Ver)
	}

	var plaintext []byte
	switch rec.Scheme {
	case keystore.SchemePlain:
		plaintext = rec.Ciphertext

	case keystore.SchemeArgon2id:
		if passphrase == nil {
			return nil, fmt.Errorf("stored key material for %q is passphrase-protected but no passphrase is configured", userID)
		}
		if rec.KDFParams == nil {
			return nil, fmt.Errorf("%w: sealed record missing KDF parameters", ErrMalformedKey)
		}
		key, err := util.DeriveArgon2idKey(string(passphrase), rec.Salt, *rec.KDFParams)
		if err != nil {
			return nil, fmt.Errorf("deriving record key: %w", err)
		}
		defer util.WipeBytes(key)

		plaintext, err = util.OpenAES(key, rec.Nonce, rec.Ciphertext, aad.KeyRecord(userID))
		if err != nil {
			return nil, fmt.Errorf("unsealing key pair record: %w", err)
		}
		defer util.WipeBytes(plaintext)

	default:
		return nil, fmt.Errorf("%w: unsupported record scheme %q", ErrMalformedKey, rec.Scheme)
	}

	var skp storedKeyPair
	if err := json.Unmarshal(plaintext, &skp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if skp.Ver != keyPairVersion {
		return nil, fmt.Errorf("%w: unsupported key pair version %d", ErrMalformedKey, skp.Ver)
	}
	if skp.UserID != userID {
		return nil, fmt.Errorf("%w: record belongs to %q, not %q", ErrMalformedKey, skp.UserID, userID)
	}
	return &skp, nil
}

// exportKDFParams uses the sensitive profile for export blobs because
// they are long-lived offline artifacts that may sit on disk.
var exportKDFParams = func() util.Argon2idParams {
	p, _ := util.Argon2idProfile(util.KDFProfileSensitive)
	return p
}()

// sealExportBlob encrypts a storedKeyPair into a portable blob protected
// by the given normalized passphrase. Format:
//
//	version (1 byte) || salt (16 bytes) || nonce (12 bytes) || ciphertext
func sealExportBlob(skp *storedKeyPair, passphrase []byte) ([]byte, error) {
	plaintext, err := json.Marshal(skp)
	if err != nil {
		return nil, fmt.Errorf("marshaling key pair: %w", err)
	}
	defer util.WipeBytes(plaintext)

	salt, err := util.RandomBytes(exportSaltLen)
	if err != nil {
		return nil, fmt.Errorf("generating export salt: %w", err)
	}
	key, err := util.DeriveArgon2idKey(string(passphrase), salt, exportKDFParams)
	if err != nil {
		return nil, fmt.Errorf("deriving export key: %w", err)
	}
	defer util.WipeBytes(key)

	nonce, ciphertext, err := util.SealAES(key, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypting key pair: %w", err)
	}

	out := make([]byte, 0, 1+exportSaltLen+len(nonce)+len(ciphertext))
	out = append(out, byte(exportVersion))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func openExportBlob(blob, passphrase []byte) (*storedKeyPair, error) {
	if len(blob) < 1+exportSaltLen+util.GCMNonceSize {
		return nil, fmt.Errorf("%w: export blob too short", ErrMalformedKey)
	}
	if blob[0] != exportVersion {
		return nil, fmt.Errorf("%w: unsupported export version %d", ErrMalformedKey, blob[0])
	}
	salt := blob[1 : 1+exportSaltLen]
	nonce := blob[1+exportSaltLen : 1+exportSaltLen+util.GCMNonceSize]
	ciphertext := blob[1+exportSaltLen+util.GCMNonceSize:]

	key, err := util.DeriveArgon2idKey(string(passphrase), salt, exportKDFParams)
	if err != nil {
		return nil, fmt.Errorf("deriving export key: %w", err)
	}
	defer util.WipeBytes(key)

	plaintext, err := util.OpenAES(key, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting key pair blob: %w", err)
	}
	defer util.WipeBytes(plaintext)

	var skp storedKeyPair
	if err := json.Unmarshal(plaintext, &skp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if skp.Ver != keyPairVersion {
		return nil, fmt.Errorf("%w: unsupported key pair version %d", ErrMalformedKey, skp.Ver)
	}
	return &skp, nil
}
