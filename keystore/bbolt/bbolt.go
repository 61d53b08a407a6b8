// Package bbolt provides a BBolt-backed key material store.
package bbolt

import (
	"encoding/json"
	"fmt"

	"github.com/jmcleod/voxseal/keystore"
	"go.etcd.io/bbolt"
)

var bucketKeyPairs = []byte("keypairs")

// Store implements keystore.Store backed by a BBolt database file.
type Store struct {
	db *bbolt.DB
}

var _ keystore.Store = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// NewStoreFromFile opens a BBolt database at the given path and returns a
// new Store. The file is created with 0600 permissions.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("%w: opening bbolt db: %v", keystore.ErrStoreUnavailable, err)
	}
	return NewStore(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(userID string, rec *keystore.Record) error {
	return s.update(func(b *bbolt.Bucket) error {
		return putRecord(b, userID, rec)
	})
}

func (s *Store) Get(userID string) (*keystore.Record, error) {
	var rec keystore.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKeyPairs)
		if b == nil {
			return fmt.Errorf("%s: %w", userID, keystore.ErrNotFound)
		}
		data := b.Get([]byte(userID))
		if data == nil {
			return fmt.Errorf("%s: %w", userID, keystore.ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Delete(userID string) error {
	return s.update(func(b *bbolt.Bucket) error {
		if b.Get([]byte(userID)) == nil {
			return fmt.Errorf("%s: %w", userID, keystore.ErrNotFound)
		}
		return b.Delete([]byte(userID))
	})
}

func (s *Store) PutIfAbsent(userID string, rec *keystore.Record) error {
	return s.update(func(b *bbolt.Bucket) error {
		if b.Get([]byte(userID)) != nil {
			return fmt.Errorf("%s: %w", userID, keystore.ErrAlreadyExists)
		}
		return putRecord(b, userID, rec)
	})
}

func (s *Store) update(fn func(b *bbolt.Bucket) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketKeyPairs)
		if err != nil {
			return fmt.Errorf("%w: %v", keystore.ErrStoreUnavailable, err)
		}
		return fn(b)
	})
}

func putRecord(b *bbolt.Bucket, userID string, rec *keystore.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(userID), data)
}
