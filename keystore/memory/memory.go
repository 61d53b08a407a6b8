// Package memory provides a thread-safe in-memory implementation of
// keystore.Store. Suitable for testing, demos, and single-process use.
package memory

import (
	"sync"

	"github.com/jmcleod/voxseal/keystore"
)

// Store is a thread-safe in-memory implementation of keystore.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]*keystore.Record
}

var _ keystore.Store = (*Store)(nil)

// NewStore creates a new empty in-memory Store.
func NewStore() *Store {
	return &Store{data: make(map[string]*keystore.Record)}
}

func (s *Store) Put(userID string, rec *keystore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = rec.Clone()
	return nil
}

func (s *Store) Get(userID string) (*keystore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[userID]
	if !ok {
		return nil, keystore.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[userID]; !ok {
		return keystore.ErrNotFound
	}
	delete(s.data, userID)
	return nil
}

func (s *Store) PutIfAbsent(userID string, rec *keystore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[userID]; ok {
		return keystore.ErrAlreadyExists
	}
	s.data[userID] = rec.Clone()
	return nil
}
