package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmcleod/voxseal/keystore"
)

func testRecord() *keystore.Record {
	return &keystore.Record{
		Ver:        1,
		Scheme:     keystore.SchemePlain,
		Ciphertext: []byte(`{"ver":1}`),
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewStore()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get("alice")
		if !errors.Is(err, keystore.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutGet", func(t *testing.T) {
		rec := testRecord()
		if err := s.Put("alice", rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := s.Get("alice")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Scheme != rec.Scheme {
			t.Errorf("expected scheme %q, got %q", rec.Scheme, got.Scheme)
		}

		// Mutating the returned record must not affect the stored copy.
		got.Ciphertext[0] = 'X'
		again, _ := s.Get("alice")
		if again.Ciphertext[0] == 'X' {
			t.Error("store returned an aliased record")
		}
	})

	t.Run("PutIfAbsent", func(t *testing.T) {
		err := s.PutIfAbsent("alice", testRecord())
		if !errors.Is(err, keystore.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if err := s.PutIfAbsent("bob", testRecord()); err != nil {
			t.Fatalf("PutIfAbsent for new user failed: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete("bob"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("bob"); !errors.Is(err, keystore.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMemoryStore_ConcurrentPutIfAbsent(t *testing.T) {
	s := NewStore()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.PutIfAbsent("carol", testRecord()); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly one PutIfAbsent winner, got %d", winners)
	}
}
