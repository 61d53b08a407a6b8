package keypair

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/voxseal/internal/util"
	"github.com/jmcleod/voxseal/keystore"
	"github.com/jmcleod/voxseal/keystore/memory"
)

func interactiveParams(t *testing.T) util.Argon2idParams {
	t.Helper()
	p, err := util.Argon2idProfile(util.KDFProfileInteractive)
	require.NoError(t, err)
	return p
}

func TestManager_InitializeGeneratesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewManager(store)

	require.NoError(t, m.Initialize(ctx, "alice"))
	assert.Equal(t, "alice", m.UserID())

	first, err := m.ExportPublicKey()
	require.NoError(t, err)

	// Second call without an intervening wipe returns the same material.
	require.NoError(t, m.Initialize(ctx, "alice"))
	second, err := m.ExportPublicKey()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh manager over the same store loads, not regenerates.
	m2 := NewManager(store)
	require.NoError(t, m2.Initialize(ctx, "alice"))
	third, err := m2.ExportPublicKey()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestManager_InitializeDifferentUserFails(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore())
	require.NoError(t, m.Initialize(ctx, "alice"))
	require.Error(t, m.Initialize(ctx, "bob"))
}

func TestManager_NotInitialized(t *testing.T) {
	m := NewManager(memory.NewStore())

	_, err := m.ExportPublicKey()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = m.PublicKey()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = m.PrivateKey()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = m.ExportKeyPair("pw")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestManager_ConcurrentInitializeSingleFlight(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	const workers = 8
	managers := make([]*Manager, workers)
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		managers[i] = NewManager(store)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = managers[i].Initialize(ctx, "alice")
		}(i)
	}
	wg.Wait()

	var want []byte
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		pub, err := managers[i].ExportPublicKey()
		require.NoError(t, err)
		if want == nil {
			want = pub
			continue
		}
		// Every manager must have adopted the single winning key pair.
		assert.True(t, bytes.Equal(want, pub), "manager %d holds a different key pair", i)
	}
}

func TestImportPublicKey(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore())
	require.NoError(t, m.Initialize(ctx, "alice"))

	serialized, err := m.ExportPublicKey()
	require.NoError(t, err)

	pub, err := ImportPublicKey(serialized)
	require.NoError(t, err)
	expected, err := m.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, expected, pub)

	tests := []struct {
		name string
		data []byte
	}{
		{"NotJSON", []byte("not json")},
		{"WrongScheme", []byte(`{"ver":1,"scheme":"rsa","publicKey":"AAAA"}`)},
		{"WrongVersion", []byte(`{"ver":9,"scheme":"x25519","publicKey":"AAAA"}`)},
		{"ShortKey", []byte(`{"ver":1,"scheme":"x25519","publicKey":"AAAA"}`)},
		{"Empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportPublicKey(tt.data)
			assert.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestManager_PassphraseSealedRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	params := interactiveParams(t)

	m := NewManager(store, WithPassphrase("family-secret"), WithKDFParams(params))
	require.NoError(t, m.Initialize(ctx, "alice"))

	rec, err := store.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, keystore.SchemeArgon2id, rec.Scheme)
	require.NotNil(t, rec.KDFParams)
	assert.NotContains(t, string(rec.Ciphertext), "privateKey")

	t.Run("ReloadWithPassphrase", func(t *testing.T) {
		m2 := NewManager(store, WithPassphrase("family-secret"), WithKDFParams(params))
		require.NoError(t, m2.Initialize(ctx, "alice"))
		want, err := m.PublicKey()
		require.NoError(t, err)
		got, err := m2.PublicKey()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("WrongPassphrase", func(t *testing.T) {
		m3 := NewManager(store, WithPassphrase("wrong"), WithKDFParams(params))
		require.Error(t, m3.Initialize(ctx, "alice"))
	})

	t.Run("MissingPassphrase", func(t *testing.T) {
		m4 := NewManager(store)
		require.Error(t, m4.Initialize(ctx, "alice"))
	})
}

func TestManager_WipeDestroysKeyHandles(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewManager(store)
	require.NoError(t, m.Initialize(ctx, "alice"))

	firstPub, err := m.PublicKey()
	require.NoError(t, err)

	require.NoError(t, m.Wipe(ctx))
	_, err = m.PrivateKey()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = m.PublicKey()
	assert.ErrorIs(t, err, ErrNotInitialized)

	// Without a store purge, re-initialization reloads the same pair.
	require.NoError(t, m.Initialize(ctx, "alice"))
	reloaded, err := m.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, firstPub, reloaded)
}

func TestManager_WipeWithStorePurge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := NewManager(store)
	require.NoError(t, m.Initialize(ctx, "alice"))

	firstPub, err := m.PublicKey()
	require.NoError(t, err)

	require.NoError(t, m.Wipe(ctx, WithStorePurge()))
	_, err = store.Get("alice")
	assert.ErrorIs(t, err, keystore.ErrNotFound)

	// Purged: a new pair is generated on the next initialization.
	require.NoError(t, m.Initialize(ctx, "alice"))
	newPub, err := m.PublicKey()
	require.NoError(t, err)
	assert.NotEqual(t, firstPub, newPub)
}

func TestManager_ExportImportKeyPair(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore())
	require.NoError(t, m.Initialize(ctx, "alice"))

	blob, err := m.ExportKeyPair("migration-passphrase")
	require.NoError(t, err)

	// Import on a second device (fresh store).
	m2 := NewManager(memory.NewStore())
	require.NoError(t, m2.ImportKeyPair(ctx, blob, "migration-passphrase"))
	assert.Equal(t, "alice", m2.UserID())

	want, err := m.PublicKey()
	require.NoError(t, err)
	got, err := m2.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	t.Run("WrongPassphrase", func(t *testing.T) {
		m3 := NewManager(memory.NewStore())
		require.Error(t, m3.ImportKeyPair(ctx, blob, "nope"))
	})

	t.Run("TruncatedBlob", func(t *testing.T) {
		m4 := NewManager(memory.NewStore())
		err := m4.ImportKeyPair(ctx, blob[:8], "migration-passphrase")
		assert.ErrorIs(t, err, ErrMalformedKey)
	})
}
