package credstore

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/selfcare/domain"
)

func testKeyHex() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return hex.EncodeToString(key)
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credential.sealed")
	store, err := NewFileStore(path, testKeyHex())
	require.NoError(t, err)
	return store, path
}

func sampleCredential() *domain.Credential {
	return &domain.Credential{
		Token: "tok-abc",
		Profile: domain.ProfileSnapshot{
			CustomerID:  "cust-1",
			InvoicingID: "INV-001",
			Name:        "Jamie Customer",
			Email:       "jamie@example.com",
		},
		IssuedAt: time.Now().Truncate(time.Second),
	}
}

func TestNewFileStore(t *testing.T) {
	t.Run("Rejects Malformed Key", func(t *testing.T) {
		_, err := NewFileStore("/tmp/x", "not-hex")
		assert.Error(t, err)
	})

	t.Run("Rejects Short Key", func(t *testing.T) {
		_, err := NewFileStore("/tmp/x", "deadbeef")
		assert.Error(t, err)
	})
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	cred := sampleCredential()

	require.NoError(t, store.Save(ctx, cred))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred.Token, loaded.Token)
	assert.Equal(t, cred.Profile, loaded.Profile)

	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "tok-abc", "token must not appear in plaintext on disk")
}

func TestFileStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestFileStore_TamperedFileTreatedAsAbsent(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleCredential()))

	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestFileStore_WrongKeyTreatedAsAbsent(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleCredential()))

	otherKey := make([]byte, 32)
	for i := range otherKey {
		otherKey[i] = byte(0xa0 + i)
	}
	other, err := NewFileStore(path, hex.EncodeToString(otherKey))
	require.NoError(t, err)

	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoCredential)
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := sampleCredential()
	require.NoError(t, store.Save(ctx, first))

	second := sampleCredential()
	second.Token = "tok-rotated"
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-rotated", loaded.Token)
}

func TestFileStore_Clear(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleCredential()))

	require.NoError(t, store.Clear(ctx))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing again is a no-op.
	require.NoError(t, store.Clear(ctx))
}
