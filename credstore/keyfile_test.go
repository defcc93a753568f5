package credstore

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateKey(t *testing.T) {
	t.Run("Generates A Usable Key On First Run", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "credential.key")

		keyHex, err := LoadOrCreateKey(keyPath)
		require.NoError(t, err)

		raw, err := hex.DecodeString(keyHex)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		info, err := os.Stat(keyPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		// The generated key seals and unseals credentials.
		store, err := NewFileStore(filepath.Join(dir, "credential.sealed"), keyHex)
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, sampleCredential()))
		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-abc", loaded.Token)
	})

	t.Run("Returns The Same Key On Subsequent Runs", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "credential.key")

		first, err := LoadOrCreateKey(keyPath)
		require.NoError(t, err)
		second, err := LoadOrCreateKey(keyPath)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
