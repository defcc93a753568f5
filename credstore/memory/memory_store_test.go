package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/selfcare/domain"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Load Without Save", func(t *testing.T) {
		store := NewStore(0)
		defer store.Close()

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrNoCredential)
	})

	t.Run("Round Trip", func(t *testing.T) {
		store := NewStore(0)
		defer store.Close()

		cred := &domain.Credential{Token: "tok-mem", Profile: domain.ProfileSnapshot{InvoicingID: "INV-001"}}
		require.NoError(t, store.Save(ctx, cred))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-mem", loaded.Token)

		// The store holds its own copy.
		cred.Token = "mutated"
		loaded, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-mem", loaded.Token)
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewStore(0)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &domain.Credential{Token: "tok"}))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, domain.ErrNoCredential)
	})

	t.Run("Expiry", func(t *testing.T) {
		store := NewStore(30 * time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Save(ctx, &domain.Credential{Token: "tok"}))
		require.Eventually(t, func() bool {
			_, err := store.Load(ctx)
			return err == domain.ErrNoCredential
		}, time.Second, 10*time.Millisecond)
	})
}
