package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTokenStorageContract runs a suite of tests to verify that a TokenStorage
// implementation adheres to the interface contract. The storage must start empty.
func RunTokenStorageContract(t *testing.T, storage TokenStorage) {
	ctx := context.Background()

	t.Run("Retrieve Empty Slot", func(t *testing.T) {
		for _, slot := range Slots {
			_, err := storage.Retrieve(ctx, slot)
			assert.ErrorIs(t, err, ErrTokenNotFound, "slot %s", slot)
		}
	})

	t.Run("Store and Retrieve", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, SlotPrimary, "primary-token"))
		require.NoError(t, storage.Store(ctx, SlotTFA, "tfa-token"))

		got, err := storage.Retrieve(ctx, SlotPrimary)
		require.NoError(t, err)
		assert.Equal(t, "primary-token", got)

		got, err = storage.Retrieve(ctx, SlotTFA)
		require.NoError(t, err)
		assert.Equal(t, "tfa-token", got)
	})

	t.Run("Store Replaces", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, SlotPrimary, "first"))
		require.NoError(t, storage.Store(ctx, SlotPrimary, "second"))

		got, err := storage.Retrieve(ctx, SlotPrimary)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, storage.Store(ctx, SlotPrimary, "doomed"))
		require.NoError(t, storage.Remove(ctx, SlotPrimary))

		_, err := storage.Retrieve(ctx, SlotPrimary)
		assert.ErrorIs(t, err, ErrTokenNotFound)

		// Slots are independent.
		got, err := storage.Retrieve(ctx, SlotTFA)
		require.NoError(t, err)
		assert.Equal(t, "tfa-token", got)
	})

	t.Run("Remove Is Idempotent", func(t *testing.T) {
		require.NoError(t, storage.Remove(ctx, SlotTFA))
		require.NoError(t, storage.Remove(ctx, SlotTFA))
		_, err := storage.Retrieve(ctx, SlotTFA)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}
