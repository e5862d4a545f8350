// Package storetest holds the behavioural contract every store.KV backend
// must satisfy. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pokemart/internal/store"
)

// Run exercises kv against the store.KV contract. newKV must return a fresh,
// empty store on every call.
func Run(t *testing.T, newKV func(t *testing.T) store.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		kv := newKV(t)
		_, err := kv.Get(ctx, "absent")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	t.Run("PutThenGet", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Put(ctx, "k", []byte(`{"version":1}`)))

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, `{"version":1}`, string(got))
	})

	t.Run("PutReplaces", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Put(ctx, "k", []byte("first")))
		require.NoError(t, kv.Put(ctx, "k", []byte("second")))

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Put(ctx, "a", []byte("1")))
		require.NoError(t, kv.Put(ctx, "b", []byte("2")))
		require.NoError(t, kv.Delete(ctx, "a"))

		got, err := kv.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got))
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Put(ctx, "k", []byte("v")))
		require.NoError(t, kv.Delete(ctx, "k"))

		_, err := kv.Get(ctx, "k")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		kv := newKV(t)
		assert.NoError(t, kv.Delete(ctx, "absent"))
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		kv := newKV(t)
		value := []byte("abc")
		require.NoError(t, kv.Put(ctx, "k", value))
		value[0] = 'x'

		got, err := kv.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
}
