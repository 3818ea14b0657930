package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type item struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

func TestBridge_SaveLoad(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(NewMemoryBackend())

	want := []item{{ID: 1, Quantity: 2}, {ID: 7, Quantity: 1}}
	require.NoError(t, bridge.Save(ctx, KeyCart, want))

	var got []item
	require.True(t, bridge.Load(ctx, KeyCart, &got))
	assert.Equal(t, want, got)
}

func TestBridge_LoadAbsent(t *testing.T) {
	bridge := NewBridge(NewMemoryBackend())

	var got []item
	assert.False(t, bridge.Load(context.Background(), KeyCart, &got))
	assert.Nil(t, got)
}

func TestBridge_LoadMalformed(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, KeyFavorites, []byte("{not json")))

	core, logs := observer.New(zap.WarnLevel)
	bridge := NewBridge(backend, WithBridgeLogger(zap.New(core)))

	var got []int64
	assert.False(t, bridge.Load(ctx, KeyFavorites, &got))
	assert.Equal(t, 1, logs.FilterMessage("discarding malformed state").Len())
}

func TestBridge_LoadBackendError(t *testing.T) {
	backend := newFlakyBackend()
	backend.down.Store(true)

	core, logs := observer.New(zap.WarnLevel)
	bridge := NewBridge(backend, WithBridgeLogger(zap.New(core)))

	var got []int64
	assert.False(t, bridge.Load(context.Background(), KeyFavorites, &got))
	assert.Equal(t, 1, logs.FilterMessage("storage load error").Len())
}

func TestBridge_SaveFailureIsUnavailable(t *testing.T) {
	backend := newFlakyBackend()
	backend.down.Store(true)
	bridge := NewBridge(backend)

	err := bridge.Save(context.Background(), KeyCart, []item{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, errBackendDown)

	err = bridge.Remove(context.Background(), KeyCart)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBridge_Remove(t *testing.T) {
	ctx := context.Background()
	bridge := NewBridge(NewMemoryBackend())

	require.NoError(t, bridge.Save(ctx, KeyCart, []item{{ID: 1, Quantity: 1}}))
	require.NoError(t, bridge.Remove(ctx, KeyCart))

	var got []item
	assert.False(t, bridge.Load(ctx, KeyCart, &got))
	assert.NoError(t, bridge.Remove(ctx, KeyCart))
}

func TestBridge_Namespace(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	alice := NewBridge(backend, WithNamespace("alice"))
	bob := NewBridge(backend, WithNamespace("bob"))

	require.NoError(t, alice.Save(ctx, KeyFavorites, []int64{1}))

	var got []int64
	assert.False(t, bob.Load(ctx, KeyFavorites, &got))

	raw, err := backend.Get(ctx, "alice:favorites")
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(raw))
}
