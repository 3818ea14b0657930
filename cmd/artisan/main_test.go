package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/artisan_market/internal/cart"
	"github.com/fjod/artisan_market/internal/config"
	"github.com/fjod/artisan_market/internal/domain"
	"github.com/fjod/artisan_market/internal/imageopt"
	"github.com/fjod/artisan_market/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", config.BackendSQLite)
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "artisan.db"))
	t.Setenv("LOG_LEVEL", "error")
}

func TestCartCommands_Persist(t *testing.T) {
	useSQLite(t)

	execute(t, "cart", "add", "7", "--title", "Vase", "--price", "45")
	execute(t, "cart", "add", "7")
	out := execute(t, "cart", "list")
	assert.Contains(t, out, "Vase")
	assert.Contains(t, out, "90.00")

	out = execute(t, "cart", "set", "7", "0")
	assert.NotContains(t, out, "Vase")

	execute(t, "cart", "add", "8", "--title", "Bowl", "--price", "20")
	out = execute(t, "cart", "clear")
	assert.NotContains(t, out, "Bowl")
}

func TestCartCommands_InvalidArgs(t *testing.T) {
	useSQLite(t)

	for _, args := range [][]string{
		{"cart", "add", "abc"},
		{"cart", "set", "1", "many"},
		{"cart", "remove", "-3"},
	} {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)
		assert.Error(t, rootCmd.Execute(), args)
	}
}

func TestFavoritesCommands(t *testing.T) {
	useSQLite(t)

	execute(t, "favorites", "toggle", "3")
	out := execute(t, "favorites", "toggle", "1")

	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []int64{3, 1}, ids)

	out = execute(t, "favorites", "toggle", "3")
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []int64{1}, ids)

	out = execute(t, "favorites", "list")
	require.NoError(t, json.Unmarshal([]byte(out), &ids))
	assert.Equal(t, []int64{1}, ids)
}

func TestBadgesCommand(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)
	t.Setenv("LOG_LEVEL", "error")

	out := execute(t, "badges", "--experience", "12", "--rating", "4.8")
	var got []domain.Badge
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	var ids []domain.BadgeID
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []domain.BadgeID{
		domain.BadgeCertified, domain.BadgeExpert, domain.BadgeHandmade, domain.BadgeQuality,
	}, ids)

	out = execute(t, "badges", "--catalog")
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 9)
}

func TestOpenBackend_CachedSQLiteWithBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c := config.Default().Storage
	c.SQLitePath = filepath.Join(t.TempDir(), "artisan.db")
	c.RedisAddr = mr.Addr()
	c.CacheRedis = true
	c.Breaker.Enabled = true

	backend, err := openBackend(ctx, c, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &kvstore.BreakerBackend{}, backend)

	require.NoError(t, backend.Put(ctx, kvstore.KeyCart, []byte(`[]`)))
	got, err := backend.Get(ctx, kvstore.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	require.NoError(t, backend.Close())

	// Close waits for the cache fill; cache entries expire.
	assert.Greater(t, mr.TTL("artisan:cart"), time.Duration(0))
}

func TestOpenBackend_RedisPrimaryKeepsState(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c := config.Default().Storage
	c.Backend = config.BackendRedis
	c.RedisAddr = mr.Addr()

	backend, err := openBackend(ctx, c, zap.NewNop())
	require.NoError(t, err)
	store := cart.New(ctx, kvstore.NewBridge(backend))
	require.NoError(t, store.Add(ctx, domain.Product{ID: 1, Title: "Vase", Price: 45}))
	require.NoError(t, backend.Close())

	assert.Zero(t, mr.TTL("artisan:cart"))
	mr.FastForward(21 * time.Minute)

	backend, err = openBackend(ctx, c, zap.NewNop())
	require.NoError(t, err)
	defer backend.Close()
	reloaded := cart.New(ctx, kvstore.NewBridge(backend))
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, 1, reloaded.ItemCount())
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	c := config.Default().Storage
	c.Backend = config.BackendRedis
	c.RedisAddr = addr

	_, err := openBackend(context.Background(), c, zap.NewNop())
	require.Error(t, err)
}

func TestOpenBackend_Unknown(t *testing.T) {
	c := config.Default().Storage
	c.Backend = "etcd"

	_, err := openBackend(context.Background(), c, zap.NewNop())
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestNewOptimizer(t *testing.T) {
	c := config.Default().Images
	c.Format = "avif"
	c.Width = 400

	o, err := newOptimizer(c)
	require.NoError(t, err)
	assert.Equal(t, "/img/a.jpg?w=400&q=85&fmt=avif", o.OptimizeURL("/img/a.jpg", imageopt.Options{}))

	c.Format = "gif"
	_, err = newOptimizer(c)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
