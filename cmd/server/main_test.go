package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-caddie/internal/config"
	"trade-caddie/pkg/kvstore"
)

func cacheConfig(enabled bool, backend, addr string) config.Config {
	var cfg config.Config
	cfg.Cache = config.CacheConfig{Enabled: enabled, Backend: backend, TTL: time.Minute, Prefix: "test:"}
	cfg.Database.Redis.Addr = addr
	return cfg
}

func TestNewReplyCache_Disabled(t *testing.T) {
	store, closeStore, err := newReplyCache(cacheConfig(false, "redis", ""))
	require.NoError(t, err)
	defer closeStore()
	assert.Nil(t, store)
}

func TestNewReplyCache_Memory(t *testing.T) {
	store, closeStore, err := newReplyCache(cacheConfig(true, "memory", ""))
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &kvstore.MemoryStore{}, store)
}

func TestNewReplyCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, closeStore, err := newReplyCache(cacheConfig(true, "redis", mr.Addr()))
	require.NoError(t, err)
	defer closeStore()
	require.IsType(t, &kvstore.RedisStore{}, store)

	require.NoError(t, store.Put(context.Background(), "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("test:k"))
}

func TestNewReplyCache_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, closeStore, err := newReplyCache(cacheConfig(true, "redis", addr))
	defer closeStore()
	assert.Error(t, err)
}

func TestNewReplyCache_UnknownBackend(t *testing.T) {
	_, closeStore, err := newReplyCache(cacheConfig(true, "memcached", ""))
	defer closeStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}
