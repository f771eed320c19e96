package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/transferdesk/pkg/adapters/redis"
	"github.com/aretw0/transferdesk/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisTokenStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunTokenStorageContract(t, redis.NewFromClient(client))
}

func TestRedisTokenStore_PrefixAndTTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("desk:"), redis.WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, ports.SlotTFA, "remember-me"))
	assert.True(t, mr.Exists("desk:tfa"))
	assert.Equal(t, time.Hour, mr.TTL("desk:tfa"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Retrieve(ctx, ports.SlotTFA)
	assert.ErrorIs(t, err, ports.ErrTokenNotFound)
}
