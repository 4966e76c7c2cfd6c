package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, redis.NewFromClient(client, opts...)
}

func TestRedisStore_Contract(t *testing.T) {
	_, store := newStore(t)
	tests.RunTrailStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, store := newStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	// 1. Append
	err := store.Append(ctx, sessionID, domain.Visit{Node: "menu", State: "complete", Input: "1"})
	require.NoError(t, err)

	// 2. Sessions (immediately)
	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// 3. Fast forward miniredis for key expiration
	mr.FastForward(2 * time.Second)

	trail, err := store.Trail(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, trail)

	// 4. The index is cleaned lazily against the wall clock
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, store := newStore(t, redis.WithPrefix("custom:ivr:"))
	ctx := context.Background()

	err := store.Append(ctx, "my-session", domain.Visit{Node: "start"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:ivr:trail:my-session"), "Expected trail with custom prefix to exist")
	assert.True(t, mr.Exists("custom:ivr:index"), "Expected index with custom prefix to exist")

	list, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, "my-session")

	require.NoError(t, store.Delete(ctx, "my-session"))
	list, err = store.Sessions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, list, "my-session")
}
