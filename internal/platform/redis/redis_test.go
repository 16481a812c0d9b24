package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := NewFromClient(redisv8.NewClient(&redisv8.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestCacheRoundTrip(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, svc.CacheSet(ctx, "k", payload{Name: "a"}, time.Minute))

	var got payload
	require.NoError(t, svc.CacheGet(ctx, "k", &got))
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	assert.ErrorIs(t, svc.CacheGet(ctx, "missing", &got), ErrMiss)
}

func TestAcquireRelease(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ok, holder, err := svc.Acquire(ctx, "lock", "job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-1", holder)

	ok, holder, err = svc.Acquire(ctx, "lock", "job-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "job-1", holder)

	// a non-owner release leaves the lock in place
	require.NoError(t, svc.Release(ctx, "lock", "job-2"))
	ok, _, err = svc.Acquire(ctx, "lock", "job-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Release(ctx, "lock", "job-1"))
	ok, _, err = svc.Acquire(ctx, "lock", "job-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireAfterExpiry(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	ok, _, err := svc.Acquire(ctx, "lock", "job-1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, holder, err := svc.Acquire(ctx, "lock", "job-2", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "job-2", holder)
}

func TestHealthCheck(t *testing.T) {
	svc, mr := newTestService(t)
	require.NoError(t, svc.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, svc.HealthCheck(context.Background()))
}
