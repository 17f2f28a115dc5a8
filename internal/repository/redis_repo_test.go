package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIssueThrottle_Allow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	throttle := NewIssueThrottle(rdb, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := throttle.Allow(ctx, "login:alice@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := throttle.Allow(ctx, "login:alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = throttle.Allow(ctx, "registration:alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	mr.FastForward(time.Hour + time.Second)
	ok, err = throttle.Allow(ctx, "login:alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "counter resets after the window")
}

func TestIssueThrottle_Disabled(t *testing.T) {
	throttle := NewIssueThrottle(nil, 0, time.Hour)

	ok, err := throttle.Allow(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenBlacklist(t *testing.T) {
	mr, rdb := newTestRedis(t)
	bl := NewTokenBlacklist(rdb)
	ctx := context.Background()

	revoked, err := bl.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "tok", time.Minute))
	revoked, err = bl.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "expired", 0))
	revoked, err = bl.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
