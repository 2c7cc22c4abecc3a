package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/finance-tracker/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestStatisticsCacheRoundTrip(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewStatisticsCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	stats := &models.Statistics{
		TotalBalance:   decimal.RequireFromString("7000.50"),
		TotalAccounts:  3,
		ActiveAccounts: 2,
	}
	stored, err := c.Set(ctx, 1, 0, stats)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists("stats:1"))

	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.TotalBalance.Equal(stats.TotalBalance))
	assert.Equal(t, int64(3), got.TotalAccounts)

	require.NoError(t, c.Invalidate(ctx, 1))
	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatisticsCacheExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewStatisticsCache(rdb, time.Minute)
	ctx := context.Background()

	_, err := c.Set(ctx, 2, 0, &models.Statistics{})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatisticsCacheSkipsWriteAfterInvalidate(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewStatisticsCache(rdb, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, 3)
	require.NoError(t, err)

	// a mutation commits while the stale value is being computed
	require.NoError(t, c.Invalidate(ctx, 3))

	stored, err := c.Set(ctx, 3, gen, &models.Statistics{TotalAccounts: 1})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("stats:3"))

	gen, err = c.Generation(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	stored, err = c.Set(ctx, 3, gen, &models.Statistics{TotalAccounts: 2})
	require.NoError(t, err)
	assert.True(t, stored)

	got, ok, err := c.Get(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.TotalAccounts)
}

func TestRedisTokenStore(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisTokenStore(rdb)
	ctx := context.Background()

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.SaveResetToken(ctx, "reset-token", 9, time.Hour))
	userID, err := s.ConsumeResetToken(ctx, "reset-token")
	require.NoError(t, err)
	assert.Equal(t, uint(9), userID)

	_, err = s.ConsumeResetToken(ctx, "reset-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryTokenStore(t *testing.T) {
	s := NewMemoryTokenStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Hour))
	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, err = s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.SaveResetToken(ctx, "expired", 3, time.Minute))
	now = now.Add(time.Hour)
	_, err = s.ConsumeResetToken(ctx, "expired")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, s.SaveResetToken(ctx, "fresh", 4, time.Minute))
	userID, err := s.ConsumeResetToken(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, uint(4), userID)
}
