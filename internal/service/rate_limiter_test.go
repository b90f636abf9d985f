package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(newTestRedis(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i+1)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.False(t, allowed)

	// Another key is unaffected.
	allowed, err = limiter.Allow(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterRemaining(t *testing.T) {
	limiter := NewRateLimiter(newTestRedis(t))
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	_, err = limiter.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestTokenBlacklist(t *testing.T) {
	blacklist := NewTokenBlacklistService(newTestRedis(t))
	ctx := context.Background()

	listed, err := blacklist.IsTokenBlacklisted(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, blacklist.AddToken(ctx, "some-token", time.Minute))

	listed, err = blacklist.IsTokenBlacklisted(ctx, "some-token")
	require.NoError(t, err)
	assert.True(t, listed)

	listed, err = blacklist.IsTokenBlacklisted(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, listed)
}
