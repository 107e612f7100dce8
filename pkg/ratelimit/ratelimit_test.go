package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiterBurstThenRefill(t *testing.T) {
	l := NewLocalRateLimiter()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	limit := Limit{Rate: 2, Period: time.Second, Burst: 3}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := l.Allow(ctx, "10.0.0.1", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)

	// other keys have their own bucket
	res, err = l.Allow(ctx, "10.0.0.2", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(500 * time.Millisecond)
	res, err = l.Allow(ctx, "10.0.0.1", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLocalRateLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewLocalRateLimiter()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	// 回满需要 10s
	slow := Limit{Rate: 1, Period: time.Second, Burst: 10}
	// 回满需要 2 分钟
	slower := Limit{Rate: 1, Period: time.Minute, Burst: 2}

	for i := 0; i < 10; i++ {
		_, err := l.Allow(ctx, "10.0.0.1", slow)
		require.NoError(t, err)
	}
	_, err := l.Allow(ctx, "10.0.0.2", slower)
	require.NoError(t, err)
	assert.Len(t, l.buckets, 2)

	now = now.Add(90 * time.Second)
	_, err = l.Allow(ctx, "10.0.0.3", slow)
	require.NoError(t, err)
	assert.NotContains(t, l.buckets, "10.0.0.1")
	assert.Contains(t, l.buckets, "10.0.0.2")
	assert.Contains(t, l.buckets, "10.0.0.3")

	// 被淘汰的 key 重新获得满桶
	res, err := l.Allow(ctx, "10.0.0.1", slow)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 9, res.Remaining)

	// 未到清理间隔时不清理
	now = now.Add(30 * time.Second)
	_, err = l.Allow(ctx, "10.0.0.4", slow)
	require.NoError(t, err)
	assert.Len(t, l.buckets, 4)

	now = now.Add(3 * time.Minute)
	_, err = l.Allow(ctx, "10.0.0.5", slow)
	require.NoError(t, err)
	assert.Len(t, l.buckets, 1)
}

func TestLocalRateLimiterRejectsInvalidLimit(t *testing.T) {
	_, err := NewLocalRateLimiter().Allow(context.Background(), "k", Limit{})
	assert.Error(t, err)
}
