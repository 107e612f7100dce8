// Package ratelimit 提供分布式（Redis）与本地（令牌桶）两种限流实现
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if the request is allowed for the given key and limit
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit defines the rate limit rule
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// RedisRateLimiter implements RateLimiter using Redis (GCRA)
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow checks if the request is allowed
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// sweepInterval 本地限流器清理空闲桶的最小间隔
const sweepInterval = time.Minute

// LocalRateLimiter 进程内令牌桶，每个 key 独立一个桶；未配置 Redis 时使用。
// 已回满的桶与新建桶等价，会被定期清理
type LocalRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	// 从空桶回满所需时间，空闲超过该时长即可淘汰
	fullAfter time.Duration
}

// NewLocalRateLimiter 创建本地限流器
func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow 检查是否允许请求
func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 || limit.Burst <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %+v", limit)
	}
	refillPerSec := float64(limit.Rate) / limit.Period.Seconds()
	maxTokens := float64(limit.Burst)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: maxTokens, lastRefill: now}
		l.buckets[key] = b
	}
	b.fullAfter = secondsToDuration(maxTokens / refillPerSec)
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(maxTokens, b.tokens+elapsed*refillPerSec)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return &Result{
			Allowed:    true,
			Remaining:  int(b.tokens),
			ResetAfter: secondsToDuration((maxTokens - b.tokens) / refillPerSec),
		}, nil
	}
	return &Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: secondsToDuration((1 - b.tokens) / refillPerSec),
		ResetAfter: secondsToDuration((maxTokens - b.tokens) / refillPerSec),
	}, nil
}

// sweep 删除已经回满的空闲桶，调用方需持有 l.mu
func (l *LocalRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= b.fullAfter {
			delete(l.buckets, key)
		}
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
