// Package redis 定价结果的 Redis 缓存
package redis

import (
	"context"
	"time"

	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/cache"
)

const resultPrefix = "pricing_result:"

// PricingResultCache 实现 domain.ResultCache，值以 JSON 保存
type PricingResultCache struct {
	cache *cache.RedisCache
}

// NewPricingResultCache 创建结果缓存
func NewPricingResultCache(c *cache.RedisCache) *PricingResultCache {
	return &PricingResultCache{cache: c.WithPrefix(resultPrefix)}
}

func (r *PricingResultCache) Get(ctx context.Context, key string) (*domain.PricingResult, bool, error) {
	var res domain.PricingResult
	ok, err := r.cache.GetJSON(ctx, key, &res)
	if err != nil || !ok {
		return nil, false, err
	}
	return &res, true, nil
}

func (r *PricingResultCache) Set(ctx context.Context, key string, result *domain.PricingResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	return r.cache.SetJSON(ctx, key, result, ttl)
}
