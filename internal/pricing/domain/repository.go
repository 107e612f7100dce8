package domain

import (
	"context"
	"time"
)

// PricingRepository 定价历史仓储接口
type PricingRepository interface {
	// Save 保存一条定价记录，ctx 中携带事务时在事务内执行
	Save(ctx context.Context, record *PricingRecord) error
	GetLatest(ctx context.Context, symbol string) (*PricingRecord, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingRecord, error)
	// WithTx 在同一个数据库事务中执行 fn
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ResultCache 定价结果缓存
type ResultCache interface {
	Get(ctx context.Context, key string) (*PricingResult, bool, error)
	Set(ctx context.Context, key string, result *PricingResult, ttl time.Duration) error
}

// EventPublisher 事件发布者接口；传入事务 ctx 时写入同一事务的 outbox
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}
