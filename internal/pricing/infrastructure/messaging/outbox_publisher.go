// Package messaging 定价领域事件的 Outbox 发布与 Kafka 投递
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/db"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/mq"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	// StatusFailed 超过最大尝试次数，不再投递
	StatusFailed = "failed"
)

// OutboxMessage 待投递的事件
type OutboxMessage struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	EventType   string    `gorm:"type:varchar(100);index"`
	Topic       string    `gorm:"type:varchar(100)"`
	AggregateID string    `gorm:"type:varchar(64)"`
	Payload     string    `gorm:"type:text"`
	Status      string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts    int       `gorm:"default:0"`
	LastError   string    `gorm:"type:varchar(512)"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// AutoMigrate 创建 outbox 表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&OutboxMessage{})
}

// OutboxEventPublisher 实现 domain.EventPublisher，ctx 中带事务时与业务数据同事务写入
type OutboxEventPublisher struct {
	db *gorm.DB
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(gdb *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: gdb}
}

// Publish 写入 outbox
func (p *OutboxEventPublisher) Publish(ctx context.Context, topic string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	now := time.Now()
	msg := OutboxMessage{
		ID:          uuid.NewString(),
		EventType:   event.EventType(),
		Topic:       topic,
		AggregateID: event.AggregateID(),
		Payload:     string(payload),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return db.Conn(ctx, p.db).Create(&msg).Error
}

// Sender 消息发送方，*mq.KafkaProducer 实现了该接口
type Sender interface {
	Send(ctx context.Context, messages ...mq.Message) error
}

// RelayOptions 投递参数
type RelayOptions struct {
	// 单次投递条数
	BatchSize int
	// 最大尝试次数，达到后标记为 failed，0 表示不限制
	MaxAttempts int
	// 已投递消息保留时间，0 表示不清理
	Retention time.Duration
	// 清理间隔
	CleanupInterval time.Duration
}

// OutboxRelay 将 pending 消息投递到 Kafka，并定期清理已投递的消息
type OutboxRelay struct {
	db     *gorm.DB
	sender Sender
	opts   RelayOptions
	now    func() time.Time
}

// NewOutboxRelay 创建投递器
func NewOutboxRelay(gdb *gorm.DB, sender Sender, opts RelayOptions) *OutboxRelay {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	return &OutboxRelay{db: gdb, sender: sender, opts: opts, now: time.Now}
}

// ProcessOutboxMessages 投递一批 pending 消息，返回成功条数
func (r *OutboxRelay) ProcessOutboxMessages(ctx context.Context) (int, error) {
	var messages []OutboxMessage
	if err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(r.opts.BatchSize).
		Find(&messages).Error; err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	batch := make([]mq.Message, 0, len(messages))
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		batch = append(batch, mq.Message{
			Topic:   m.Topic,
			Key:     m.AggregateID,
			Value:   []byte(m.Payload),
			Headers: map[string]string{"event_type": m.EventType, "event_id": m.ID},
			Time:    m.CreatedAt,
		})
		ids = append(ids, m.ID)
	}

	if err := r.sender.Send(ctx, batch...); err != nil {
		lastErr := err.Error()
		if len(lastErr) > 512 {
			lastErr = lastErr[:512]
		}
		if uerr := r.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": lastErr,
				"updated_at": r.now(),
			}).Error; uerr != nil {
			logger.Error(ctx, "failed to record outbox attempt", "error", uerr)
		}
		r.deadLetter(ctx, ids)
		return 0, err
	}

	if err := r.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": StatusSent, "updated_at": r.now()}).Error; err != nil {
		return 0, err
	}
	return len(ids), nil
}

// deadLetter 将达到最大尝试次数的消息标记为 failed，不再阻塞后续消息
func (r *OutboxRelay) deadLetter(ctx context.Context, ids []string) {
	if r.opts.MaxAttempts <= 0 {
		return
	}
	res := r.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("id IN ? AND attempts >= ?", ids, r.opts.MaxAttempts).
		Updates(map[string]any{"status": StatusFailed, "updated_at": r.now()})
	if res.Error != nil {
		logger.Error(ctx, "failed to dead-letter outbox messages", "error", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		logger.Error(ctx, "outbox messages exceeded max attempts", "count", res.RowsAffected, "max_attempts", r.opts.MaxAttempts)
	}
}

// CleanupProcessedMessages 删除 before 之前已投递的消息，返回删除条数
func (r *OutboxRelay) CleanupProcessedMessages(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("status = ? AND updated_at < ?", StatusSent, before).Delete(&OutboxMessage{})
	return res.RowsAffected, res.Error
}

// Run 按 interval 投递、按 CleanupInterval 清理，直到 ctx 取消
func (r *OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(r.opts.CleanupInterval)
	defer cleanup.Stop()

	logger.Info(ctx, "outbox relay started", "interval", interval, "batch_size", r.opts.BatchSize, "retention", r.opts.Retention)
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			n, err := r.ProcessOutboxMessages(ctx)
			if err != nil {
				logger.Warn(ctx, "outbox relay batch failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug(ctx, "outbox messages relayed", "count", n)
			}
		case <-cleanup.C:
			if r.opts.Retention <= 0 {
				continue
			}
			n, err := r.CleanupProcessedMessages(ctx, r.now().Add(-r.opts.Retention))
			if err != nil {
				logger.Warn(ctx, "outbox cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "outbox messages cleaned up", "count", n)
			}
		}
	}
}
