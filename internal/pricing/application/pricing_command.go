package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// CommandOptions 命令服务参数
type CommandOptions struct {
	// 结果缓存时间，0 表示不缓存
	CacheTTL time.Duration
	// 批量定价并发度
	BatchConcurrency int
	// 单批最大合约数，0 表示不限制
	BatchMaxSize int
	// 计算器接口的展示精度
	PriceDecimals int32
	GreekDecimals int32
	// 事件主题
	EventTopic string
}

// PricingCommandService 处理定价相关的命令操作。
// 缓存、历史和事件都是可选的旁路，失败只记录日志，不影响定价结果
type PricingCommandService struct {
	pricer    *domain.Pricer
	repo      domain.PricingRepository
	cache     domain.ResultCache
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	opts      CommandOptions
	now       func() time.Time
}

// NewPricingCommandService 创建新的 PricingCommandService 实例，repo/cache/publisher 均可为 nil
func NewPricingCommandService(
	pricer *domain.Pricer,
	repo domain.PricingRepository,
	cache domain.ResultCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	opts CommandOptions,
) *PricingCommandService {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 1
	}
	return &PricingCommandService{
		pricer:    pricer,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// PriceOption 期权定价
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PricingOutcome, error) {
	start := time.Now()

	contract, err := cmd.ToContract()
	if err == nil {
		err = contract.Validate()
	}
	if err != nil {
		c.metrics.RecordPricing("unknown", "invalid", time.Since(start))
		c.publishFailure(ctx, cmd, err)
		return nil, err
	}

	key := cacheKey(c.pricer.Policy(), contract)
	if cached, ok := c.lookupCache(ctx, key); ok {
		c.metrics.RecordPricing(string(contract.Type), "cached", time.Since(start))
		return &PricingOutcome{Contract: contract, Result: *cached, Cached: true, CalculatedAt: c.now()}, nil
	}

	result, err := c.pricer.Price(contract)
	if err != nil {
		c.metrics.RecordPricing(string(contract.Type), "invalid", time.Since(start))
		c.publishFailure(ctx, cmd, err)
		return nil, err
	}

	outcome := "success"
	if result.Degenerate {
		outcome = "degenerate"
	}
	c.metrics.RecordPricing(string(contract.Type), outcome, time.Since(start))

	calculatedAt := c.now()
	if c.cache != nil && c.opts.CacheTTL > 0 {
		if err := c.cache.Set(ctx, key, result, c.opts.CacheTTL); err != nil {
			logger.Warn(ctx, "pricing cache write failed", "key", key, "error", err)
		}
	}
	c.recordHistory(ctx, contract, *result, calculatedAt)

	return &PricingOutcome{Contract: contract, Result: *result, CalculatedAt: calculatedAt}, nil
}

// CalculateBS 计算器接口：天、百分数输入，按配置精度四舍五入
func (c *PricingCommandService) CalculateBS(ctx context.Context, cmd CalculateBSCommand) (*domain.PricingResult, error) {
	out, err := c.PriceOption(ctx, cmd.ToPriceOptionCommand())
	if err != nil {
		return nil, err
	}
	rounded := out.Result.Rounded(c.opts.PriceDecimals, c.opts.GreekDecimals)
	return &rounded, nil
}

// BatchPriceOptions 批量定价，单个合约失败不影响其他合约
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	n := len(cmd.Contracts)
	if n == 0 {
		return nil, domain.NewParameterError("contracts", n, "must not be empty")
	}
	if c.opts.BatchMaxSize > 0 && n > c.opts.BatchMaxSize {
		return nil, domain.NewParameterError("contracts", n, fmt.Sprintf("at most %d contracts per batch", c.opts.BatchMaxSize))
	}
	if cmd.BatchID == "" {
		cmd.BatchID = uuid.NewString()
	}

	items := make([]BatchItemResult, n)
	elapsed := make([]time.Duration, n)

	var g errgroup.Group
	g.SetLimit(c.opts.BatchConcurrency)
	for i, item := range cmd.Contracts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i] = BatchItemResult{Index: i, Err: err}
				return nil
			}
			start := time.Now()
			out, err := c.PriceOption(ctx, item)
			elapsed[i] = time.Since(start)
			items[i] = BatchItemResult{Index: i, Outcome: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &BatchPricingResult{BatchID: cmd.BatchID, Items: items}
	var total time.Duration
	for i, item := range items {
		total += elapsed[i]
		if item.Err != nil {
			res.FailureCount++
		} else {
			res.SuccessCount++
		}
	}
	res.AverageTime = float64(total) / float64(n) / float64(time.Millisecond)

	logger.Info(ctx, "batch pricing completed",
		"batch_id", res.BatchID,
		"total", n,
		"success", res.SuccessCount,
		"failure", res.FailureCount,
	)

	if c.publisher != nil {
		now := c.now()
		event := domain.BatchPricingCompletedEvent{
			BatchID:        res.BatchID,
			Symbols:        extractSymbols(cmd.Contracts),
			TotalContracts: n,
			SuccessCount:   res.SuccessCount,
			FailureCount:   res.FailureCount,
			AverageTime:    res.AverageTime,
			CompletedAt:    now.UnixMilli(),
			OccurredOn:     now,
		}
		if err := c.publisher.Publish(ctx, c.opts.EventTopic, event); err != nil {
			logger.Warn(ctx, "failed to publish batch pricing event", "batch_id", res.BatchID, "error", err)
		}
	}
	return res, nil
}

func (c *PricingCommandService) lookupCache(ctx context.Context, key string) (*domain.PricingResult, bool) {
	if c.cache == nil || c.opts.CacheTTL <= 0 {
		return nil, false
	}
	res, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "pricing cache read failed", "key", key, "error", err)
		return nil, false
	}
	c.metrics.RecordCacheLookup(ok)
	return res, ok
}

// recordHistory 在同一事务中保存审计记录并写入 outbox 事件
func (c *PricingCommandService) recordHistory(ctx context.Context, contract domain.OptionContract, result domain.PricingResult, at time.Time) {
	event := domain.NewOptionPricedEvent(contract, result, at)

	if c.repo == nil {
		if c.publisher != nil {
			if err := c.publisher.Publish(ctx, c.opts.EventTopic, event); err != nil {
				logger.Warn(ctx, "failed to publish option priced event", "error", err)
			}
		}
		return
	}

	record := &domain.PricingRecord{
		Symbol:       contract.Symbol,
		Contract:     contract,
		Result:       result,
		CalculatedAt: at.UnixMilli(),
		PricingModel: result.Model,
	}
	err := c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.Save(txCtx, record); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.Publish(txCtx, c.opts.EventTopic, event)
	})
	if err != nil {
		logger.Error(ctx, "pricing_history_write_failed", "symbol", contract.Symbol, "error", err)
	}
}

func (c *PricingCommandService) publishFailure(ctx context.Context, cmd PriceOptionCommand, cause error) {
	if c.publisher == nil {
		return
	}
	now := c.now()
	event := domain.PricingFailedEvent{
		Symbol:     cmd.Symbol,
		OptionType: domain.OptionType(strings.ToLower(cmd.OptionType)),
		Error:      cause.Error(),
		ErrorCode:  "INVALID_PARAMETER",
		OccurredAt: now.UnixMilli(),
		OccurredOn: now,
	}
	var pe *domain.ParameterError
	if errors.As(cause, &pe) {
		event.Field = pe.Field
	}
	if err := c.publisher.Publish(ctx, c.opts.EventTopic, event); err != nil {
		logger.Warn(ctx, "failed to publish pricing failed event", "error", err)
	}
}

// cacheKey 合约的规范编码，包含退化策略，结果与 symbol 无关
func cacheKey(policy domain.DegeneratePolicy, c domain.OptionContract) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strings.Join([]string{
		"bs", string(policy), string(c.Type),
		f(c.UnderlyingPrice), f(c.StrikePrice), f(c.TimeToExpiry), f(c.RiskFreeRate), f(c.Volatility),
	}, ":")
}

// extractSymbols 提取去重后的合约代码
func extractSymbols(contracts []PriceOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)

	for _, contract := range contracts {
		if contract.Symbol == "" || seen[contract.Symbol] {
			continue
		}
		symbols = append(symbols, contract.Symbol)
		seen[contract.Symbol] = true
	}
	return symbols
}
