package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// PricingQueryService 处理所有定价相关的查询操作（Queries）。
type PricingQueryService struct {
	pricer *domain.Pricer
	repo   domain.PricingRepository
}

// NewPricingQueryService 构造函数，repo 为 nil 时历史查询返回 ErrHistoryDisabled
func NewPricingQueryService(pricer *domain.Pricer, repo domain.PricingRepository) *PricingQueryService {
	return &PricingQueryService{
		pricer: pricer,
		repo:   repo,
	}
}

// GetGreeks 计算希腊字母，不写缓存和历史
func (s *PricingQueryService) GetGreeks(ctx context.Context, cmd PriceOptionCommand) (*domain.Greeks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract, err := cmd.ToContract()
	if err != nil {
		return nil, err
	}
	res, err := s.pricer.Price(contract)
	if err != nil {
		return nil, err
	}
	return &res.Greeks, nil
}

// GetLatestResult 获取某个标的最近一次定价记录
func (s *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	rec, err := s.repo.GetLatest(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get latest pricing result for %s: %w", symbol, err)
	}
	return rec, nil
}

// GetHistory 获取定价历史，按时间倒序
func (s *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	records, err := s.repo.GetHistory(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("get pricing history for %s: %w", symbol, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrResultNotFound
	}
	return records, nil
}
