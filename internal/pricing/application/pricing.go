package application

import (
	"context"

	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
	"github.com/wyfcoding/stocktracker/pkg/metrics"
)

// PricingService 定价门面服务。
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造函数。
func NewPricingService(
	pricer *domain.Pricer,
	repo domain.PricingRepository,
	cache domain.ResultCache,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	opts CommandOptions,
) *PricingService {
	return &PricingService{
		Command: NewPricingCommandService(pricer, repo, cache, publisher, m, opts),
		Query:   NewPricingQueryService(pricer, repo),
	}
}

// --- Command Facade ---

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PricingOutcome, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) CalculateBS(ctx context.Context, cmd CalculateBSCommand) (*domain.PricingResult, error) {
	return s.Command.CalculateBS(ctx, cmd)
}

func (s *PricingService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	return s.Command.BatchPriceOptions(ctx, cmd)
}

// --- Query Facade ---

func (s *PricingService) GetGreeks(ctx context.Context, cmd PriceOptionCommand) (*domain.Greeks, error) {
	return s.Query.GetGreeks(ctx, cmd)
}

func (s *PricingService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	return s.Query.GetLatestResult(ctx, symbol)
}

func (s *PricingService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	return s.Query.GetHistory(ctx, symbol, limit)
}
