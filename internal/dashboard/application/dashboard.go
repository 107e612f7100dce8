// Package application 看板应用服务：并发聚合外部行情并通过定价服务计算期权
package application

import (
	"context"
	"time"

	"github.com/wyfcoding/stocktracker/internal/dashboard/domain"
	"github.com/wyfcoding/stocktracker/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// SearchResult 个股搜索结果
type SearchResult struct {
	Ticker   string                `json:"ticker"`
	Analysis *domain.StockAnalysis `json:"analysis"`
	News     *domain.StockNews     `json:"news"`
	Options  *domain.OptionsChain  `json:"options"`
}

// DashboardService 看板应用服务
type DashboardService struct {
	source domain.MarketDataSource
	calc   domain.OptionCalculator
}

// NewDashboardService 创建看板服务
func NewDashboardService(source domain.MarketDataSource, calc domain.OptionCalculator) *DashboardService {
	return &DashboardService{source: source, calc: calc}
}

// LoadDashboard 并发拉取四个行情源；单个数据源失败只记录在快照的 Errors 中
func (s *DashboardService) LoadDashboard(ctx context.Context) domain.ViewState {
	defer logger.LogDuration(ctx, "dashboard loaded")()

	// 每个数据源写自己的槽位，按固定顺序折叠，快照与完成顺序无关
	actions := make([]domain.Action, 4)
	loaders := []struct {
		feed string
		load func(ctx context.Context) (domain.Action, error)
	}{
		{domain.FeedPremarket, func(ctx context.Context) (domain.Action, error) {
			m, err := s.source.Premarket(ctx)
			if err != nil {
				return nil, err
			}
			return domain.MoversLoaded{Feed: domain.FeedPremarket, Movers: *m}, nil
		}},
		{domain.FeedLiveMarket, func(ctx context.Context) (domain.Action, error) {
			m, err := s.source.LiveMarket(ctx)
			if err != nil {
				return nil, err
			}
			return domain.MoversLoaded{Feed: domain.FeedLiveMarket, Movers: *m}, nil
		}},
		{domain.FeedCongressTrades, func(ctx context.Context) (domain.Action, error) {
			trades, err := s.source.CongressTrades(ctx)
			if err != nil {
				return nil, err
			}
			return domain.CongressTradesLoaded{Trades: trades}, nil
		}},
		{domain.FeedMarketNews, func(ctx context.Context) (domain.Action, error) {
			news, err := s.source.MarketNews(ctx)
			if err != nil {
				return nil, err
			}
			return domain.MarketNewsLoaded{News: news}, nil
		}},
	}

	var g errgroup.Group
	for i, l := range loaders {
		g.Go(func() error {
			a, err := l.load(ctx)
			if err != nil {
				logger.Warn(ctx, "dashboard feed failed", "feed", l.feed, "error", err)
				a = domain.RequestFailed{Feed: l.feed, Err: err.Error()}
			}
			actions[i] = a
			return nil
		})
	}
	_ = g.Wait()

	state := domain.NewViewState()
	for _, a := range actions {
		state = domain.Reduce(state, a)
	}
	return state
}

// Search 并发拉取个股分析、新闻与期权链，任一失败则整体失败
func (s *DashboardService) Search(ctx context.Context, rawTicker string) (*SearchResult, error) {
	ticker, err := domain.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &SearchResult{Ticker: ticker}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.source.Analyze(gctx, ticker)
		res.Analysis = a
		return err
	})
	g.Go(func() error {
		n, err := s.source.StockNews(gctx, ticker)
		res.News = n
		return err
	})
	g.Go(func() error {
		o, err := s.source.OptionsChain(gctx, ticker)
		res.Options = o
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn(ctx, "stock search failed", "ticker", ticker, "error", err)
		return nil, err
	}

	logger.Info(ctx, "stock search completed", "ticker", ticker, "duration", time.Since(start))
	return res, nil
}

// SearchState 在 state 上执行一次搜索，返回新的视图状态。
// 失败时错误记录在 Errors[FeedSearch] 中，同时返回 err 供调用方映射状态码
func (s *DashboardService) SearchState(ctx context.Context, state domain.ViewState, rawTicker string) (domain.ViewState, error) {
	state = domain.Reduce(state, domain.SetSearchTicker{Ticker: rawTicker})
	state = domain.Reduce(state, domain.SetLoading{Loading: true})

	res, err := s.Search(ctx, rawTicker)
	if err != nil {
		return domain.Reduce(state, domain.RequestFailed{Feed: domain.FeedSearch, Err: err.Error()}), err
	}
	return domain.Reduce(state, domain.SearchCompleted{
		Ticker:   res.Ticker,
		Analysis: *res.Analysis,
		News:     *res.News,
		Options:  *res.Options,
	}), nil
}

// CalculateState 切换到计算器页签并计算，结果或错误折叠进视图状态
func (s *DashboardService) CalculateState(ctx context.Context, state domain.ViewState, in domain.CalculatorInputs) (domain.ViewState, error) {
	state = domain.Reduce(state, domain.SelectTab{Tab: domain.TabCalculator})
	state = domain.Reduce(state, domain.CalculatorInputsChanged{Inputs: in})

	res, err := s.Calculate(ctx, in)
	if err != nil {
		return domain.Reduce(state, domain.RequestFailed{Feed: domain.FeedCalculator, Err: err.Error()}), err
	}
	return domain.Reduce(state, domain.CalculationCompleted{Result: *res}), nil
}

// Calculate 通过定价服务计算
func (s *DashboardService) Calculate(ctx context.Context, in domain.CalculatorInputs) (*domain.CalculatorResult, error) {
	return s.calc.Calculate(ctx, in)
}

// Premarket 盘前涨跌榜
func (s *DashboardService) Premarket(ctx context.Context) (*domain.MarketMovers, error) {
	return s.source.Premarket(ctx)
}

// LiveMarket 盘中涨跌榜
func (s *DashboardService) LiveMarket(ctx context.Context) (*domain.MarketMovers, error) {
	return s.source.LiveMarket(ctx)
}

// CongressTrades 国会交易
func (s *DashboardService) CongressTrades(ctx context.Context) ([]domain.CongressTrade, error) {
	return s.source.CongressTrades(ctx)
}

// MarketNews 市场新闻
func (s *DashboardService) MarketNews(ctx context.Context) ([]domain.NewsItem, error) {
	return s.source.MarketNews(ctx)
}

// Analyze 个股分析
func (s *DashboardService) Analyze(ctx context.Context, rawTicker string) (*domain.StockAnalysis, error) {
	ticker, err := domain.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.source.Analyze(ctx, ticker)
}

// StockNews 个股新闻
func (s *DashboardService) StockNews(ctx context.Context, rawTicker string) (*domain.StockNews, error) {
	ticker, err := domain.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.source.StockNews(ctx, ticker)
}

// OptionsChain 期权链
func (s *DashboardService) OptionsChain(ctx context.Context, rawTicker string) (*domain.OptionsChain, error) {
	ticker, err := domain.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.source.OptionsChain(ctx, ticker)
}
