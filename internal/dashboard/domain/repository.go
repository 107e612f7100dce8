package domain

import "context"

// MarketDataSource 外部分析后端
type MarketDataSource interface {
	Premarket(ctx context.Context) (*MarketMovers, error)
	LiveMarket(ctx context.Context) (*MarketMovers, error)
	CongressTrades(ctx context.Context) ([]CongressTrade, error)
	MarketNews(ctx context.Context) ([]NewsItem, error)
	Analyze(ctx context.Context, ticker string) (*StockAnalysis, error)
	StockNews(ctx context.Context, ticker string) (*StockNews, error)
	OptionsChain(ctx context.Context, ticker string) (*OptionsChain, error)
}

// OptionCalculator 期权计算器，由定价服务提供
type OptionCalculator interface {
	Calculate(ctx context.Context, in CalculatorInputs) (*CalculatorResult, error)
}
