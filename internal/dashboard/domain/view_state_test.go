package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewStateDefaults(t *testing.T) {
	s := NewViewState()
	assert.Equal(t, TabDashboard, s.ActiveTab)
	assert.Equal(t, CalculatorInputs{StockPrice: 100, Strike: 100, TimeToExpiry: 30, RiskFreeRate: 4.5, Volatility: 30, OptionType: "call"}, s.Calculator)
	assert.NotNil(t, s.Premarket.Gainers)
	assert.NotNil(t, s.CongressTrades)
	assert.Nil(t, s.Errors)
	assert.False(t, s.Loading)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s0 := Reduce(NewViewState(), RequestFailed{Feed: FeedMarketNews, Err: "boom"})
	trades := []CongressTrade{{Politician: "A", Ticker: "AAPL"}}

	s1 := Reduce(s0, CongressTradesLoaded{Trades: trades})
	s2 := Reduce(s1, RequestFailed{Feed: FeedPremarket, Err: "timeout"})

	assert.Empty(t, s0.CongressTrades)
	assert.Equal(t, map[string]string{FeedMarketNews: "boom"}, s0.Errors)
	assert.Equal(t, map[string]string{FeedMarketNews: "boom"}, s1.Errors)
	assert.Equal(t, map[string]string{FeedMarketNews: "boom", FeedPremarket: "timeout"}, s2.Errors)

	trades[0].Ticker = "MSFT"
	assert.Equal(t, "AAPL", s1.CongressTrades[0].Ticker)
}

func TestReduceLoadedClearsFeedError(t *testing.T) {
	s := Reduce(NewViewState(), RequestFailed{Feed: FeedPremarket, Err: "down"})
	s = Reduce(s, MoversLoaded{Feed: FeedPremarket, Movers: MarketMovers{Gainers: []Mover{{Ticker: "NVDA", ChangePct: 5.2}}}})

	assert.Nil(t, s.Errors)
	require.Len(t, s.Premarket.Gainers, 1)
	assert.Equal(t, "NVDA", s.Premarket.Gainers[0].Ticker)
	assert.Empty(t, s.LiveMarket.Gainers)
}

func TestReduceUnknownMoversFeedIsIgnored(t *testing.T) {
	s := NewViewState()
	next := Reduce(s, MoversLoaded{Feed: "after_hours", Movers: MarketMovers{Gainers: []Mover{{Ticker: "X"}}}})
	assert.Equal(t, s, next)
}

func TestReduceSearchFlow(t *testing.T) {
	s := Reduce(NewViewState(), SetSearchTicker{Ticker: "aapl"})
	s = Reduce(s, SetLoading{Loading: true})
	assert.True(t, s.Loading)

	analysis := StockAnalysis{Ticker: "AAPL", Predictions: map[string]Prediction{"30_days": {Median: 190}}}
	s = Reduce(s, SearchCompleted{
		Ticker:   "AAPL",
		Analysis: analysis,
		News:     StockNews{News: []NewsItem{{Title: "t"}}, PositiveCount: 1},
		Options:  OptionsChain{Expiration: "2026-11-20", Calls: []OptionQuote{{Strike: 200}}},
	})

	assert.Equal(t, TabAnalysis, s.ActiveTab)
	assert.False(t, s.Loading)
	assert.Equal(t, "AAPL", s.SearchTicker)
	require.NotNil(t, s.Analysis)
	require.NotNil(t, s.Options)
	assert.Equal(t, 200.0, s.Options.Calls[0].Strike)

	analysis.Predictions["30_days"] = Prediction{Median: 1}
	assert.Equal(t, 190.0, s.Analysis.Predictions["30_days"].Median)
}

func TestReduceSearchFailureStopsLoading(t *testing.T) {
	s := Reduce(NewViewState(), SetLoading{Loading: true})
	s = Reduce(s, RequestFailed{Feed: FeedSearch, Err: "not found"})
	assert.False(t, s.Loading)
	assert.Equal(t, "not found", s.Errors[FeedSearch])
	assert.Equal(t, TabDashboard, s.ActiveTab)
}

func TestReduceCalculator(t *testing.T) {
	in := DefaultCalculatorInputs()
	in.OptionType = "put"
	s := Reduce(NewViewState(), SelectTab{Tab: TabCalculator})
	s = Reduce(s, CalculatorInputsChanged{Inputs: in})
	s = Reduce(s, CalculationCompleted{Result: CalculatorResult{TheoreticalPrice: 3.24}})

	assert.Equal(t, TabCalculator, s.ActiveTab)
	assert.Equal(t, "put", s.Calculator.OptionType)
	require.NotNil(t, s.CalculatorResult)
	assert.Equal(t, 3.24, s.CalculatorResult.TheoreticalPrice)
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{" aapl ", "AAPL", false},
		{"brk.b", "BRK.B", false},
		{"BF-B", "BF-B", false},
		{"", "", true},
		{"AAPL1", "", true},
		{"ABCDEFGHIJK", "", true},
		{"A B", "", true},
		{"../etc", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeTicker(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidInput, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
