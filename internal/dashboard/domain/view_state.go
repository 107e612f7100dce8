package domain

import "maps"

// Tab 页签
type Tab string

const (
	TabDashboard  Tab = "dashboard"
	TabAnalysis   Tab = "analysis"
	TabCalculator Tab = "calculator"
)

// 数据源名称，用作 ViewState.Errors 的键
const (
	FeedPremarket      = "premarket"
	FeedLiveMarket     = "live_market"
	FeedCongressTrades = "congress_trades"
	FeedMarketNews     = "market_news"
	FeedSearch         = "search"
	FeedCalculator     = "calculator"
)

// ViewState 看板视图状态快照。只能通过 Reduce 产生新值
type ViewState struct {
	ActiveTab        Tab               `json:"active_tab"`
	Premarket        MarketMovers      `json:"premarket"`
	LiveMarket       MarketMovers      `json:"live_market"`
	CongressTrades   []CongressTrade   `json:"congress_trades"`
	MarketNews       []NewsItem        `json:"market_news"`
	SearchTicker     string            `json:"search_ticker"`
	Analysis         *StockAnalysis    `json:"analysis,omitempty"`
	StockNews        *StockNews        `json:"stock_news,omitempty"`
	Options          *OptionsChain     `json:"options,omitempty"`
	Calculator       CalculatorInputs  `json:"calculator"`
	CalculatorResult *CalculatorResult `json:"calculator_result,omitempty"`
	Loading          bool              `json:"loading"`
	Errors           map[string]string `json:"errors,omitempty"`
}

// NewViewState 初始状态
func NewViewState() ViewState {
	return ViewState{
		ActiveTab:      TabDashboard,
		Premarket:      MarketMovers{Gainers: []Mover{}, Losers: []Mover{}},
		LiveMarket:     MarketMovers{Gainers: []Mover{}, Losers: []Mover{}},
		CongressTrades: []CongressTrade{},
		MarketNews:     []NewsItem{},
		Calculator:     DefaultCalculatorInputs(),
	}
}

// Action 状态变更事件
type Action interface {
	action()
}

// SelectTab 切换页签
type SelectTab struct{ Tab Tab }

// SetSearchTicker 更新搜索框
type SetSearchTicker struct{ Ticker string }

// MoversLoaded 涨跌榜加载完成，Feed 为 FeedPremarket 或 FeedLiveMarket
type MoversLoaded struct {
	Feed   string
	Movers MarketMovers
}

// CongressTradesLoaded 国会交易加载完成
type CongressTradesLoaded struct{ Trades []CongressTrade }

// MarketNewsLoaded 市场新闻加载完成
type MarketNewsLoaded struct{ News []NewsItem }

// SearchCompleted 个股搜索完成，切到分析页
type SearchCompleted struct {
	Ticker   string
	Analysis StockAnalysis
	News     StockNews
	Options  OptionsChain
}

// CalculatorInputsChanged 计算器输入变更
type CalculatorInputsChanged struct{ Inputs CalculatorInputs }

// CalculationCompleted 计算完成
type CalculationCompleted struct{ Result CalculatorResult }

// RequestFailed 某个数据源请求失败
type RequestFailed struct {
	Feed string
	Err  string
}

// SetLoading 加载标志
type SetLoading struct{ Loading bool }

func (SelectTab) action()               {}
func (SetSearchTicker) action()         {}
func (MoversLoaded) action()            {}
func (CongressTradesLoaded) action()    {}
func (MarketNewsLoaded) action()        {}
func (SearchCompleted) action()         {}
func (CalculatorInputsChanged) action() {}
func (CalculationCompleted) action()    {}
func (RequestFailed) action()           {}
func (SetLoading) action()              {}

// Reduce 纯函数：返回应用 action 之后的新状态，不修改 s 及 action 持有的数据
func Reduce(s ViewState, a Action) ViewState {
	next := s
	next.Errors = maps.Clone(s.Errors)

	switch act := a.(type) {
	case SelectTab:
		next.ActiveTab = act.Tab
	case SetSearchTicker:
		next.SearchTicker = act.Ticker
	case MoversLoaded:
		switch act.Feed {
		case FeedPremarket:
			next.Premarket = act.Movers.Clone()
		case FeedLiveMarket:
			next.LiveMarket = act.Movers.Clone()
		default:
			return s
		}
		next.clearError(act.Feed)
	case CongressTradesLoaded:
		next.CongressTrades = nonNil(cloneSlice(act.Trades))
		next.clearError(FeedCongressTrades)
	case MarketNewsLoaded:
		next.MarketNews = nonNil(cloneSlice(act.News))
		next.clearError(FeedMarketNews)
	case SearchCompleted:
		analysis := act.Analysis
		analysis.Predictions = maps.Clone(act.Analysis.Predictions)
		news := act.News
		news.News = cloneSlice(act.News.News)
		options := act.Options
		options.Calls = cloneSlice(act.Options.Calls)
		options.Puts = cloneSlice(act.Options.Puts)

		next.SearchTicker = act.Ticker
		next.Analysis = &analysis
		next.StockNews = &news
		next.Options = &options
		next.ActiveTab = TabAnalysis
		next.Loading = false
		next.clearError(FeedSearch)
	case CalculatorInputsChanged:
		next.Calculator = act.Inputs
	case CalculationCompleted:
		result := act.Result
		next.CalculatorResult = &result
		next.clearError(FeedCalculator)
	case RequestFailed:
		if next.Errors == nil {
			next.Errors = make(map[string]string, 1)
		}
		next.Errors[act.Feed] = act.Err
		if act.Feed == FeedSearch {
			next.Loading = false
		}
	case SetLoading:
		next.Loading = act.Loading
	default:
		return s
	}
	return next
}

func (s *ViewState) clearError(feed string) {
	delete(s.Errors, feed)
	if len(s.Errors) == 0 {
		s.Errors = nil
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
