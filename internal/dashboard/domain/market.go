// Package domain 行情看板的领域模型：行情、国会交易、新闻、个股分析、期权链与视图状态
package domain

// Mover 涨跌幅榜条目
type Mover struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

// MarketMovers 涨幅榜与跌幅榜
type MarketMovers struct {
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
}

// Clone 深拷贝
func (m MarketMovers) Clone() MarketMovers {
	return MarketMovers{
		Gainers: cloneSlice(m.Gainers),
		Losers:  cloneSlice(m.Losers),
	}
}

// CongressTrade 国会议员交易披露
type CongressTrade struct {
	Politician string `json:"politician"`
	Party      string `json:"party"`
	Ticker     string `json:"ticker"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
}

// NewsItem 新闻条目
type NewsItem struct {
	Title     string `json:"title"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Published string `json:"published,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// StockNews 个股新闻与情绪统计
type StockNews struct {
	News           []NewsItem `json:"news"`
	SentimentScore float64    `json:"sentiment_score"`
	PositiveCount  int        `json:"positive_count"`
	NegativeCount  int        `json:"negative_count"`
	NeutralCount   int        `json:"neutral_count"`
}

// MACD 指标
type MACD struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MovingAverages 均线
type MovingAverages struct {
	SMA20  float64 `json:"sma_20"`
	SMA50  float64 `json:"sma_50"`
	SMA200 float64 `json:"sma_200"`
}

// TechnicalAnalysis 技术面
type TechnicalAnalysis struct {
	Score          float64        `json:"score"`
	RSI            float64        `json:"rsi"`
	MACD           MACD           `json:"macd"`
	MovingAverages MovingAverages `json:"moving_averages"`
}

// FundamentalAnalysis 基本面；PE 与负债权益比可能缺失
type FundamentalAnalysis struct {
	Score        float64  `json:"score"`
	PERatio      *float64 `json:"pe_ratio"`
	ProfitMargin float64  `json:"profit_margin"`
	ROE          float64  `json:"roe"`
	DebtToEquity *float64 `json:"debt_to_equity"`
	MarketCap    float64  `json:"market_cap"`
}

// Prediction 蒙特卡洛价格预测
type Prediction struct {
	Median       float64 `json:"median"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile5  float64 `json:"percentile_5"`
	ProbProfit   float64 `json:"prob_profit"`
}

// Recommendation 交易建议
type Recommendation struct {
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	RiskReward float64 `json:"risk_reward"`
}

// StockAnalysis 个股综合分析
type StockAnalysis struct {
	Ticker         string                `json:"ticker"`
	Name           string                `json:"name"`
	CurrentPrice   float64               `json:"current_price"`
	Signal         string                `json:"signal"`
	SignalColor    string                `json:"signal_color"`
	Confidence     float64               `json:"confidence"`
	Fundamental    FundamentalAnalysis   `json:"fundamental"`
	Technical      TechnicalAnalysis     `json:"technical"`
	Recommendation Recommendation        `json:"recommendation"`
	Predictions    map[string]Prediction `json:"predictions"`
}

// OptionQuote 期权报价
type OptionQuote struct {
	ContractSymbol    string  `json:"contractSymbol"`
	Strike            float64 `json:"strike"`
	LastPrice         float64 `json:"lastPrice"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	Volume            float64 `json:"volume"`
	OpenInterest      float64 `json:"openInterest"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

// OptionsChain 最近到期日的期权链
type OptionsChain struct {
	Expiration string        `json:"expiration"`
	Calls      []OptionQuote `json:"calls"`
	Puts       []OptionQuote `json:"puts"`
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
