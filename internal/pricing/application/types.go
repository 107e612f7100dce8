package application

import (
	"time"

	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
)

// PriceOptionCommand 期权定价命令，数值为领域单位（年、小数）
type PriceOptionCommand struct {
	Symbol          string  `json:"symbol"`
	OptionType      string  `json:"option_type"`
	UnderlyingPrice float64 `json:"underlying_price"`
	StrikePrice     float64 `json:"strike_price"`
	TimeToExpiry    float64 `json:"time_to_expiry"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	Volatility      float64 `json:"volatility"`
}

// ToContract 转换为领域合约，期权类型非法时返回 InvalidParameter
func (c PriceOptionCommand) ToContract() (domain.OptionContract, error) {
	typ, err := domain.ParseOptionType(c.OptionType)
	if err != nil {
		return domain.OptionContract{}, err
	}
	return domain.OptionContract{
		Symbol:          c.Symbol,
		Type:            typ,
		UnderlyingPrice: c.UnderlyingPrice,
		StrikePrice:     c.StrikePrice,
		TimeToExpiry:    c.TimeToExpiry,
		RiskFreeRate:    c.RiskFreeRate,
		Volatility:      c.Volatility,
	}, nil
}

// CalculateBSCommand 计算器命令：到期时间为天，利率和波动率为百分数
type CalculateBSCommand struct {
	StockPrice   float64 `json:"stock_price"`
	Strike       float64 `json:"strike"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Volatility   float64 `json:"volatility"`
	OptionType   string  `json:"option_type"`
}

// ToPriceOptionCommand 单位换算
func (c CalculateBSCommand) ToPriceOptionCommand() PriceOptionCommand {
	return PriceOptionCommand{
		OptionType:      c.OptionType,
		UnderlyingPrice: c.StockPrice,
		StrikePrice:     c.Strike,
		TimeToExpiry:    domain.DaysToYears(c.TimeToExpiry),
		RiskFreeRate:    domain.PercentToFraction(c.RiskFreeRate),
		Volatility:      domain.PercentToFraction(c.Volatility),
	}
}

// PricingOutcome 单次定价结果
type PricingOutcome struct {
	Contract     domain.OptionContract `json:"contract"`
	Result       domain.PricingResult  `json:"result"`
	Cached       bool                  `json:"cached"`
	CalculatedAt time.Time             `json:"calculated_at"`
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string               `json:"batch_id"`
	Contracts []PriceOptionCommand `json:"contracts"`
}

// BatchItemResult 批量中单个合约的结果，Outcome 与 Err 二选一
type BatchItemResult struct {
	Index   int
	Outcome *PricingOutcome
	Err     error
}

// BatchPricingResult 批量定价结果，Items 与输入顺序一致
type BatchPricingResult struct {
	BatchID      string
	Items        []BatchItemResult
	SuccessCount int
	FailureCount int
	AverageTime  float64 // 毫秒
}
