package domain

import "time"

const (
	OptionPricedEventType          = "OptionPriced"
	PricingFailedEventType         = "PricingFailed"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// Event 领域事件
type Event interface {
	EventType() string
	AggregateID() string
}

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol           string     `json:"symbol"`
	OptionType       OptionType `json:"option_type"`
	UnderlyingPrice  float64    `json:"underlying_price"`
	StrikePrice      float64    `json:"strike_price"`
	TimeToExpiry     float64    `json:"time_to_expiry"`
	RiskFreeRate     float64    `json:"risk_free_rate"`
	Volatility       float64    `json:"volatility"`
	TheoreticalPrice float64    `json:"theoretical_price"`
	Greeks           Greeks     `json:"greeks"`
	Degenerate       bool       `json:"degenerate"`
	PricingModel     string     `json:"pricing_model"`
	CalculatedAt     int64      `json:"calculated_at"`
	OccurredOn       time.Time  `json:"occurred_on"`
}

func (e OptionPricedEvent) EventType() string   { return OptionPricedEventType }
func (e OptionPricedEvent) AggregateID() string { return e.Symbol }

// NewOptionPricedEvent 由合约与结果构造事件
func NewOptionPricedEvent(c OptionContract, r PricingResult, at time.Time) OptionPricedEvent {
	return OptionPricedEvent{
		Symbol:           c.Symbol,
		OptionType:       c.Type,
		UnderlyingPrice:  c.UnderlyingPrice,
		StrikePrice:      c.StrikePrice,
		TimeToExpiry:     c.TimeToExpiry,
		RiskFreeRate:     c.RiskFreeRate,
		Volatility:       c.Volatility,
		TheoreticalPrice: r.TheoreticalPrice,
		Greeks:           r.Greeks,
		Degenerate:       r.Degenerate,
		PricingModel:     r.Model,
		CalculatedAt:     at.UnixMilli(),
		OccurredOn:       at,
	}
}

// PricingFailedEvent 定价失败事件
type PricingFailedEvent struct {
	Symbol     string     `json:"symbol"`
	OptionType OptionType `json:"option_type"`
	Field      string     `json:"field,omitempty"`
	Error      string     `json:"error"`
	ErrorCode  string     `json:"error_code"`
	OccurredAt int64      `json:"occurred_at"`
	OccurredOn time.Time  `json:"occurred_on"`
}

func (e PricingFailedEvent) EventType() string   { return PricingFailedEventType }
func (e PricingFailedEvent) AggregateID() string { return e.Symbol }

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	Symbols        []string  `json:"symbols"`
	TotalContracts int       `json:"total_contracts"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	AverageTime    float64   `json:"average_time"` // 毫秒
	CompletedAt    int64     `json:"completed_at"`
	OccurredOn     time.Time `json:"occurred_on"`
}

func (e BatchPricingCompletedEvent) EventType() string   { return BatchPricingCompletedEventType }
func (e BatchPricingCompletedEvent) AggregateID() string { return e.BatchID }
