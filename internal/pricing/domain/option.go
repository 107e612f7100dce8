// Package domain 期权定价服务的领域模型：合约、Black-Scholes 定价器、定价结果与领域事件
package domain

import (
	"math"
	"strings"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "call" // 看涨期权
	OptionTypePut  OptionType = "put"  // 看跌期权
)

// ParseOptionType 解析期权类型，大小写不敏感，支持 call/put/c/p
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionTypeCall, nil
	case "put", "p":
		return OptionTypePut, nil
	default:
		return "", NewParameterError("option_type", s, "must be call or put")
	}
}

// OptionContract 欧式期权合约，字段均为领域单位（年、小数）
type OptionContract struct {
	Symbol          string     `json:"symbol,omitempty"`
	Type            OptionType `json:"option_type"`
	UnderlyingPrice float64    `json:"underlying_price"` // S
	StrikePrice     float64    `json:"strike_price"`     // K
	TimeToExpiry    float64    `json:"time_to_expiry"`   // T，年
	RiskFreeRate    float64    `json:"risk_free_rate"`   // r
	Volatility      float64    `json:"volatility"`       // σ
}

// Validate 校验合约参数，返回的错误满足 errors.Is(err, ErrInvalidParameter)
func (c OptionContract) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"underlying_price", c.UnderlyingPrice},
		{"strike_price", c.StrikePrice},
		{"time_to_expiry", c.TimeToExpiry},
		{"risk_free_rate", c.RiskFreeRate},
		{"volatility", c.Volatility},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return NewParameterError(chk.field, chk.value, "must be a finite number")
		}
	}

	switch {
	case c.UnderlyingPrice <= 0:
		return NewParameterError("underlying_price", c.UnderlyingPrice, "must be positive")
	case c.StrikePrice <= 0:
		return NewParameterError("strike_price", c.StrikePrice, "must be positive")
	case c.TimeToExpiry < 0:
		return NewParameterError("time_to_expiry", c.TimeToExpiry, "must not be negative")
	case c.Volatility < 0:
		return NewParameterError("volatility", c.Volatility, "must not be negative")
	}

	if c.Type != OptionTypeCall && c.Type != OptionTypePut {
		return NewParameterError("option_type", string(c.Type), "must be call or put")
	}
	return nil
}

// IsDegenerate 到期时间或波动率为 0 时 d1/d2 无定义
func (c OptionContract) IsDegenerate() bool {
	return c.TimeToExpiry == 0 || c.Volatility == 0
}
