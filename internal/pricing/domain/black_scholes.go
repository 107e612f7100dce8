package domain

import (
	"fmt"
	"math"
	"strings"
)

// ModelBlackScholes 定价模型名称
const ModelBlackScholes = "BlackScholes"

// DegeneratePolicy 退化输入（T=0 或 σ=0）的处理策略
type DegeneratePolicy string

const (
	// DegenerateIntrinsic 返回极限值（内在价值），希腊字母全部为 0
	DegenerateIntrinsic DegeneratePolicy = "intrinsic"
	// DegenerateReject 直接拒绝
	DegenerateReject DegeneratePolicy = "reject"
)

// ParseDegeneratePolicy 解析策略，空字符串视为 intrinsic
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DegenerateIntrinsic:
		return DegenerateIntrinsic, nil
	case DegenerateReject:
		return DegenerateReject, nil
	default:
		return "", fmt.Errorf("unknown degenerate policy %q", s)
	}
}

// Pricer Black-Scholes-Merton 欧式期权定价器，无状态，可并发使用
type Pricer struct {
	policy DegeneratePolicy
}

// NewPricer 创建定价器
func NewPricer(policy DegeneratePolicy) *Pricer {
	if policy == "" {
		policy = DegenerateIntrinsic
	}
	return &Pricer{policy: policy}
}

// Policy 当前退化策略
func (p *Pricer) Policy() DegeneratePolicy { return p.policy }

// Price 计算理论价格和 Greeks。Theta 为每日值，Vega、Rho 为每 1 个百分点的变化
func (p *Pricer) Price(c OptionContract) (*PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sqrtT := math.Sqrt(c.TimeToExpiry)
	volSqrtT := c.Volatility * sqrtT
	if c.IsDegenerate() || volSqrtT == 0 {
		return p.priceDegenerate(c)
	}

	s, k, t, r, v := c.UnderlyingPrice, c.StrikePrice, c.TimeToExpiry, c.RiskFreeRate, c.Volatility
	d1 := (math.Log(s/k) + (r+0.5*v*v)*t) / volSqrtT
	d2 := d1 - volSqrtT
	discK := k * math.Exp(-r*t)
	pdf := normPdf(d1)

	res := &PricingResult{
		Model: ModelBlackScholes,
		Greeks: Greeks{
			Gamma: pdf / (s * volSqrtT),
			Vega:  s * pdf * sqrtT / 100,
		},
	}
	decay := -s * pdf * v / (2 * sqrtT)

	if c.Type == OptionTypeCall {
		res.TheoreticalPrice = s*normCdf(d1) - discK*normCdf(d2)
		res.Greeks.Delta = normCdf(d1)
		res.Greeks.Theta = (decay - r*discK*normCdf(d2)) / DaysPerYear
		res.Greeks.Rho = t * discK * normCdf(d2) / 100
	} else {
		res.TheoreticalPrice = discK*normCdf(-d2) - s*normCdf(-d1)
		res.Greeks.Delta = normCdf(d1) - 1
		res.Greeks.Theta = (decay + r*discK*normCdf(-d2)) / DaysPerYear
		res.Greeks.Rho = -t * discK * normCdf(-d2) / 100
	}
	// 深度价外时浮点相减可能出现 -1e-17 之类的负零头
	if res.TheoreticalPrice < 0 {
		res.TheoreticalPrice = 0
	}
	return res, nil
}

// priceDegenerate T=0 取内在价值；σ=0 取贴现后的内在价值（σ→0⁺ 的极限）
func (p *Pricer) priceDegenerate(c OptionContract) (*PricingResult, error) {
	if p.policy == DegenerateReject {
		if c.TimeToExpiry == 0 {
			return nil, NewParameterError("time_to_expiry", c.TimeToExpiry, "must be positive")
		}
		return nil, NewParameterError("volatility", c.Volatility, "must be positive")
	}

	strike := c.StrikePrice
	if c.TimeToExpiry > 0 {
		strike *= math.Exp(-c.RiskFreeRate * c.TimeToExpiry)
	}

	var value float64
	if c.Type == OptionTypeCall {
		value = math.Max(c.UnderlyingPrice-strike, 0)
	} else {
		value = math.Max(strike-c.UnderlyingPrice, 0)
	}
	return &PricingResult{
		TheoreticalPrice: value,
		Degenerate:       true,
		Model:            ModelBlackScholes,
	}, nil
}

// normCdf 标准正态分布累积分布函数
func normCdf(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPdf 标准正态分布概率密度函数
func normPdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
