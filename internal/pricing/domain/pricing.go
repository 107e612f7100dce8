package domain

import (
	"github.com/shopspring/decimal"
)

// Greeks 希腊字母
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"` // 每日
	Vega  float64 `json:"vega"`  // 每 1% 波动率
	Rho   float64 `json:"rho"`   // 每 1% 利率
}

// PricingResult 定价结果，值对象
type PricingResult struct {
	TheoreticalPrice float64 `json:"theoretical_price"`
	Greeks           Greeks  `json:"greeks"`
	// Degenerate 结果由退化策略给出（T=0 或 σ=0）
	Degenerate bool   `json:"degenerate"`
	Model      string `json:"model"`
}

// Rounded 返回按小数位四舍五入（远离零）后的副本，用于展示
func (r PricingResult) Rounded(priceDP, greekDP int32) PricingResult {
	r.TheoreticalPrice = round(r.TheoreticalPrice, priceDP)
	r.Greeks = Greeks{
		Delta: round(r.Greeks.Delta, greekDP),
		Gamma: round(r.Greeks.Gamma, greekDP),
		Theta: round(r.Greeks.Theta, greekDP),
		Vega:  round(r.Greeks.Vega, greekDP),
		Rho:   round(r.Greeks.Rho, greekDP),
	}
	return r
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// PricingRecord 定价审计记录
type PricingRecord struct {
	ID           uint           `json:"id"`
	Symbol       string         `json:"symbol"`
	Contract     OptionContract `json:"contract"`
	Result       PricingResult  `json:"result"`
	CalculatedAt int64          `json:"calculated_at"` // unix 毫秒
	PricingModel string         `json:"pricing_model"`
}
