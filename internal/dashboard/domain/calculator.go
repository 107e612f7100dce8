package domain

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidInput 请求参数不合法（股票代码、计算器输入）
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream 外部分析后端不可用或返回错误
	ErrUpstream = errors.New("upstream unavailable")
	// ErrNotFound 外部分析后端找不到该代码
	ErrNotFound = errors.New("not found")
)

var tickerPattern = regexp.MustCompile(`^[A-Z.\-]{1,10}$`)

// NormalizeTicker 去空白并转大写，格式不合法时返回 ErrInvalidInput
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerPattern.MatchString(t) {
		return "", errors.Join(ErrInvalidInput, errors.New("ticker must be 1-10 letters, dots or dashes"))
	}
	return t, nil
}

// CalculatorInputs 计算器输入：到期天数，利率与波动率为百分数
type CalculatorInputs struct {
	StockPrice   float64 `json:"stock_price"`
	Strike       float64 `json:"strike"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Volatility   float64 `json:"volatility"`
	OptionType   string  `json:"option_type"`
}

// DefaultCalculatorInputs 计算器初始值
func DefaultCalculatorInputs() CalculatorInputs {
	return CalculatorInputs{
		StockPrice:   100,
		Strike:       100,
		TimeToExpiry: 30,
		RiskFreeRate: 4.5,
		Volatility:   30,
		OptionType:   "call",
	}
}

// CalculatorGreeks 计算器展示的希腊字母
type CalculatorGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// CalculatorResult 计算器结果，价格两位小数、希腊字母四位小数
type CalculatorResult struct {
	TheoreticalPrice float64          `json:"theoretical_price"`
	Greeks           CalculatorGreeks `json:"greeks"`
}
