package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/stocktracker/internal/pricing/domain"
)

// PricingResultModel 定价记录表，数值列用 decimal 字符串保存
type PricingResultModel struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	Symbol           string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_calc,priority:1;not null"`
	OptionType       string    `gorm:"column:option_type;type:varchar(8);not null"`
	UnderlyingPrice  string    `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	StrikePrice      string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	TimeToExpiry     string    `gorm:"column:time_to_expiry;type:decimal(32,18);not null"`
	RiskFreeRate     string    `gorm:"column:risk_free_rate;type:decimal(32,18);not null"`
	Volatility       string    `gorm:"column:volatility;type:decimal(32,18);not null"`
	TheoreticalPrice string    `gorm:"column:theoretical_price;type:decimal(32,18);not null"`
	Delta            string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma            string    `gorm:"column:gamma;type:decimal(32,18)"`
	Theta            string    `gorm:"column:theta;type:decimal(32,18)"`
	Vega             string    `gorm:"column:vega;type:decimal(32,18)"`
	Rho              string    `gorm:"column:rho;type:decimal(32,18)"`
	Degenerate       bool      `gorm:"column:degenerate"`
	CalculatedAt     int64     `gorm:"column:calculated_at;type:bigint;index:idx_symbol_calc,priority:2;not null"`
	PricingModel     string    `gorm:"column:pricing_model;type:varchar(32)"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

func dec(v float64) string { return decimal.NewFromFloat(v).String() }

func num(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func toPricingResultModel(rec *domain.PricingRecord) *PricingResultModel {
	if rec == nil {
		return nil
	}
	c, r := rec.Contract, rec.Result
	return &PricingResultModel{
		ID:               rec.ID,
		Symbol:           rec.Symbol,
		OptionType:       string(c.Type),
		UnderlyingPrice:  dec(c.UnderlyingPrice),
		StrikePrice:      dec(c.StrikePrice),
		TimeToExpiry:     dec(c.TimeToExpiry),
		RiskFreeRate:     dec(c.RiskFreeRate),
		Volatility:       dec(c.Volatility),
		TheoreticalPrice: dec(r.TheoreticalPrice),
		Delta:            dec(r.Greeks.Delta),
		Gamma:            dec(r.Greeks.Gamma),
		Theta:            dec(r.Greeks.Theta),
		Vega:             dec(r.Greeks.Vega),
		Rho:              dec(r.Greeks.Rho),
		Degenerate:       r.Degenerate,
		CalculatedAt:     rec.CalculatedAt,
		PricingModel:     rec.PricingModel,
	}
}

func toPricingRecord(m *PricingResultModel) *domain.PricingRecord {
	if m == nil {
		return nil
	}
	return &domain.PricingRecord{
		ID:     m.ID,
		Symbol: m.Symbol,
		Contract: domain.OptionContract{
			Symbol:          m.Symbol,
			Type:            domain.OptionType(m.OptionType),
			UnderlyingPrice: num(m.UnderlyingPrice),
			StrikePrice:     num(m.StrikePrice),
			TimeToExpiry:    num(m.TimeToExpiry),
			RiskFreeRate:    num(m.RiskFreeRate),
			Volatility:      num(m.Volatility),
		},
		Result: domain.PricingResult{
			TheoreticalPrice: num(m.TheoreticalPrice),
			Greeks: domain.Greeks{
				Delta: num(m.Delta),
				Gamma: num(m.Gamma),
				Theta: num(m.Theta),
				Vega:  num(m.Vega),
				Rho:   num(m.Rho),
			},
			Degenerate: m.Degenerate,
			Model:      m.PricingModel,
		},
		CalculatedAt: m.CalculatedAt,
		PricingModel: m.PricingModel,
	}
}
