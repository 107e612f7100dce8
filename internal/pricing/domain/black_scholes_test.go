package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func contract(t OptionType, s, k, years, r, v float64) OptionContract {
	return OptionContract{
		Type:            t,
		UnderlyingPrice: s,
		StrikePrice:     k,
		TimeToExpiry:    years,
		RiskFreeRate:    r,
		Volatility:      v,
	}
}

func TestPriceKnownValues(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	cases := []struct {
		name   string
		c      OptionContract
		price  float64
		greeks Greeks
	}{
		{
			name:  "atm call 30 days",
			c:     contract(OptionTypeCall, 100, 100, 30.0/365, 0.045, 0.3),
			price: 3.6115602906039186,
			greeks: Greeks{
				Delta: 0.5342697035912677,
				Gamma: 0.04621344254477704,
				Theta: -0.06311710300885807,
				Vega:  0.11395095421999818,
				Rho:   0.04094417265905988,
			},
		},
		{
			name:  "atm put 30 days",
			c:     contract(OptionTypePut, 100, 100, 30.0/365, 0.045, 0.3),
			price: 3.2423804276496284,
			greeks: Greeks{
				Delta: -0.4657302964087323,
				Gamma: 0.04621344254477704,
				Theta: -0.05083385121114012,
				Vega:  0.11395095421999818,
				Rho:   -0.04094417265905988,
			},
		},
		{
			name:  "textbook call one year",
			c:     contract(OptionTypeCall, 100, 100, 1, 0.05, 0.2),
			price: 10.450583572185565,
			greeks: Greeks{
				Delta: 0.6368306511756191,
				Gamma: 0.018762017345846895,
				Theta: -0.01757267820941972,
				Vega:  0.3752403469169379,
				Rho:   0.5323248154537634,
			},
		},
		{
			name:  "textbook put one year",
			c:     contract(OptionTypePut, 100, 100, 1, 0.05, 0.2),
			price: 5.573526022256971,
			greeks: Greeks{
				Delta: 0.6368306511756191 - 1,
				Gamma: 0.018762017345846895,
				Theta: -0.004542138147766099,
				Vega:  0.3752403469169379,
				Rho:   -0.4189046090469506,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := p.Price(tc.c)
			require.NoError(t, err)
			assert.False(t, res.Degenerate)
			assert.Equal(t, ModelBlackScholes, res.Model)
			assert.InDelta(t, tc.price, res.TheoreticalPrice, tol)
			assert.InDelta(t, tc.greeks.Delta, res.Greeks.Delta, tol)
			assert.InDelta(t, tc.greeks.Gamma, res.Greeks.Gamma, tol)
			assert.InDelta(t, tc.greeks.Theta, res.Greeks.Theta, tol)
			assert.InDelta(t, tc.greeks.Vega, res.Greeks.Vega, tol)
			assert.InDelta(t, tc.greeks.Rho, res.Greeks.Rho, tol)
		})
	}
}

func TestOutOfTheMoneyCall(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	call, err := p.Price(contract(OptionTypeCall, 100, 110, 0.5, 0.03, 0.25))
	require.NoError(t, err)
	assert.InDelta(t, 3.8985511831850594, call.TheoreticalPrice, tol)
	assert.InDelta(t, 0.3572143879963756, call.Greeks.Delta, tol)

	put, err := p.Price(contract(OptionTypePut, 100, 110, 0.5, 0.03, 0.25))
	require.NoError(t, err)
	assert.InDelta(t, 12.260864539521961, put.TheoreticalPrice, tol)
}

func TestPutCallParity(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	for _, s := range []float64{50, 90, 100, 110, 250} {
		for _, k := range []float64{80, 100, 120} {
			for _, years := range []float64{1.0 / 365, 30.0 / 365, 0.5, 2} {
				for _, r := range []float64{-0.01, 0, 0.045} {
					for _, v := range []float64{0.05, 0.3, 1.2} {
						call, err := p.Price(contract(OptionTypeCall, s, k, years, r, v))
						require.NoError(t, err)
						put, err := p.Price(contract(OptionTypePut, s, k, years, r, v))
						require.NoError(t, err)

						want := s - k*math.Exp(-r*years)
						assert.InDelta(t, want, call.TheoreticalPrice-put.TheoreticalPrice, 1e-9,
							"S=%v K=%v T=%v r=%v v=%v", s, k, years, r, v)
					}
				}
			}
		}
	}
}

func TestGreekBounds(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	for _, s := range []float64{20, 95, 100, 105, 400} {
		for _, v := range []float64{0.01, 0.2, 0.8} {
			for _, years := range []float64{0.01, 0.25, 3} {
				call, err := p.Price(contract(OptionTypeCall, s, 100, years, 0.045, v))
				require.NoError(t, err)
				put, err := p.Price(contract(OptionTypePut, s, 100, years, 0.045, v))
				require.NoError(t, err)

				assert.GreaterOrEqual(t, call.Greeks.Delta, 0.0)
				assert.LessOrEqual(t, call.Greeks.Delta, 1.0)
				assert.GreaterOrEqual(t, put.Greeks.Delta, -1.0)
				assert.LessOrEqual(t, put.Greeks.Delta, 0.0)
				assert.GreaterOrEqual(t, call.Greeks.Gamma, 0.0)
				assert.GreaterOrEqual(t, call.Greeks.Vega, 0.0)
				assert.Equal(t, call.Greeks.Gamma, put.Greeks.Gamma)
				assert.Equal(t, call.Greeks.Vega, put.Greeks.Vega)
				assert.GreaterOrEqual(t, call.TheoreticalPrice, 0.0)
				assert.GreaterOrEqual(t, put.TheoreticalPrice, 0.0)
			}
		}
	}
}

func TestLimits(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	t.Run("volatility to zero approaches discounted intrinsic", func(t *testing.T) {
		res, err := p.Price(contract(OptionTypeCall, 110, 100, 1, 0.045, 1e-6))
		require.NoError(t, err)
		assert.InDelta(t, 110-100*math.Exp(-0.045), res.TheoreticalPrice, 1e-6)
		assert.InDelta(t, 14.400251816690002, res.TheoreticalPrice, 1e-6)

		put, err := p.Price(contract(OptionTypePut, 110, 100, 1, 0.045, 1e-6))
		require.NoError(t, err)
		assert.InDelta(t, 0, put.TheoreticalPrice, 1e-9)
	})

	t.Run("expiry to zero approaches intrinsic", func(t *testing.T) {
		res, err := p.Price(contract(OptionTypeCall, 110, 100, 1e-9, 0.045, 0.3))
		require.NoError(t, err)
		assert.InDelta(t, 10, res.TheoreticalPrice, 1e-6)

		put, err := p.Price(contract(OptionTypePut, 90, 100, 1e-9, 0.045, 0.3))
		require.NoError(t, err)
		assert.InDelta(t, 10, put.TheoreticalPrice, 1e-6)
	})
}

func TestDegenerateIntrinsicPolicy(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)

	cases := []struct {
		name string
		c    OptionContract
		want float64
	}{
		{"expired itm call", contract(OptionTypeCall, 110, 100, 0, 0.045, 0.3), 10},
		{"expired otm call", contract(OptionTypeCall, 90, 100, 0, 0.045, 0.3), 0},
		{"expired itm put", contract(OptionTypePut, 90, 100, 0, 0.045, 0.3), 10},
		{"zero vol call", contract(OptionTypeCall, 110, 100, 1, 0.045, 0), 110 - 100*math.Exp(-0.045)},
		{"zero vol put", contract(OptionTypePut, 90, 100, 1, 0.045, 0), 100*math.Exp(-0.045) - 90},
		{"zero vol otm put", contract(OptionTypePut, 110, 100, 1, 0.045, 0), 0},
		{"both zero", contract(OptionTypeCall, 120, 100, 0, 0.045, 0), 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := p.Price(tc.c)
			require.NoError(t, err)
			assert.True(t, res.Degenerate)
			assert.InDelta(t, tc.want, res.TheoreticalPrice, tol)
			assert.Equal(t, Greeks{}, res.Greeks)
		})
	}
}

func TestDegenerateRejectPolicy(t *testing.T) {
	p := NewPricer(DegenerateReject)

	_, err := p.Price(contract(OptionTypeCall, 110, 100, 0, 0.045, 0.3))
	require.ErrorIs(t, err, ErrInvalidParameter)
	var pe *ParameterError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "time_to_expiry", pe.Field)

	_, err = p.Price(contract(OptionTypePut, 110, 100, 1, 0.045, 0))
	require.ErrorIs(t, err, ErrInvalidParameter)
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "volatility", pe.Field)

	res, err := p.Price(contract(OptionTypeCall, 100, 100, 1, 0.05, 0.2))
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, res.TheoreticalPrice, tol)
}

func TestInvalidParameters(t *testing.T) {
	p := NewPricer(DegenerateIntrinsic)
	valid := contract(OptionTypeCall, 100, 100, 0.25, 0.045, 0.3)

	cases := []struct {
		name  string
		mut   func(c *OptionContract)
		field string
	}{
		{"negative strike", func(c *OptionContract) { c.StrikePrice = -10 }, "strike_price"},
		{"zero strike", func(c *OptionContract) { c.StrikePrice = 0 }, "strike_price"},
		{"zero spot", func(c *OptionContract) { c.UnderlyingPrice = 0 }, "underlying_price"},
		{"negative expiry", func(c *OptionContract) { c.TimeToExpiry = -1 }, "time_to_expiry"},
		{"negative vol", func(c *OptionContract) { c.Volatility = -0.1 }, "volatility"},
		{"nan rate", func(c *OptionContract) { c.RiskFreeRate = math.NaN() }, "risk_free_rate"},
		{"infinite spot", func(c *OptionContract) { c.UnderlyingPrice = math.Inf(1) }, "underlying_price"},
		{"unknown type", func(c *OptionContract) { c.Type = "straddle" }, "option_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mut(&c)
			res, err := p.Price(c)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrInvalidParameter)
			var pe *ParameterError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestParseOptionType(t *testing.T) {
	for in, want := range map[string]OptionType{
		"call": OptionTypeCall, "CALL": OptionTypeCall, " c ": OptionTypeCall,
		"put": OptionTypePut, "Put": OptionTypePut, "P": OptionTypePut,
	} {
		got, err := ParseOptionType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOptionType("butterfly")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseDegeneratePolicy(t *testing.T) {
	got, err := ParseDegeneratePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DegenerateIntrinsic, got)

	got, err = ParseDegeneratePolicy("Reject")
	require.NoError(t, err)
	assert.Equal(t, DegenerateReject, got)

	_, err = ParseDegeneratePolicy("nan")
	assert.Error(t, err)
}

func TestRounded(t *testing.T) {
	res, err := NewPricer(DegenerateIntrinsic).Price(contract(OptionTypeCall, 100, 100, DaysToYears(30), PercentToFraction(4.5), PercentToFraction(30)))
	require.NoError(t, err)

	r := res.Rounded(2, 4)
	assert.Equal(t, 3.61, r.TheoreticalPrice)
	assert.Equal(t, 0.5343, r.Greeks.Delta)
	assert.Equal(t, 0.0462, r.Greeks.Gamma)
	assert.Equal(t, -0.0631, r.Greeks.Theta)
	assert.Equal(t, 0.114, r.Greeks.Vega)
	assert.Equal(t, 0.0409, r.Greeks.Rho)

	// 原值不变
	assert.InDelta(t, 3.6115602906039186, res.TheoreticalPrice, tol)
}

func TestUnits(t *testing.T) {
	assert.InDelta(t, 30.0/365, DaysToYears(30), 1e-15)
	assert.InDelta(t, 0.045, PercentToFraction(4.5), 1e-15)
}
