package engine

import (
	"github.com/shopspring/decimal"
)

// RateInputs are the resolved market-data values feeding the rate curve.
type RateInputs struct {
	QuotedRate decimal.Decimal
	MinRate    decimal.Decimal
	VolIndex   decimal.Decimal
	EventRisk  int
}

// RateModel maps resolved inputs to an effective annualized borrow rate.
// The exact curve is pluggable so it can be swapped without touching the
// surrounding pipeline.
type RateModel interface {
	EffectiveRate(in RateInputs) decimal.Decimal
}

// MultiplicativeModel scales the base rate by volatility and event-risk
// adjustments:
//
//	base   = max(quoted, min_rate)
//	scaled = base × (1 + vol_factor × vol_index) × (1 + event_factor × event_risk)
//
// The result is rounded to 4 decimal places and never falls below the
// stock's minimum borrow rate.
type MultiplicativeModel struct {
	VolatilityFactor decimal.Decimal
	EventRiskFactor  decimal.Decimal
}

// NewMultiplicativeModel builds the default rate curve.
func NewMultiplicativeModel(volFactor, eventFactor decimal.Decimal) *MultiplicativeModel {
	return &MultiplicativeModel{
		VolatilityFactor: volFactor,
		EventRiskFactor:  eventFactor,
	}
}

var one = decimal.NewFromInt(1)

// EffectiveRate computes the effective annualized borrow rate.
func (m *MultiplicativeModel) EffectiveRate(in RateInputs) decimal.Decimal {
	base := in.QuotedRate
	if base.LessThan(in.MinRate) {
		base = in.MinRate
	}

	volAdj := one.Add(m.VolatilityFactor.Mul(in.VolIndex))
	eventAdj := one.Add(m.EventRiskFactor.Mul(decimal.NewFromInt(int64(in.EventRisk))))

	rate := base.Mul(volAdj).Mul(eventAdj).Round(4)
	if rate.LessThan(in.MinRate) {
		rate = in.MinRate
	}
	return rate
}
