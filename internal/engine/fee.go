package engine

import (
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
)

// FeeEngine turns an effective rate and broker terms into a total
// locate fee with a per-line-item breakdown.
type FeeEngine struct {
	daysInYear decimal.Decimal
}

// NewFeeEngine builds a fee engine with the given day-count convention
// (365 or 360).
func NewFeeEngine(daysInYear int) *FeeEngine {
	return &FeeEngine{daysInYear: decimal.NewFromInt(int64(daysInYear))}
}

var hundred = decimal.NewFromInt(100)

// Compute prices the locate. Line items round to 2 decimal places; the
// total is the exact sum of the rounded items so the breakdown always
// adds up.
func (e *FeeEngine) Compute(rate, positionValue decimal.Decimal, loanDays int, broker models.BrokerConfig) (decimal.Decimal, models.CalculationBreakdown) {
	days := decimal.NewFromInt(int64(loanDays))

	borrowCost := positionValue.Mul(rate).Mul(days).Div(e.daysInYear).Round(2)
	markup := borrowCost.Mul(broker.MarkupPercent).Div(hundred).Round(2)

	var txnFee decimal.Decimal
	switch broker.FeeType {
	case models.FeePercentage:
		txnFee = positionValue.Mul(broker.FeeAmount).Div(hundred).Round(2)
	default:
		txnFee = broker.FeeAmount.Round(2)
	}

	breakdown := models.CalculationBreakdown{
		BorrowCost:     borrowCost,
		Markup:         markup,
		TransactionFee: txnFee,
	}
	total := borrowCost.Add(markup).Add(txnFee)
	return total, breakdown
}
