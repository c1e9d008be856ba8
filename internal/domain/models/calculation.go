package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source records where a resolved market-data value came from.
type Source string

const (
	SourceLive     Source = "LIVE"
	SourceCache    Source = "CACHE"
	SourceFallback Source = "FALLBACK"
)

// DataProvenance records, per input, whether it was served live, from
// cache, or from a fallback default.
type DataProvenance struct {
	Rate       Source `json:"rate"`
	Volatility Source `json:"volatility"`
	EventRisk  Source `json:"event_risk"`
}

// AnyFallback reports whether any input was resolved from fallback.
func (p DataProvenance) AnyFallback() bool {
	return p.Rate == SourceFallback || p.Volatility == SourceFallback || p.EventRisk == SourceFallback
}

// CalculationRequest is the validated input to the locate pipeline.
// It is never persisted.
type CalculationRequest struct {
	Ticker        string
	PositionValue decimal.Decimal
	LoanDays      int
	ClientID      string
}

// CalculationBreakdown itemizes the total fee.
type CalculationBreakdown struct {
	BorrowCost     decimal.Decimal `json:"borrow_cost"`
	Markup         decimal.Decimal `json:"markup"`
	TransactionFee decimal.Decimal `json:"transaction_fee"`
}

// CalculationResult is the outcome of one locate pricing run.
type CalculationResult struct {
	Ticker        string               `json:"ticker"`
	EffectiveRate decimal.Decimal      `json:"effective_rate"`
	Breakdown     CalculationBreakdown `json:"breakdown"`
	TotalFee      decimal.Decimal      `json:"total_fee"`
	Provenance    DataProvenance       `json:"provenance"`
	CalculatedAt  time.Time            `json:"calculated_at"`
}

// AuditRecord is the immutable row written once per completed
// calculation. Never mutated after Append.
type AuditRecord struct {
	ID            uuid.UUID            `json:"id"`
	Timestamp     time.Time            `json:"timestamp"`
	ClientID      string               `json:"client_id"`
	Ticker        string               `json:"ticker"`
	PositionValue decimal.Decimal      `json:"position_value"`
	LoanDays      int                  `json:"loan_days"`
	RateUsed      decimal.Decimal      `json:"rate_used"`
	TotalFee      decimal.Decimal      `json:"total_fee"`
	Provenance    DataProvenance       `json:"provenance"`
	Breakdown     CalculationBreakdown `json:"breakdown"`
}
