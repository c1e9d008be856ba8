package models

import "github.com/shopspring/decimal"

// BorrowTier classifies how hard a stock is to borrow.
type BorrowTier string

const (
	TierEasy   BorrowTier = "EASY"
	TierMedium BorrowTier = "MEDIUM"
	TierHard   BorrowTier = "HARD"
)

// Valid reports whether the tier is one of the known values.
func (t BorrowTier) Valid() bool {
	switch t {
	case TierEasy, TierMedium, TierHard:
		return true
	}
	return false
}

// StockRef is the reference record for a borrowable security.
type StockRef struct {
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name"`
	Tier          BorrowTier      `json:"tier"`
	MinBorrowRate decimal.Decimal `json:"min_borrow_rate"`
	LenderID      string          `json:"lender_id,omitempty"`
}

// FeeType selects how the per-transaction fee is computed.
type FeeType string

const (
	FeeFlat       FeeType = "FLAT"
	FeePercentage FeeType = "PERCENTAGE"
)

// BrokerConfig holds per-broker pricing terms.
type BrokerConfig struct {
	BrokerID      string          `json:"broker_id"`
	Name          string          `json:"name"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	FeeType       FeeType         `json:"fee_type"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	Active        bool            `json:"active"`
}
