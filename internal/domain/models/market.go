package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolatilitySample is one observation from the volatility stream.
type VolatilitySample struct {
	Ticker    string          `json:"ticker"`
	Timestamp time.Time       `json:"timestamp"`
	VolIndex  decimal.Decimal `json:"vol_index"`
	EventRisk int             `json:"event_risk"`
}

// QuotedRate is the raw borrow rate quoted by the upstream provider,
// as an annualized fraction (0.05 = 5%).
type QuotedRate struct {
	Ticker string          `json:"ticker"`
	Rate   decimal.Decimal `json:"rate"`
	AsOf   time.Time       `json:"as_of"`
}
