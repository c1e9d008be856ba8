package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
)

// MarketData abstracts the three upstream providers. Each call blocks
// until a value, a typed failure, or ctx expiry.
type MarketData interface {
	FetchRate(ctx context.Context, ticker string) (decimal.Decimal, error)
	FetchVolatility(ctx context.Context, ticker string) (decimal.Decimal, error)
	FetchEventRisk(ctx context.Context, ticker string) (int, error)
}

// ReferenceData reads stock and broker reference records.
type ReferenceData interface {
	GetStock(ctx context.Context, ticker string) (models.StockRef, bool, error)
	GetBroker(ctx context.Context, clientID string) (models.BrokerConfig, bool, error)
}

// AuditSink durably appends audit records. Append must succeed for a
// calculation to be reported as successful.
type AuditSink interface {
	Append(ctx context.Context, rec models.AuditRecord) (uuid.UUID, error)
}

// AuditQueryFilter filters ListAudits.
type AuditQueryFilter struct {
	Ticker   string
	ClientID string
	From     time.Time
	To       time.Time
	Limit    int
}

// AuditLog reads back persisted audit records.
type AuditLog interface {
	ListAudits(ctx context.Context, f AuditQueryFilter) ([]models.AuditRecord, error)
}

// AuditEvents publishes audit records to downstream consumers.
// Best-effort; failures are logged, never surfaced.
type AuditEvents interface {
	Publish(ctx context.Context, rec models.AuditRecord) error
}

// VolatilityStore persists and reads streamed volatility samples.
type VolatilityStore interface {
	Append(ctx context.Context, s models.VolatilitySample) error
	Latest(ctx context.Context, ticker string) (models.VolatilitySample, bool, error)
}

// Metrics records operational counters for the locate pipeline.
type Metrics interface {
	RecordCacheHit(kind, level string)
	RecordCacheMiss(kind string)
	RecordUpstreamCall(provider, result string)
	RecordFallback(input string)
	RecordBreakerState(breaker string, state int)
	RecordCalculation(result string)
	RecordLastRate(ticker string, rate float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
