package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/pkg/cache"
	applogger "BorrowDesk/pkg/logger"
)

type countingRefs struct {
	stockCalls  int
	brokerCalls int
	stocks      map[string]models.StockRef
	brokers     map[string]models.BrokerConfig
}

func (f *countingRefs) GetStock(_ context.Context, ticker string) (models.StockRef, bool, error) {
	f.stockCalls++
	s, ok := f.stocks[ticker]
	return s, ok, nil
}

func (f *countingRefs) GetBroker(_ context.Context, clientID string) (models.BrokerConfig, bool, error) {
	f.brokerCalls++
	b, ok := f.brokers[clientID]
	return b, ok, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit(kind, level string)            {}
func (nopMetrics) RecordCacheMiss(kind string)                  {}
func (nopMetrics) RecordUpstreamCall(provider, result string)   {}
func (nopMetrics) RecordFallback(input string)                  {}
func (nopMetrics) RecordBreakerState(breaker string, state int) {}
func (nopMetrics) RecordCalculation(result string)              {}
func (nopMetrics) RecordLastRate(ticker string, rate float64)   {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}

func newCachedRefs(t *testing.T) (*CachedReference, *countingRefs) {
	t.Helper()
	src := &countingRefs{
		stocks: map[string]models.StockRef{
			"AAPL": {
				Ticker:        "AAPL",
				Name:          "Apple Inc.",
				Tier:          models.TierEasy,
				MinBorrowRate: decimal.RequireFromString("0.0025"),
			},
		},
		brokers: map[string]models.BrokerConfig{
			"BRK-1": {
				BrokerID:      "BRK-1",
				MarkupPercent: decimal.RequireFromString("5.0"),
				FeeType:       models.FeeFlat,
				FeeAmount:     decimal.RequireFromString("25.00"),
				Active:        true,
			},
		},
	}

	tc := cache.NewTiered(nil, nil, nil)
	t.Cleanup(func() { _ = tc.Close() })

	return NewCachedReference(src, tc, nopMetrics{}, applogger.Nop()), src
}

func TestCachedReferenceStockReadThrough(t *testing.T) {
	cached, src := newCachedRefs(t)

	for i := 0; i < 3; i++ {
		stock, found, err := cached.GetStock(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !found {
			t.Fatalf("call %d: expected AAPL to be found", i)
		}
		if !stock.MinBorrowRate.Equal(decimal.RequireFromString("0.0025")) {
			t.Fatalf("call %d: min rate mismatch: %s", i, stock.MinBorrowRate)
		}
	}

	if src.stockCalls != 1 {
		t.Fatalf("expected one source hit, got %d", src.stockCalls)
	}
}

func TestCachedReferenceBrokerReadThrough(t *testing.T) {
	cached, src := newCachedRefs(t)

	for i := 0; i < 3; i++ {
		broker, found, err := cached.GetBroker(context.Background(), "BRK-1")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !found || !broker.Active {
			t.Fatalf("call %d: expected active BRK-1", i)
		}
	}

	if src.brokerCalls != 1 {
		t.Fatalf("expected one source hit, got %d", src.brokerCalls)
	}
}

func TestCachedReferenceMissesNotCached(t *testing.T) {
	cached, src := newCachedRefs(t)

	for i := 0; i < 2; i++ {
		_, found, err := cached.GetStock(context.Background(), "ZZZZ")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if found {
			t.Fatalf("call %d: ZZZZ must not be found", i)
		}
	}

	if src.stockCalls != 2 {
		t.Fatalf("negative results must not be cached, got %d source hits", src.stockCalls)
	}
}
