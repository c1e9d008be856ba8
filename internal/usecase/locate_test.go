package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/internal/engine"
	"BorrowDesk/internal/resolver"
	"BorrowDesk/pkg/cache"
	applogger "BorrowDesk/pkg/logger"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeRefs struct {
	stocks  map[string]models.StockRef
	brokers map[string]models.BrokerConfig
}

func (f *fakeRefs) GetStock(_ context.Context, ticker string) (models.StockRef, bool, error) {
	s, ok := f.stocks[ticker]
	return s, ok, nil
}

func (f *fakeRefs) GetBroker(_ context.Context, clientID string) (models.BrokerConfig, bool, error) {
	b, ok := f.brokers[clientID]
	return b, ok, nil
}

type fakeMarket struct {
	rate    func() (decimal.Decimal, error)
	vol     func() (decimal.Decimal, error)
	event   func() (int, error)
	rateHit int32
}

func (f *fakeMarket) FetchRate(context.Context, string) (decimal.Decimal, error) {
	atomic.AddInt32(&f.rateHit, 1)
	return f.rate()
}

func (f *fakeMarket) FetchVolatility(context.Context, string) (decimal.Decimal, error) {
	return f.vol()
}

func (f *fakeMarket) FetchEventRisk(context.Context, string) (int, error) {
	return f.event()
}

type fakeAudit struct {
	records []models.AuditRecord
	fail    bool
}

func (f *fakeAudit) Append(_ context.Context, rec models.AuditRecord) (uuid.UUID, error) {
	if f.fail {
		return uuid.Nil, errors.New("clickhouse down")
	}
	f.records = append(f.records, rec)
	return rec.ID, nil
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

var _ repository.Metrics = nopMetrics{}

func healthyMarket() *fakeMarket {
	return &fakeMarket{
		rate:  func() (decimal.Decimal, error) { return dec("0.0025"), nil },
		vol:   func() (decimal.Decimal, error) { return decimal.Zero, nil },
		event: func() (int, error) { return 0, nil },
	}
}

func testRefs() *fakeRefs {
	return &fakeRefs{
		stocks: map[string]models.StockRef{
			"AAPL": {Ticker: "AAPL", Name: "Apple Inc.", Tier: models.TierEasy, MinBorrowRate: dec("0.0025")},
		},
		brokers: map[string]models.BrokerConfig{
			"BRK-1": {BrokerID: "BRK-1", MarkupPercent: dec("5.0"), FeeType: models.FeeFlat, FeeAmount: dec("25.00"), Active: true},
			"BRK-X": {BrokerID: "BRK-X", MarkupPercent: dec("5.0"), FeeType: models.FeeFlat, FeeAmount: dec("25.00"), Active: false},
		},
	}
}

func newService(t *testing.T, refs *fakeRefs, market *fakeMarket, audit *fakeAudit) *LocateService {
	t.Helper()
	tc := cache.NewTiered(nil, nil, nil)
	t.Cleanup(func() { _ = tc.Close() })

	return NewLocateService(
		refs, market, audit, nil,
		tc, nopMetrics{}, applogger.Nop(),
		engine.NewMultiplicativeModel(decimal.Zero, decimal.Zero),
		engine.NewFeeEngine(365),
		Defaults{VolatilityIndex: dec("1.0"), EventRisk: 0},
		resolver.Config{
			RetryMax:         1,
			BackoffBase:      time.Millisecond,
			FetchTimeout:     100 * time.Millisecond,
			FailureThreshold: 100,
			Cooldown:         time.Minute,
		},
	)
}

func aaplRequest() models.CalculationRequest {
	return models.CalculationRequest{
		Ticker:        "AAPL",
		PositionValue: dec("100000"),
		LoanDays:      30,
		ClientID:      "BRK-1",
	}
}

func TestCalculateHappyPath(t *testing.T) {
	audit := &fakeAudit{}
	svc := newService(t, testRefs(), healthyMarket(), audit)

	res, err := svc.Calculate(context.Background(), aaplRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.EffectiveRate.Equal(dec("0.0025")) {
		t.Fatalf("effective rate: expected 0.0025, got %s", res.EffectiveRate)
	}
	if !res.Breakdown.BorrowCost.Equal(dec("20.55")) {
		t.Fatalf("borrow cost: expected 20.55, got %s", res.Breakdown.BorrowCost)
	}
	if !res.Breakdown.Markup.Equal(dec("1.03")) {
		t.Fatalf("markup: expected 1.03, got %s", res.Breakdown.Markup)
	}
	if !res.TotalFee.Equal(dec("46.58")) {
		t.Fatalf("total fee: expected 46.58, got %s", res.TotalFee)
	}
	if res.Provenance.Rate != models.SourceLive {
		t.Fatalf("rate provenance: expected LIVE, got %s", res.Provenance.Rate)
	}
}

func TestCalculateAuditCompleteness(t *testing.T) {
	audit := &fakeAudit{}
	svc := newService(t, testRefs(), healthyMarket(), audit)

	res, err := svc.Calculate(context.Background(), aaplRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(audit.records) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if !rec.TotalFee.Equal(res.TotalFee) {
		t.Fatalf("audit total %s != result total %s", rec.TotalFee, res.TotalFee)
	}
	if !rec.RateUsed.Equal(res.EffectiveRate) {
		t.Fatalf("audit rate %s != result rate %s", rec.RateUsed, res.EffectiveRate)
	}
	if rec.Provenance != res.Provenance {
		t.Fatalf("audit provenance %+v != result provenance %+v", rec.Provenance, res.Provenance)
	}
	if rec.ID == uuid.Nil {
		t.Fatal("audit record must have a generated id")
	}
}

func TestCalculateFallbackWhenUpstreamDown(t *testing.T) {
	market := healthyMarket()
	market.rate = func() (decimal.Decimal, error) { return decimal.Zero, errors.New("timeout") }
	audit := &fakeAudit{}
	svc := newService(t, testRefs(), market, audit)

	res, err := svc.Calculate(context.Background(), aaplRequest())
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}

	if res.Provenance.Rate != models.SourceFallback {
		t.Fatalf("rate provenance: expected FALLBACK, got %s", res.Provenance.Rate)
	}
	if !res.EffectiveRate.Equal(dec("0.0025")) {
		t.Fatalf("fallback rate must equal min borrow rate, got %s", res.EffectiveRate)
	}
	if len(audit.records) != 1 {
		t.Fatalf("fallback calculation must still be audited, got %d records", len(audit.records))
	}
}

func TestCalculateInvalidInput(t *testing.T) {
	svc := newService(t, testRefs(), healthyMarket(), &fakeAudit{})

	cases := []models.CalculationRequest{
		{Ticker: "", PositionValue: dec("100"), LoanDays: 5, ClientID: "BRK-1"},
		{Ticker: "AAPL", PositionValue: dec("0"), LoanDays: 5, ClientID: "BRK-1"},
		{Ticker: "AAPL", PositionValue: dec("-100"), LoanDays: 5, ClientID: "BRK-1"},
		{Ticker: "AAPL", PositionValue: dec("100"), LoanDays: 0, ClientID: "BRK-1"},
		{Ticker: "AAPL", PositionValue: dec("100"), LoanDays: 5, ClientID: ""},
	}
	for i, req := range cases {
		if _, err := svc.Calculate(context.Background(), req); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCalculateUnknownTicker(t *testing.T) {
	svc := newService(t, testRefs(), healthyMarket(), &fakeAudit{})

	req := aaplRequest()
	req.Ticker = "ZZZZ"
	if _, err := svc.Calculate(context.Background(), req); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCalculateInactiveBroker(t *testing.T) {
	svc := newService(t, testRefs(), healthyMarket(), &fakeAudit{})

	req := aaplRequest()
	req.ClientID = "BRK-X"
	if _, err := svc.Calculate(context.Background(), req); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("inactive broker must be treated as not found, got %v", err)
	}
}

func TestCalculateAuditWriteFailure(t *testing.T) {
	audit := &fakeAudit{fail: true}
	svc := newService(t, testRefs(), healthyMarket(), audit)

	_, err := svc.Calculate(context.Background(), aaplRequest())
	if !errors.Is(err, models.ErrAuditWriteFailed) {
		t.Fatalf("expected ErrAuditWriteFailed, got %v", err)
	}
}

func TestCalculateRepeatServedFromCache(t *testing.T) {
	audit := &fakeAudit{}
	market := healthyMarket()
	svc := newService(t, testRefs(), market, audit)

	first, err := svc.Calculate(context.Background(), aaplRequest())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.Calculate(context.Background(), aaplRequest())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !first.TotalFee.Equal(second.TotalFee) {
		t.Fatalf("cached result diverged: %s vs %s", first.TotalFee, second.TotalFee)
	}
	if len(audit.records) != 1 {
		t.Fatalf("a cached repeat must not re-audit, got %d records", len(audit.records))
	}
	if n := atomic.LoadInt32(&market.rateHit); n != 1 {
		t.Fatalf("cached repeat must not refetch upstream, got %d calls", n)
	}
}

func TestCalculateCancelledContext(t *testing.T) {
	svc := newService(t, testRefs(), healthyMarket(), &fakeAudit{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Calculate(ctx, aaplRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
