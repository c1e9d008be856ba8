package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/internal/engine"
	"BorrowDesk/internal/resolver"
	"BorrowDesk/pkg/cache"
	apphttp "BorrowDesk/pkg/http"
	applogger "BorrowDesk/pkg/logger"
)

// Defaults are the fallback values used when volatility or event-risk
// cannot be resolved live. The rate fallback is per-stock (its minimum
// borrow rate), so it is not configured here.
type Defaults struct {
	VolatilityIndex decimal.Decimal
	EventRisk       int
}

// LocateService runs the full borrow-pricing pipeline: reference data,
// three-way market-data resolution, rate and fee engines, and the
// mandatory audit write.
type LocateService struct {
	refs    repository.ReferenceData
	market  repository.MarketData
	audit   repository.AuditSink
	events  repository.AuditEvents
	cache   *cache.Tiered
	metrics repository.Metrics
	log     *applogger.Logger

	rateResolver  *resolver.Resolver
	volResolver   *resolver.Resolver
	eventResolver *resolver.Resolver

	rateModel engine.RateModel
	feeEngine *engine.FeeEngine
	defaults  Defaults
}

// NewLocateService wires the pipeline. events may be nil when Kafka is
// disabled.
func NewLocateService(
	refs repository.ReferenceData,
	market repository.MarketData,
	audit repository.AuditSink,
	events repository.AuditEvents,
	c *cache.Tiered,
	metrics repository.Metrics,
	log *applogger.Logger,
	rateModel engine.RateModel,
	feeEngine *engine.FeeEngine,
	defaults Defaults,
	resolverCfg resolver.Config,
) *LocateService {
	return &LocateService{
		refs:          refs,
		market:        market,
		audit:         audit,
		events:        events,
		cache:         c,
		metrics:       metrics,
		log:           log,
		rateResolver:  resolver.New("rate_provider", cache.KindRate, c, metrics, log, resolverCfg),
		volResolver:   resolver.New("volatility_provider", cache.KindVolatility, c, metrics, log, resolverCfg),
		eventResolver: resolver.New("event_risk_provider", cache.KindEventRisk, c, metrics, log, resolverCfg),
		rateModel:     rateModel,
		feeEngine:     feeEngine,
		defaults:      defaults,
	}
}

// Calculate prices one locate request. Typed errors only: ErrInvalidInput,
// ErrNotFound, ErrAuditWriteFailed. Upstream flakiness never errors; it
// shows up as FALLBACK provenance instead.
func (s *LocateService) Calculate(ctx context.Context, req models.CalculationRequest) (models.CalculationResult, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		s.metrics.RecordCalculation("invalid")
		return models.CalculationResult{}, err
	}
	req.Ticker = strings.ToUpper(req.Ticker)

	// A repeat of the identical request within the calculation TTL is
	// served verbatim; the original audit record already covers it.
	calcKey := calculationKey(req)
	var cached models.CalculationResult
	if hit, err := s.cache.Get(ctx, cache.KindCalculation, calcKey, &cached); err == nil && hit {
		s.metrics.RecordCacheHit(string(cache.KindCalculation), "tiered")
		s.metrics.RecordCalculation("cached")
		return cached, nil
	}

	stock, found, err := s.refs.GetStock(ctx, req.Ticker)
	if err != nil {
		s.metrics.RecordError("reference_data")
		return models.CalculationResult{}, fmt.Errorf("get stock %s: %w", req.Ticker, err)
	}
	if !found {
		s.metrics.RecordCalculation("not_found")
		return models.CalculationResult{}, fmt.Errorf("ticker %s: %w", req.Ticker, models.ErrNotFound)
	}

	broker, found, err := s.refs.GetBroker(ctx, req.ClientID)
	if err != nil {
		s.metrics.RecordError("reference_data")
		return models.CalculationResult{}, fmt.Errorf("get broker %s: %w", req.ClientID, err)
	}
	if !found || !broker.Active {
		s.metrics.RecordCalculation("not_found")
		return models.CalculationResult{}, fmt.Errorf("client %s: %w", req.ClientID, models.ErrNotFound)
	}

	// Resolve the three inputs concurrently. Resolvers never fail, so a
	// plain WaitGroup is enough; there is no error to propagate early.
	var (
		wg         sync.WaitGroup
		quotedRate decimal.Decimal
		volIndex   decimal.Decimal
		eventRisk  int
		prov       models.DataProvenance
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		quotedRate, prov.Rate = resolver.Resolve(ctx, s.rateResolver, req.Ticker,
			func(ctx context.Context) (decimal.Decimal, error) {
				return classify(s.market.FetchRate(ctx, req.Ticker))
			}, stock.MinBorrowRate)
	}()
	go func() {
		defer wg.Done()
		volIndex, prov.Volatility = resolver.Resolve(ctx, s.volResolver, req.Ticker,
			func(ctx context.Context) (decimal.Decimal, error) {
				return classify(s.market.FetchVolatility(ctx, req.Ticker))
			}, s.defaults.VolatilityIndex)
	}()
	go func() {
		defer wg.Done()
		eventRisk, prov.EventRisk = resolver.Resolve(ctx, s.eventResolver, req.Ticker,
			func(ctx context.Context) (int, error) {
				return classify(s.market.FetchEventRisk(ctx, req.Ticker))
			}, s.defaults.EventRisk)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.CalculationResult{}, err
	}

	rate := s.rateModel.EffectiveRate(engine.RateInputs{
		QuotedRate: quotedRate,
		MinRate:    stock.MinBorrowRate,
		VolIndex:   volIndex,
		EventRisk:  eventRisk,
	})
	total, breakdown := s.feeEngine.Compute(rate, req.PositionValue, req.LoanDays, broker)

	result := models.CalculationResult{
		Ticker:        req.Ticker,
		EffectiveRate: rate,
		Breakdown:     breakdown,
		TotalFee:      total,
		Provenance:    prov,
		CalculatedAt:  time.Now().UTC(),
	}

	record := models.AuditRecord{
		ID:            uuid.New(),
		Timestamp:     result.CalculatedAt,
		ClientID:      req.ClientID,
		Ticker:        req.Ticker,
		PositionValue: req.PositionValue,
		LoanDays:      req.LoanDays,
		RateUsed:      rate,
		TotalFee:      total,
		Provenance:    prov,
		Breakdown:     breakdown,
	}

	// Fail closed: an unaudited calculation must not be reported back.
	if _, err := s.audit.Append(ctx, record); err != nil {
		s.metrics.RecordError("audit_write")
		s.metrics.RecordCalculation("audit_failed")
		s.log.Error("audit append failed, discarding result",
			applogger.String("ticker", req.Ticker),
			applogger.String("client_id", req.ClientID),
			applogger.Error(err),
		)
		return models.CalculationResult{}, fmt.Errorf("%w: %v", models.ErrAuditWriteFailed, err)
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, record); err != nil {
			s.log.Warn("audit event publish failed",
				applogger.String("audit_id", record.ID.String()),
				applogger.Error(err),
			)
		}
	}

	if err := s.cache.Set(ctx, cache.KindCalculation, calcKey, result); err != nil {
		s.log.Warn("calculation cache set failed", applogger.Error(err))
	}

	s.metrics.RecordCalculation("ok")
	rateF, _ := rate.Float64()
	s.metrics.RecordLastRate(req.Ticker, rateF)
	s.metrics.RecordLatency("calculate", time.Since(start).Seconds())

	return result, nil
}

func validate(req models.CalculationRequest) error {
	switch {
	case strings.TrimSpace(req.Ticker) == "":
		return fmt.Errorf("ticker is required: %w", models.ErrInvalidInput)
	case strings.TrimSpace(req.ClientID) == "":
		return fmt.Errorf("client id is required: %w", models.ErrInvalidInput)
	case req.PositionValue.LessThanOrEqual(decimal.Zero):
		return fmt.Errorf("position value must be positive: %w", models.ErrInvalidInput)
	case req.LoanDays <= 0:
		return fmt.Errorf("loan days must be positive: %w", models.ErrInvalidInput)
	}
	return nil
}

func calculationKey(req models.CalculationRequest) string {
	return fmt.Sprintf("%s|%s|%d|%s", req.Ticker, req.PositionValue, req.LoanDays, req.ClientID)
}

// classify marks upstream client errors (4xx) as permanent so the
// resolver falls back immediately instead of retrying a request that
// cannot succeed.
func classify[T any](val T, err error) (T, error) {
	if err == nil {
		return val, nil
	}
	var se *apphttp.StatusError
	if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
		return val, resolver.Permanent(err)
	}
	return val, err
}
