package repository

import (
	"context"

	"BorrowDesk/internal/domain/models"
	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/pkg/cache"
	applogger "BorrowDesk/pkg/logger"
)

// CachedReference wraps a ReferenceData source with the tiered cache.
// Reference rows change rarely, so they carry the longer stock_ref /
// broker_config TTL classes. Negative results are not cached; an
// unknown ticker stays cheap to re-check after onboarding.
type CachedReference struct {
	next    repository.ReferenceData
	cache   *cache.Tiered
	metrics repository.Metrics
	log     *applogger.Logger
}

// NewCachedReference wraps next with read-through caching.
func NewCachedReference(next repository.ReferenceData, c *cache.Tiered, metrics repository.Metrics, log *applogger.Logger) *CachedReference {
	return &CachedReference{next: next, cache: c, metrics: metrics, log: log}
}

func (r *CachedReference) GetStock(ctx context.Context, ticker string) (models.StockRef, bool, error) {
	var cached models.StockRef
	if hit, err := r.cache.Get(ctx, cache.KindStockRef, ticker, &cached); err == nil && hit {
		r.metrics.RecordCacheHit(string(cache.KindStockRef), "tiered")
		return cached, true, nil
	}
	r.metrics.RecordCacheMiss(string(cache.KindStockRef))

	stock, found, err := r.next.GetStock(ctx, ticker)
	if err != nil || !found {
		return stock, found, err
	}

	if err := r.cache.Set(ctx, cache.KindStockRef, ticker, stock); err != nil {
		r.log.Warn("stock ref cache set failed",
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
	}
	return stock, true, nil
}

func (r *CachedReference) GetBroker(ctx context.Context, clientID string) (models.BrokerConfig, bool, error) {
	var cached models.BrokerConfig
	if hit, err := r.cache.Get(ctx, cache.KindBrokerConfig, clientID, &cached); err == nil && hit {
		r.metrics.RecordCacheHit(string(cache.KindBrokerConfig), "tiered")
		return cached, true, nil
	}
	r.metrics.RecordCacheMiss(string(cache.KindBrokerConfig))

	broker, found, err := r.next.GetBroker(ctx, clientID)
	if err != nil || !found {
		return broker, found, err
	}

	if err := r.cache.Set(ctx, cache.KindBrokerConfig, clientID, broker); err != nil {
		r.log.Warn("broker config cache set failed",
			applogger.String("client_id", clientID),
			applogger.Error(err),
		)
	}
	return broker, true, nil
}
