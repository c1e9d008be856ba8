// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"BorrowDesk/pkg/config"
	"BorrowDesk/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := ProvidePostgresPool(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := ProvideCacheBackend(cfg)
	if err != nil {
		return nil, err
	}
	tiered := ProvideTieredCache(cfg, backend, logger)
	metrics := ProvideMetrics()
	referenceData := ProvideReferenceData(pool, tiered, metrics, logger)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	volatilityStore, err := ProvideVolatilityStore(client)
	if err != nil {
		return nil, err
	}
	marketData := ProvideMarketData(cfg, volatilityStore)
	clickHouseAudit, err := ProvideAuditStore(client)
	if err != nil {
		return nil, err
	}
	auditSink := ProvideAuditSink(clickHouseAudit)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	auditEvents := ProvideAuditEvents(cfg, producer)
	rateModel, err := ProvideRateModel(cfg)
	if err != nil {
		return nil, err
	}
	feeEngine := ProvideFeeEngine(cfg)
	defaults, err := ProvideDefaults(cfg)
	if err != nil {
		return nil, err
	}
	resolverConfig := ProvideResolverConfig(cfg)
	locateService := ProvideLocateService(referenceData, marketData, auditSink, auditEvents, tiered, metrics, logger, rateModel, feeEngine, defaults, resolverConfig)
	auditLog := ProvideAuditLog(clickHouseAudit)
	limiter := ProvideRateLimiter()
	locateEchoHandler := ProvideHandler(cfg, logger, locateService, auditLog, limiter)
	volstreamClient := ProvideVolStream(cfg, volatilityStore, logger)
	app := ProvideApp(cfg, logger, locateEchoHandler, volstreamClient, tiered, pool, client, producer)
	return app, nil
}
