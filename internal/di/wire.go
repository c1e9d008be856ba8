//go:build wireinject
// +build wireinject

package di

import (
	"BorrowDesk/pkg/config"
	"BorrowDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCacheBackend,
		ProvideTieredCache,
		ProvidePostgresPool,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideAuditStore,
		ProvideAuditSink,
		ProvideAuditLog,
		ProvideAuditEvents,
		ProvideVolatilityStore,
		ProvideReferenceData,

		// Market data
		ProvideMarketData,
		ProvideVolStream,

		// Pricing
		ProvideRateModel,
		ProvideFeeEngine,
		ProvideDefaults,
		ProvideResolverConfig,
		ProvideLocateService,

		// HTTP
		ProvideRateLimiter,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
