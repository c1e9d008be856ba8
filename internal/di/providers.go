package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/repository"
	"BorrowDesk/internal/engine"
	"BorrowDesk/internal/handler/api"
	internalrepo "BorrowDesk/internal/repository"
	"BorrowDesk/internal/resolver"
	"BorrowDesk/internal/service/marketdata"
	"BorrowDesk/internal/service/ratelimit"
	"BorrowDesk/internal/service/volstream"
	"BorrowDesk/internal/usecase"
	"BorrowDesk/pkg/cache"
	pkgch "BorrowDesk/pkg/clickhouse"
	"BorrowDesk/pkg/config"
	pkgkafka "BorrowDesk/pkg/kafka"
	applogger "BorrowDesk/pkg/logger"
	"BorrowDesk/pkg/metrics"
	"BorrowDesk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheBackend creates the Redis L2 backend.
func ProvideCacheBackend(cfg *config.Config) (cache.Backend, error) {
	backend, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return backend, nil
}

// ProvideTieredCache creates the two-level cache with per-kind TTLs.
func ProvideTieredCache(cfg *config.Config, backend cache.Backend, log *applogger.Logger) *cache.Tiered {
	ttls := cache.DefaultTTLPolicy()
	overrides := map[cache.Kind]time.Duration{
		cache.KindRate:         cfg.Cache.TTL.Rate,
		cache.KindVolatility:   cfg.Cache.TTL.Volatility,
		cache.KindEventRisk:    cfg.Cache.TTL.EventRisk,
		cache.KindStockRef:     cfg.Cache.TTL.StockRef,
		cache.KindBrokerConfig: cfg.Cache.TTL.BrokerConfig,
		cache.KindCalculation:  cfg.Cache.TTL.Calculation,
	}
	for kind, ttl := range overrides {
		if ttl > 0 {
			ttls[kind] = ttl
		}
	}

	opts := []cache.TieredOption{}
	if cfg.Cache.MemoryMaxSize > 0 {
		opts = append(opts, cache.WithTieredMemorySize(cfg.Cache.MemoryMaxSize))
	}
	return cache.NewTiered(backend, ttls, log, opts...)
}

// ProvidePostgresPool creates the reference-data connection pool.
func ProvidePostgresPool(cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Postgres.User, cfg.Postgres.Password,
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		pc.MaxConns = int32(cfg.Postgres.MaxConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTPProtocol(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAuditStore creates the ClickHouse audit sink and ensures schema.
func ProvideAuditStore(chClient *pkgch.Client) (*internalrepo.ClickHouseAudit, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return internalrepo.NewClickHouseAudit(ctx, chClient)
}

// ProvideAuditSink exposes the audit store as the durable sink.
func ProvideAuditSink(store *internalrepo.ClickHouseAudit) repository.AuditSink {
	return store
}

// ProvideAuditLog exposes the audit store for read-back queries.
func ProvideAuditLog(store *internalrepo.ClickHouseAudit) repository.AuditLog {
	return store
}

// ProvideVolatilityStore creates the streamed-sample store.
func ProvideVolatilityStore(chClient *pkgch.Client) (repository.VolatilityStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return internalrepo.NewClickHouseVolatility(ctx, chClient)
}

// ProvideKafkaProducer creates the Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAuditEvents creates the best-effort audit event publisher, or
// nil when Kafka is disabled.
func ProvideAuditEvents(cfg *config.Config, producer *pkgkafka.Producer) repository.AuditEvents {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAuditEvents(producer, cfg.Kafka.AuditTopic)
}

// ProvideMarketData creates the upstream provider client; with
// volatility_source=stream, volatility and event risk come from the
// streamed-sample store instead of the HTTP provider.
func ProvideMarketData(cfg *config.Config, volStore repository.VolatilityStore) repository.MarketData {
	httpClient := marketdata.NewClient(marketdata.Config{
		RateURL:       cfg.Providers.RateURL,
		VolatilityURL: cfg.Providers.VolatilityURL,
		EventRiskURL:  cfg.Providers.EventRiskURL,
		APIKey:        cfg.Providers.APIKey,
		Timeout:       cfg.Providers.Timeout,
	})
	if cfg.Providers.VolatilitySource == "stream" {
		return marketdata.NewStreamSource(httpClient, volStore, cfg.VolStream.MaxSampleAge)
	}
	return httpClient
}

// ProvideReferenceData wraps the Postgres reference repository with the
// tiered cache.
func ProvideReferenceData(pool *pgxpool.Pool, c *cache.Tiered, m repository.Metrics, log *applogger.Logger) repository.ReferenceData {
	return internalrepo.NewCachedReference(internalrepo.NewPostgresReference(pool), c, m, log)
}

// ProvideRateModel builds the rate curve from configured factors.
func ProvideRateModel(cfg *config.Config) (engine.RateModel, error) {
	volFactor, err := parseDecimal(cfg.Pricing.VolatilityFactor, "0")
	if err != nil {
		return nil, fmt.Errorf("pricing.volatility_factor: %w", err)
	}
	eventFactor, err := parseDecimal(cfg.Pricing.EventRiskFactor, "0")
	if err != nil {
		return nil, fmt.Errorf("pricing.event_risk_factor: %w", err)
	}
	return engine.NewMultiplicativeModel(volFactor, eventFactor), nil
}

// ProvideFeeEngine builds the fee engine with the configured day count.
func ProvideFeeEngine(cfg *config.Config) *engine.FeeEngine {
	days := cfg.Pricing.DaysInYear
	if days <= 0 {
		days = 365
	}
	return engine.NewFeeEngine(days)
}

// ProvideDefaults parses the fallback defaults.
func ProvideDefaults(cfg *config.Config) (usecase.Defaults, error) {
	volIndex, err := parseDecimal(cfg.Pricing.DefaultVolatilityIndex, "1.0")
	if err != nil {
		return usecase.Defaults{}, fmt.Errorf("pricing.default_volatility_index: %w", err)
	}
	return usecase.Defaults{
		VolatilityIndex: volIndex,
		EventRisk:       cfg.Pricing.DefaultEventRisk,
	}, nil
}

// ProvideResolverConfig maps config to the resolver tuning knobs.
func ProvideResolverConfig(cfg *config.Config) resolver.Config {
	return resolver.Config{
		RetryMax:         cfg.Resolver.RetryMax,
		BackoffBase:      cfg.Resolver.BackoffBase,
		FetchTimeout:     cfg.Resolver.FetchTimeout,
		FailureThreshold: cfg.Resolver.Breaker.FailureThreshold,
		Cooldown:         cfg.Resolver.Breaker.Cooldown,
	}
}

// ProvideLocateService wires the pricing pipeline.
func ProvideLocateService(
	refs repository.ReferenceData,
	market repository.MarketData,
	audit repository.AuditSink,
	events repository.AuditEvents,
	c *cache.Tiered,
	m repository.Metrics,
	log *applogger.Logger,
	rateModel engine.RateModel,
	feeEngine *engine.FeeEngine,
	defaults usecase.Defaults,
	resolverCfg resolver.Config,
) *usecase.LocateService {
	return usecase.NewLocateService(refs, market, audit, events, c, m, log, rateModel, feeEngine, defaults, resolverCfg)
}

// ProvideRateLimiter creates the per-client token bucket.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	cfg *config.Config,
	log *applogger.Logger,
	locates *usecase.LocateService,
	auditLog repository.AuditLog,
	limiter *ratelimit.Limiter,
) *api.LocateEchoHandler {
	rl := api.RateLimitConfig{
		Capacity:     cfg.Server.RateLimit.Capacity,
		RefillPerSec: cfg.Server.RateLimit.RefillPerSec,
	}
	if rl.Capacity <= 0 {
		limiter = nil
	}
	return api.NewLocateEchoHandler(log, locates, auditLog, limiter, rl)
}

// ProvideVolStream creates the WebSocket ingester, or nil when disabled.
func ProvideVolStream(cfg *config.Config, store repository.VolatilityStore, log *applogger.Logger) *volstream.Client {
	if !cfg.VolStream.Enabled {
		return nil
	}
	return volstream.New(volstream.Config{
		URL:            cfg.VolStream.URL,
		APIKey:         cfg.VolStream.APIKey,
		Tickers:        cfg.VolStream.Tickers,
		ReconnectDelay: cfg.VolStream.ReconnectDelay,
		PingInterval:   cfg.VolStream.PingInterval,
	}, store, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.LocateEchoHandler,
	stream *volstream.Client,
	c *cache.Tiered,
	pool *pgxpool.Pool,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, log, handler, stream, c, pool, chClient, producer)
}

func parseDecimal(s, def string) (decimal.Decimal, error) {
	if s == "" {
		s = def
	}
	return decimal.NewFromString(s)
}
