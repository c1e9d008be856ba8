package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"BorrowDesk/internal/handler/api"
	"BorrowDesk/internal/service/volstream"
	"BorrowDesk/pkg/cache"
	pkgch "BorrowDesk/pkg/clickhouse"
	"BorrowDesk/pkg/config"
	xhttp "BorrowDesk/pkg/http"
	pkgkafka "BorrowDesk/pkg/kafka"
	applogger "BorrowDesk/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP server, the
// optional volatility stream ingester, and every infrastructure client
// that needs a graceful close.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    *api.LocateEchoHandler
	stream     *volstream.Client
	cache      *cache.Tiered
	pool       *pgxpool.Pool
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler *api.LocateEchoHandler,
	stream *volstream.Client,
	c *cache.Tiered,
	pool *pgxpool.Pool,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		stream:   stream,
		cache:    c,
		pool:     pool,
		chClient: chClient,
		producer: producer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)

	if a.stream != nil {
		go a.stream.Run(ctx)
		a.log.Info("volstream ingester started",
			applogger.Strings("tickers", a.cfg.VolStream.Tickers))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("borrowdesk started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops the server and closes every client.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.log.Warn("volstream close error", applogger.Error(err))
		}
	}

	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	if a.pool != nil {
		a.pool.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
