package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/emiledger/internal/adapter/http"
	"github.com/iho/emiledger/internal/adapter/http/handler"
	"github.com/iho/emiledger/internal/adapter/http/middleware"
	"github.com/iho/emiledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/emiledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/emiledger/internal/adapter/repository/redis"
	"github.com/iho/emiledger/internal/infrastructure/config"
	"github.com/iho/emiledger/internal/infrastructure/eventpublisher"
	"github.com/iho/emiledger/internal/infrastructure/logger"
	"github.com/iho/emiledger/internal/infrastructure/metrics"
	"github.com/iho/emiledger/internal/infrastructure/postgres"
	"github.com/iho/emiledger/internal/infrastructure/redis"
	"github.com/iho/emiledger/internal/infrastructure/telemetry"
	"github.com/iho/emiledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.SetGlobal(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("server failed")
	}
}

// storage is the set of repositories behind one backend.
type storage struct {
	txManager usecase.TransactionManager
	customers usecase.CustomerRepository
	payments  usecase.PaymentRepository
	ledger    usecase.LedgerRepository
	outbox    usecase.OutboxRepository
	retrier   usecase.Retrier // nil for backends without transient conflicts
	ping      func(ctx context.Context) error
	close     func()
}

// app is the wired server, ready to serve.
type app struct {
	handler     http.Handler
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	shutdownTracer, err := telemetry.InitTracer(telemetry.Config{
		Enabled:     cfg.TelemetryEnabled,
		ServiceName: cfg.TelemetryServiceName,
		JaegerURL:   cfg.JaegerURL,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	if a.publisher != nil {
		go func() {
			if err := a.publisher.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}
	if a.rateLimiter != nil {
		go a.rateLimiter.RunCleanup(bgCtx.Done(), 10*time.Minute, time.Hour)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")
	cancelBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	checks := []handler.Check{{Name: cfg.StorageBackend, Ping: store.ping}}
	idGen := postgresRepo.NewULIDGenerator()

	customerOpts := []usecase.CustomerOption{
		usecase.WithCustomerMetrics(m),
		usecase.WithCustomerLogger(logger),
	}
	paymentOpts := []usecase.PaymentOption{
		usecase.WithPaymentMetrics(m),
		usecase.WithPaymentLogger(logger),
		usecase.WithTxTimeout(cfg.PaymentTxTimeout),
	}
	if store.retrier != nil {
		paymentOpts = append(paymentOpts, usecase.WithRetrier(store.retrier))
	}

	var (
		idempotencyStore usecase.IdempotencyStore
		redisClient      *goredis.Client
	)
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL, redis.WithTracing(cfg.TelemetryEnabled))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		logger.Info().Msg("connected to redis")

		cache := redisRepo.NewCache(redisClient)
		customerOpts = append(customerOpts, usecase.WithCustomerCache(cache, cfg.CacheTTL))
		paymentOpts = append(paymentOpts, usecase.WithPaymentCache(cache, cfg.CacheTTL))
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		checks = append(checks, handler.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	customerUC := usecase.NewCustomerUseCase(store.txManager, store.customers, store.outbox, idGen, customerOpts...)
	paymentUC := usecase.NewPaymentUseCase(store.txManager, store.customers, store.payments, store.outbox, idGen, paymentOpts...)
	reconciliationUC := usecase.NewReconciliationUseCase(store.customers, store.payments, store.ledger, m)

	if cfg.OutboxEnabled {
		var publisher eventpublisher.Publisher = eventpublisher.NewLogPublisher(logger)
		if cfg.OutboxPublisher == config.PublisherRedis && redisClient != nil {
			publisher = eventpublisher.NewStreamPublisher(redisClient, cfg.OutboxStream, cfg.OutboxStreamMaxLen)
		}
		a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  publisher,
			Logger:     logger,
			Metrics:    m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxPollInterval,
			Retention:  cfg.OutboxRetention,
		})
	}

	if cfg.RateLimitRPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		CustomerHandler:       handler.NewCustomerHandler(customerUC),
		PaymentHandler:        handler.NewPaymentHandler(paymentUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		HealthHandler:         handler.NewHealthHandler(checks...),
		IdempotencyStore:      idempotencyStore,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		RateLimiter:           a.rateLimiter,
		Metrics:               m,
		Gatherer:              reg,
		Logger:                logger,
		Tracing:               cfg.TelemetryEnabled,
		ServiceName:           cfg.TelemetryServiceName,
	})

	return a, nil
}

func newStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage, error) {
	if cfg.StorageBackend == config.StorageMemory {
		store := memory.NewStore(memory.WithLockTimeout(cfg.PaymentLockTimeout))
		logger.Warn().Msg("using in-memory storage; data is lost on restart")
		return &storage{
			txManager: store,
			customers: store.Customers(),
			payments:  store.Payments(),
			ledger:    store.Ledger(),
			outbox:    store.Outbox(),
			ping:      store.Ping,
			close:     func() {},
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
		Tracing:     cfg.TelemetryEnabled,
		TracingName: cfg.TelemetryServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	return &storage{
		txManager: postgresRepo.NewTxManager(pool, postgresRepo.WithLockTimeout(cfg.PaymentLockTimeout)),
		customers: postgresRepo.NewCustomerRepository(pool),
		payments:  postgresRepo.NewPaymentRepository(pool),
		ledger:    postgresRepo.NewLedgerRepository(pool),
		outbox:    postgresRepo.NewOutboxRepository(pool),
		retrier: postgresRepo.NewRetrier(
			postgresRepo.WithMaxRetries(cfg.PaymentMaxRetries),
			postgresRepo.WithRetrierLogger(logger),
		),
		ping:  pool.Ping,
		close: pool.Close,
	}, nil
}
