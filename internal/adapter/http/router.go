package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iho/emiledger/internal/adapter/http/handler"
	"github.com/iho/emiledger/internal/adapter/http/middleware"
	"github.com/iho/emiledger/internal/infrastructure/metrics"
	"github.com/iho/emiledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CustomerHandler       *handler.CustomerHandler
	PaymentHandler        *handler.PaymentHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler

	// Optional.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	Logger           zerolog.Logger
	Tracing          bool
	ServiceName      string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", cfg.CustomerHandler.Create)
			r.Get("/", cfg.CustomerHandler.List)
			r.Get("/{accountNumber}", cfg.CustomerHandler.Get)
			r.Get("/{accountNumber}/payments", cfg.PaymentHandler.ListByAccount)
			r.Get("/{accountNumber}/reconciliation", cfg.ReconciliationHandler.Account)
		})

		r.Post("/payments", cfg.PaymentHandler.Apply)
		r.Get("/ledger/reconciliation", cfg.ReconciliationHandler.Report)
	})

	if !cfg.Tracing {
		return r
	}

	name := cfg.ServiceName
	if name == "" {
		name = "emiledger"
	}
	return otelhttp.NewHandler(r, name, otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
		return req.Method + " " + req.URL.Path
	}))
}
