package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Payment metrics
	PaymentsApplied  prometheus.Counter
	PaymentsRejected *prometheus.CounterVec
	PaymentDuration  prometheus.Histogram
	PaymentAmount    prometheus.Histogram
	PaymentRetries   prometheus.Counter

	// Customer metrics
	CustomersCreated prometheus.Counter
	CacheLookups     *prometheus.CounterVec

	// Reconciliation metrics
	Discrepancies prometheus.Gauge

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits prometheus.Counter

	// Outbox metrics
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg falls back
// to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PaymentsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_payments_applied_total",
			Help: "Total number of EMI payments committed",
		}),
		PaymentsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emiledger_payments_rejected_total",
				Help: "Total number of payment attempts that aborted, by reason",
			},
			[]string{"reason"},
		),
		PaymentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "emiledger_payment_duration_seconds",
			Help:    "Duration of payment application including lock wait",
			Buckets: prometheus.DefBuckets,
		}),
		PaymentAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "emiledger_payment_amount",
			Help:    "Committed payment amounts",
			Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 1000000},
		}),
		PaymentRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_payment_retries_total",
			Help: "Payment attempts retried after a deadlock or serialization failure",
		}),

		CustomersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_customers_created_total",
			Help: "Total number of customers created",
		}),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emiledger_cache_lookups_total",
				Help: "Customer cache lookups by result",
			},
			[]string{"result"},
		),

		Discrepancies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "emiledger_reconciliation_discrepancies",
			Help: "Accounts whose balance did not reconcile in the last report",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emiledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emiledger_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "emiledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),

		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_outbox_events_published_total",
			Help: "Outbox events published",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "emiledger_outbox_publish_errors_total",
			Help: "Outbox events that failed to publish",
		}),
	}
}
