package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/infrastructure/metrics"
)

const tracerName = "github.com/iho/emiledger/internal/usecase"

// PaymentUseCase applies EMI payments against customer balances.
type PaymentUseCase struct {
	txManager    TransactionManager
	customerRepo CustomerRepository
	paymentRepo  PaymentRepository
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	clock        Clock
	retrier      Retrier
	cache        Cache
	cacheTTL     time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	tracer       trace.Tracer
	txTimeout    time.Duration
}

// PaymentOption configures a PaymentUseCase.
type PaymentOption func(*PaymentUseCase)

// WithRetrier retries whole attempts on deadlocks and serialization failures.
func WithRetrier(r Retrier) PaymentOption {
	return func(uc *PaymentUseCase) { uc.retrier = r }
}

// WithClock overrides the timestamp source.
func WithClock(c Clock) PaymentOption {
	return func(uc *PaymentUseCase) { uc.clock = c }
}

// WithPaymentCache refreshes cached customer snapshots after each payment.
func WithPaymentCache(c Cache, ttl time.Duration) PaymentOption {
	return func(uc *PaymentUseCase) {
		uc.cache = c
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

// WithPaymentMetrics records payment metrics.
func WithPaymentMetrics(m *metrics.Metrics) PaymentOption {
	return func(uc *PaymentUseCase) { uc.metrics = m }
}

// WithPaymentLogger sets the logger.
func WithPaymentLogger(l zerolog.Logger) PaymentOption {
	return func(uc *PaymentUseCase) { uc.logger = l }
}

// WithTxTimeout bounds each payment transaction.
func WithTxTimeout(d time.Duration) PaymentOption {
	return func(uc *PaymentUseCase) {
		if d > 0 {
			uc.txTimeout = d
		}
	}
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	customerRepo CustomerRepository,
	paymentRepo PaymentRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	opts ...PaymentOption,
) *PaymentUseCase {
	uc := &PaymentUseCase{
		txManager:    txManager,
		customerRepo: customerRepo,
		paymentRepo:  paymentRepo,
		outboxRepo:   outboxRepo,
		idGen:        idGen,
		clock:        SystemClock{},
		retrier:      noRetry{},
		logger:       zerolog.Nop(),
		tracer:       otel.Tracer(tracerName),
		txTimeout:    DefaultTransactionTimeout,
		cacheTTL:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ApplyPaymentInput represents input for applying a payment.
type ApplyPaymentInput struct {
	AccountNumber string
	Amount        decimal.Decimal
}

// PaymentResult is the committed payment and the balance it left behind.
type PaymentResult struct {
	Payment            *domain.Payment
	OutstandingBalance decimal.Decimal
	// Customer is the account as committed by this payment.
	Customer *domain.Customer
}

// ApplyPayment applies one payment as a single unit of work: lock the
// customer row, re-check the balance, append the payment, update the balance
// and commit. On any error nothing is persisted.
func (uc *PaymentUseCase) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*PaymentResult, error) {
	accountNumber := domain.NormalizeAccountNumber(input.AccountNumber)

	ctx, span := uc.tracer.Start(ctx, "PaymentUseCase.ApplyPayment", trace.WithAttributes(
		attribute.String("account_number", accountNumber),
		attribute.String("amount", input.Amount.String()),
	))
	defer span.End()

	start := time.Now()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		uc.recordFailure(span, accountNumber, input.Amount, err)
		return nil, err
	}

	var result *PaymentResult
	attempt := 0
	err := uc.retrier.Retry(ctx, func() error {
		attempt++
		if attempt > 1 && uc.metrics != nil {
			uc.metrics.PaymentRetries.Inc()
		}

		r, err := uc.applyOnce(ctx, accountNumber, input.Amount)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		uc.recordFailure(span, accountNumber, input.Amount, err)
		return nil, err
	}

	uc.refreshCustomer(ctx, result.Customer)

	if uc.metrics != nil {
		uc.metrics.PaymentsApplied.Inc()
		uc.metrics.PaymentDuration.Observe(time.Since(start).Seconds())
		uc.metrics.PaymentAmount.Observe(input.Amount.InexactFloat64())
	}

	span.SetAttributes(attribute.Int64("payment_id", result.Payment.ID))
	uc.logger.Info().
		Str("account_number", accountNumber).
		Int64("payment_id", result.Payment.ID).
		Str("amount", input.Amount.String()).
		Str("outstanding_balance", result.OutstandingBalance.String()).
		Int("attempts", attempt).
		Msg("payment applied")

	return result, nil
}

func (uc *PaymentUseCase) applyOnce(ctx context.Context, accountNumber string, amount decimal.Decimal) (*PaymentResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	var result *PaymentResult
	err := RunInTx(txCtx, uc.txManager, func(tx Transaction) error {
		customer, err := uc.customerRepo.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
		if err != nil {
			return err
		}

		// balance may have moved since any read made outside the lock
		newBalance, err := customer.ApplyPayment(amount)
		if err != nil {
			return err
		}

		now := uc.clock.Now().UTC()
		payment := &domain.Payment{
			AccountNumber: accountNumber,
			Amount:        amount,
			BalanceAfter:  newBalance,
			CreatedAt:     now,
		}
		if err := payment.Validate(); err != nil {
			return err
		}

		if err := uc.paymentRepo.Create(txCtx, tx, payment); err != nil {
			return err
		}

		if err := uc.customerRepo.UpdateBalance(txCtx, tx, accountNumber, newBalance, now); err != nil {
			return err
		}

		if uc.outboxRepo != nil {
			event := &domain.OutboxEvent{
				ID:            uc.idGen.Generate(),
				AggregateID:   accountNumber,
				AggregateType: domain.AggregateTypeCustomer,
				EventType:     domain.EventTypePaymentApplied,
				Payload: domain.PaymentAppliedEvent{
					PaymentID:          payment.ID,
					AccountNumber:      accountNumber,
					Amount:             amount.String(),
					OutstandingBalance: newBalance.String(),
					AppliedAt:          now.Format(time.RFC3339Nano),
				}.ToMap(),
				CreatedAt: now,
			}
			if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
				return err
			}
		}

		updated := *customer
		updated.OutstandingBalance = newBalance
		updated.Version++
		updated.UpdatedAt = now

		result = &PaymentResult{Payment: payment, OutstandingBalance: newBalance, Customer: &updated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListPayments returns the account's committed payments in ledger order.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, accountNumber string) ([]*domain.Payment, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	ctx, span := uc.tracer.Start(ctx, "PaymentUseCase.ListPayments", trace.WithAttributes(
		attribute.String("account_number", accountNumber),
	))
	defer span.End()

	if _, err := uc.customerRepo.GetByAccountNumber(ctx, accountNumber); err != nil {
		span.RecordError(err)
		return nil, err
	}

	payments, err := uc.paymentRepo.ListByAccount(ctx, accountNumber)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}

	return payments, nil
}

// refreshCustomer caches the committed snapshot under its new version, so a
// read that fetched the previous version cannot overwrite it afterwards.
func (uc *PaymentUseCase) refreshCustomer(ctx context.Context, customer *domain.Customer) {
	if uc.cache == nil {
		return
	}
	if cacheCustomer(ctx, uc.cache, customer, uc.cacheTTL, uc.logger) {
		return
	}
	if err := uc.cache.Delete(ctx, customerCacheKey(customer.AccountNumber)); err != nil {
		uc.logger.Warn().Err(err).Str("account_number", customer.AccountNumber).Msg("failed to invalidate customer cache")
	}
}

func (uc *PaymentUseCase) recordFailure(span trace.Span, accountNumber string, amount decimal.Decimal, err error) {
	reason := ErrorReason(err)

	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	if uc.metrics != nil {
		uc.metrics.PaymentsRejected.WithLabelValues(reason).Inc()
	}

	event := uc.logger.Warn()
	if reason == reasonStorageFailure || reason == reasonUnknown {
		event = uc.logger.Error()
	}
	event.Err(err).
		Str("account_number", accountNumber).
		Str("amount", amount.String()).
		Str("reason", reason).
		Msg("payment aborted")
}

const (
	reasonNotFound       = "not_found"
	reasonInvalidAmount  = "invalid_amount"
	reasonOverpayment    = "overpayment_rejected"
	reasonLockTimeout    = "lock_timeout"
	reasonStorageFailure = "storage_failure"
	reasonUnknown        = "unknown"
)

// ErrorReason maps err to a stable label from the payment error taxonomy.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		return reasonNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return reasonInvalidAmount
	case errors.Is(err, domain.ErrOverpaymentRejected):
		return reasonOverpayment
	case errors.Is(err, domain.ErrLockTimeout):
		return reasonLockTimeout
	case errors.Is(err, domain.ErrStorageFailure):
		return reasonStorageFailure
	default:
		return reasonUnknown
	}
}
