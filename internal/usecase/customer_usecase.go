package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/infrastructure/metrics"
)

// CustomerUseCase handles customer business logic.
type CustomerUseCase struct {
	txManager    TransactionManager
	customerRepo CustomerRepository
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	clock        Clock
	cache        Cache
	cacheTTL     time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// CustomerOption configures a CustomerUseCase.
type CustomerOption func(*CustomerUseCase)

// WithCustomerCache enables read-through caching of customers.
func WithCustomerCache(c Cache, ttl time.Duration) CustomerOption {
	return func(uc *CustomerUseCase) {
		uc.cache = c
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

// WithCustomerMetrics records customer metrics.
func WithCustomerMetrics(m *metrics.Metrics) CustomerOption {
	return func(uc *CustomerUseCase) { uc.metrics = m }
}

// WithCustomerLogger sets the logger.
func WithCustomerLogger(l zerolog.Logger) CustomerOption {
	return func(uc *CustomerUseCase) { uc.logger = l }
}

// WithCustomerClock overrides the timestamp source.
func WithCustomerClock(c Clock) CustomerOption {
	return func(uc *CustomerUseCase) { uc.clock = c }
}

// NewCustomerUseCase creates a new CustomerUseCase.
func NewCustomerUseCase(
	txManager TransactionManager,
	customerRepo CustomerRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	opts ...CustomerOption,
) *CustomerUseCase {
	uc := &CustomerUseCase{
		txManager:    txManager,
		customerRepo: customerRepo,
		outboxRepo:   outboxRepo,
		idGen:        idGen,
		clock:        SystemClock{},
		cacheTTL:     DefaultCacheTTL,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateCustomerInput represents input for creating a customer.
type CreateCustomerInput struct {
	AccountNumber string
	CustomerName  string
	IssueDate     time.Time
	InterestRate  decimal.Decimal
	TenureMonths  int32
	LoanAmount    decimal.Decimal
	// EMIDueAmount is computed from the loan terms when zero.
	EMIDueAmount decimal.Decimal
}

// CreateCustomer creates a new customer.
func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*domain.Customer, error) {
	accountNumber := domain.NormalizeAccountNumber(input.AccountNumber)
	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	if err := domain.ValidateCustomerName(input.CustomerName); err != nil {
		return nil, err
	}
	if err := domain.ValidateLoanTerms(input.LoanAmount, input.InterestRate, input.TenureMonths, input.IssueDate); err != nil {
		return nil, err
	}

	emi := input.EMIDueAmount
	if emi.IsZero() {
		var err error
		emi, err = domain.CalculateEMI(input.LoanAmount, input.InterestRate, input.TenureMonths)
		if err != nil {
			return nil, err
		}
	} else if emi.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	now := uc.clock.Now().UTC()
	customer := &domain.Customer{
		AccountNumber:      accountNumber,
		CustomerName:       strings.TrimSpace(input.CustomerName),
		IssueDate:          input.IssueDate.UTC().Truncate(24 * time.Hour),
		InterestRate:       input.InterestRate,
		TenureMonths:       input.TenureMonths,
		EMIDueAmount:       emi,
		LoanAmount:         input.LoanAmount,
		OutstandingBalance: input.LoanAmount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := RunInTx(ctx, uc.txManager, func(tx Transaction) error {
		if err := uc.customerRepo.Create(ctx, tx, customer); err != nil {
			return err
		}
		if uc.outboxRepo == nil {
			return nil
		}
		return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   accountNumber,
			AggregateType: domain.AggregateTypeCustomer,
			EventType:     domain.EventTypeCustomerCreated,
			Payload: domain.CustomerCreatedEvent{
				AccountNumber: accountNumber,
				CustomerName:  customer.CustomerName,
				LoanAmount:    customer.LoanAmount.String(),
				EMIDueAmount:  customer.EMIDueAmount.String(),
			}.ToMap(),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CustomersCreated.Inc()
	}
	uc.logger.Info().Str("account_number", accountNumber).Str("emi_due_amount", emi.String()).Msg("customer created")

	return customer, nil
}

// GetCustomer retrieves a customer by account number.
func (uc *CustomerUseCase) GetCustomer(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	if uc.cache != nil {
		if customer, ok := uc.cached(ctx, accountNumber); ok {
			return customer, nil
		}
	}

	customer, err := uc.customerRepo.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		cacheCustomer(ctx, uc.cache, customer, uc.cacheTTL, uc.logger)
	}

	return customer, nil
}

func (uc *CustomerUseCase) cached(ctx context.Context, accountNumber string) (*domain.Customer, bool) {
	data, err := uc.cache.Get(ctx, customerCacheKey(accountNumber))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn().Err(err).Str("account_number", accountNumber).Msg("customer cache lookup failed")
		}
		uc.countLookup("miss")
		return nil, false
	}

	var customer domain.Customer
	if err := json.Unmarshal(data, &customer); err != nil {
		uc.countLookup("miss")
		return nil, false
	}

	uc.countLookup("hit")
	return &customer, true
}

// cacheCustomer stores customer under its version and reports whether the
// cache now holds that version or a later one.
func cacheCustomer(ctx context.Context, cache Cache, customer *domain.Customer, ttl time.Duration, logger zerolog.Logger) bool {
	data, err := json.Marshal(customer)
	if err != nil {
		return false
	}
	if _, err := cache.SetIfNewer(ctx, customerCacheKey(customer.AccountNumber), customer.Version, data, ttl); err != nil {
		logger.Warn().Err(err).Str("account_number", customer.AccountNumber).Msg("failed to cache customer")
		return false
	}
	return true
}

func (uc *CustomerUseCase) countLookup(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// ListCustomersInput represents input for listing customers.
type ListCustomersInput struct {
	Limit  int
	Offset int
}

// ListCustomers lists customers with pagination.
func (uc *CustomerUseCase) ListCustomers(ctx context.Context, input ListCustomersInput) ([]*domain.Customer, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.customerRepo.List(ctx, limit, offset)
}
