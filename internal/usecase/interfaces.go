package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CustomerRepository defines data access for customers.
type CustomerRepository interface {
	Create(ctx context.Context, tx Transaction, customer *domain.Customer) error
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error)
	// GetByAccountNumberForUpdate locks the customer row until tx ends.
	GetByAccountNumberForUpdate(ctx context.Context, tx Transaction, accountNumber string) (*domain.Customer, error)
	UpdateBalance(ctx context.Context, tx Transaction, accountNumber string, balance decimal.Decimal, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Customer, error)
}

// PaymentRepository defines data access for the payment ledger.
type PaymentRepository interface {
	// Create inserts the payment and sets its store-assigned ID.
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	ListByAccount(ctx context.Context, accountNumber string) ([]*domain.Payment, error)
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	// PaymentTotals returns the sum of committed payments per account.
	PaymentTotals(ctx context.Context) (map[string]decimal.Decimal, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// Retrier re-runs an operation on transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// SetIfNewer stores value unless key already holds the same or a later
	// version. It reports whether the value was written.
	SetIfNewer(ctx context.Context, key string, version int64, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release frees a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// IsIdempotencyInFlight reports whether a stored value is the claim marker
// rather than a finished response.
func IsIdempotencyInFlight(value []byte) bool {
	return string(value) == IdempotencyInFlight
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }
