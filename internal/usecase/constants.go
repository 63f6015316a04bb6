package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a whole payment transaction, lock wait included.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCacheTTL is how long customer snapshots stay cached.
	DefaultCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyInFlight is the value a claimed key holds until its
	// response is stored.
	IdempotencyInFlight = "processing"

	reconciliationPageSize = 100
)

func customerCacheKey(accountNumber string) string {
	return "customer:" + accountNumber
}
