package domain

import "errors"

var (
	// Customer errors
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer already exists")

	// Payment errors
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrOverpaymentRejected = errors.New("payment exceeds outstanding balance")

	// Storage errors
	ErrLockTimeout    = errors.New("timed out waiting for account lock")
	ErrStorageFailure = errors.New("storage failure")
)

// IsRetryable reports whether err is a transient failure that the caller may
// resubmit as a fresh attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrStorageFailure)
}
