package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidAccountNumber = errors.New("invalid account number")
	ErrInvalidCustomerName  = errors.New("invalid customer name")
	ErrInvalidInterestRate  = errors.New("invalid interest rate")
	ErrInvalidTenure        = errors.New("invalid tenure")
	ErrInvalidIssueDate     = errors.New("invalid issue date")
	ErrInvalidLoanAmount    = errors.New("invalid loan amount")
	ErrAmountTooLarge       = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall       = errors.New("amount below minimum allowed")
	ErrAmountPrecision      = errors.New("amount has too many decimal places")
)

// Validation constants
const (
	MaxCustomerNameLength = 255
	MinAccountNumberLen   = 3
	MaxAccountNumberLen   = 32
	MaxPaymentAmount      = "1000000000"
	MinPaymentAmount      = "0.01"
	MaxAmountScale        = 2
	MaxInterestRate       = 100
	MaxTenureMonths       = 600
)

var accountNumberRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NormalizeAccountNumber trims and upper-cases an account number.
func NormalizeAccountNumber(accountNumber string) string {
	return strings.ToUpper(strings.TrimSpace(accountNumber))
}

// ValidateAccountNumber validates account number format
func ValidateAccountNumber(accountNumber string) error {
	accountNumber = strings.TrimSpace(accountNumber)

	if len(accountNumber) < MinAccountNumberLen || len(accountNumber) > MaxAccountNumberLen {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidAccountNumber, MinAccountNumberLen, MaxAccountNumberLen)
	}
	if !accountNumberRegex.MatchString(accountNumber) {
		return fmt.Errorf("%w: only letters, digits, '-' and '_' are allowed", ErrInvalidAccountNumber)
	}

	return nil
}

// ValidateCustomerName validates customer name
func ValidateCustomerName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidCustomerName)
	}
	if len(name) > MaxCustomerNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidCustomerName, MaxCustomerNameLength)
	}

	return nil
}

// ValidateAmount validates a payment amount. Every failure wraps ErrInvalidAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount := decimal.RequireFromString(MinPaymentAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: %w: minimum amount is %s", ErrInvalidAmount, ErrAmountTooSmall, MinPaymentAmount)
	}

	if !amount.Equal(amount.Round(MaxAmountScale)) {
		return fmt.Errorf("%w: %w: at most %d decimal places", ErrInvalidAmount, ErrAmountPrecision, MaxAmountScale)
	}

	maxAmount := decimal.RequireFromString(MaxPaymentAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: %w: maximum amount is %s", ErrInvalidAmount, ErrAmountTooLarge, MaxPaymentAmount)
	}

	return nil
}

// ValidateLoanTerms validates the immutable terms of a loan.
func ValidateLoanTerms(loanAmount, interestRate decimal.Decimal, tenureMonths int32, issueDate time.Time) error {
	if loanAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: must be positive", ErrInvalidLoanAmount)
	}
	if loanAmount.GreaterThan(decimal.RequireFromString(MaxPaymentAmount)) {
		return fmt.Errorf("%w: maximum is %s", ErrInvalidLoanAmount, MaxPaymentAmount)
	}
	if interestRate.IsNegative() || interestRate.GreaterThan(decimal.NewFromInt(MaxInterestRate)) {
		return fmt.Errorf("%w: must be between 0 and %d", ErrInvalidInterestRate, MaxInterestRate)
	}
	if tenureMonths < 1 || tenureMonths > MaxTenureMonths {
		return fmt.Errorf("%w: must be between 1 and %d months", ErrInvalidTenure, MaxTenureMonths)
	}
	if issueDate.IsZero() {
		return fmt.Errorf("%w: required", ErrInvalidIssueDate)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
