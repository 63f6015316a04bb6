package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateAccountNumber(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		for _, acc := range []string{"ACC001", "loan_42", "A-1"} {
			if err := ValidateAccountNumber(acc); err != nil {
				t.Fatalf("expected %q to be valid, got %v", acc, err)
			}
		}
	})

	t.Run("too short", func(t *testing.T) {
		if err := ValidateAccountNumber("AC"); !errors.Is(err, ErrInvalidAccountNumber) {
			t.Fatalf("expected ErrInvalidAccountNumber, got %v", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		if err := ValidateAccountNumber(strings.Repeat("A", MaxAccountNumberLen+1)); !errors.Is(err, ErrInvalidAccountNumber) {
			t.Fatalf("expected ErrInvalidAccountNumber, got %v", err)
		}
	})

	t.Run("forbidden characters", func(t *testing.T) {
		if err := ValidateAccountNumber("ACC 001;"); !errors.Is(err, ErrInvalidAccountNumber) {
			t.Fatalf("expected ErrInvalidAccountNumber, got %v", err)
		}
	})
}

func TestNormalizeAccountNumber(t *testing.T) {
	if got := NormalizeAccountNumber("  acc001 "); got != "ACC001" {
		t.Fatalf("expected ACC001, got %q", got)
	}
}

func TestValidateCustomerName(t *testing.T) {
	t.Parallel()

	if err := ValidateCustomerName("Asha Rao"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := ValidateCustomerName("   "); !errors.Is(err, ErrInvalidCustomerName) {
		t.Fatalf("expected ErrInvalidCustomerName, got %v", err)
	}
	if err := ValidateCustomerName(strings.Repeat("x", MaxCustomerNameLength+1)); !errors.Is(err, ErrInvalidCustomerName) {
		t.Fatalf("expected ErrInvalidCustomerName, got %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount string
		want   error
	}{
		{name: "valid", amount: "100.25"},
		{name: "trailing zeros", amount: "100.250"},
		{name: "zero", amount: "0", want: ErrInvalidAmount},
		{name: "negative", amount: "-50", want: ErrInvalidAmount},
		{name: "too small", amount: "0.001", want: ErrAmountTooSmall},
		{name: "too precise", amount: "10.005", want: ErrAmountPrecision},
		{name: "too large", amount: "1000000000.01", want: ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected valid amount, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected every amount failure to wrap ErrInvalidAmount, got %v", err)
			}
		})
	}
}

func TestValidateLoanTerms(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(250000)
	rate := decimal.RequireFromString("10.5")

	if err := ValidateLoanTerms(amount, rate, 24, issued); err != nil {
		t.Fatalf("expected valid terms, got %v", err)
	}
	if err := ValidateLoanTerms(decimal.Zero, rate, 24, issued); !errors.Is(err, ErrInvalidLoanAmount) {
		t.Fatalf("expected ErrInvalidLoanAmount, got %v", err)
	}
	if err := ValidateLoanTerms(amount, decimal.NewFromInt(101), 24, issued); !errors.Is(err, ErrInvalidInterestRate) {
		t.Fatalf("expected ErrInvalidInterestRate, got %v", err)
	}
	if err := ValidateLoanTerms(amount, rate, 0, issued); !errors.Is(err, ErrInvalidTenure) {
		t.Fatalf("expected ErrInvalidTenure, got %v", err)
	}
	if err := ValidateLoanTerms(amount, rate, 24, time.Time{}); !errors.Is(err, ErrInvalidIssueDate) {
		t.Fatalf("expected ErrInvalidIssueDate, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset := ValidatePagination(0, -5)
	if limit != 20 || offset != 0 {
		t.Fatalf("expected defaults (20, 0), got (%d, %d)", limit, offset)
	}

	limit, _ = ValidatePagination(5000, 0)
	if limit != 100 {
		t.Fatalf("expected limit capped at 100, got %d", limit)
	}
}
