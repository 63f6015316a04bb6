package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// intermediate precision used while compounding the monthly rate
const emiPrecision = 20

// CalculateEMI returns the fixed monthly installment for an amortizing loan:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1), r = annualRate / 12 / 100
//
// A zero rate degrades to P / n. The result is rounded to two decimals.
func CalculateEMI(principal, annualRate decimal.Decimal, tenureMonths int32) (decimal.Decimal, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: must be positive", ErrInvalidLoanAmount)
	}
	if tenureMonths < 1 {
		return decimal.Zero, fmt.Errorf("%w: must be at least 1 month", ErrInvalidTenure)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: must not be negative", ErrInvalidInterestRate)
	}

	n := decimal.NewFromInt32(tenureMonths)
	if annualRate.IsZero() {
		return principal.Div(n).Round(MaxAmountScale), nil
	}

	one := decimal.NewFromInt(1)
	r := annualRate.Div(decimal.NewFromInt(1200))

	growth := one
	for i := int32(0); i < tenureMonths; i++ {
		growth = growth.Mul(one.Add(r)).Round(emiPrecision)
	}

	emi := principal.Mul(r).Mul(growth).Div(growth.Sub(one))
	return emi.Round(MaxAmountScale), nil
}
