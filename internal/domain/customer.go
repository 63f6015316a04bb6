package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a loan holder identified by an account number.
type Customer struct {
	AccountNumber      string
	CustomerName       string
	IssueDate          time.Time
	InterestRate       decimal.Decimal
	TenureMonths       int32
	EMIDueAmount       decimal.Decimal
	LoanAmount         decimal.Decimal
	OutstandingBalance decimal.Decimal
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ValidatePayment checks amount against the current outstanding balance.
// Overpayment is rejected so the balance never goes negative.
func (c *Customer) ValidatePayment(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(c.OutstandingBalance) {
		return ErrOverpaymentRejected
	}
	return nil
}

// ApplyPayment returns the balance after paying amount.
func (c *Customer) ApplyPayment(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := c.ValidatePayment(amount); err != nil {
		return decimal.Zero, err
	}
	return c.OutstandingBalance.Sub(amount), nil
}

// ExpectedBalance is what the balance should be given the total paid so far.
func (c *Customer) ExpectedBalance(totalPaid decimal.Decimal) decimal.Decimal {
	return c.LoanAmount.Sub(totalPaid)
}
