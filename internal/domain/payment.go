package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one entry of a customer's append-only EMI ledger.
type Payment struct {
	ID            int64
	AccountNumber string
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

// Validate validates a payment before it is recorded.
func (p *Payment) Validate() error {
	if err := ValidateAccountNumber(p.AccountNumber); err != nil {
		return err
	}
	if p.BalanceAfter.IsNegative() {
		return ErrOverpaymentRejected
	}
	return ValidateAmount(p.Amount)
}

// TotalPaid sums the amounts of payments.
func TotalPaid(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
