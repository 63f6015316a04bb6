package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// PaymentTotals sums committed payments per account.
func (r *LedgerRepository) PaymentTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.queries.SumPaymentsByAccount(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.AccountNumber] = numericToDecimal(row.TotalPaid)
	}

	return totals, nil
}
