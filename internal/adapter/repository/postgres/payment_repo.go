package postgres

import (
	"context"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/infrastructure/postgres/generated"
	"github.com/iho/emiledger/internal/usecase"
)

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	queries *generated.Queries
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db generated.DBTX) *PaymentRepository {
	return &PaymentRepository{
		queries: generated.New(db),
	}
}

// Create appends a payment inside tx and fills in the assigned ID.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	row, err := queries.CreatePayment(ctx, generated.CreatePaymentParams{
		AccountNumber: payment.AccountNumber,
		Amount:        decimalToNumeric(payment.Amount),
		BalanceAfter:  decimalToNumeric(payment.BalanceAfter),
		CreatedAt:     timeToPgTimestamptz(payment.CreatedAt),
	})
	if err != nil {
		return mapError(err)
	}

	payment.ID = row.ID
	payment.CreatedAt = row.CreatedAt.Time

	return nil
}

// ListByAccount returns committed payments in ID order.
func (r *PaymentRepository) ListByAccount(ctx context.Context, accountNumber string) ([]*domain.Payment, error) {
	rows, err := r.queries.ListPaymentsByAccount(ctx, accountNumber)
	if err != nil {
		return nil, mapError(err)
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, &domain.Payment{
			ID:            row.ID,
			AccountNumber: row.AccountNumber,
			Amount:        numericToDecimal(row.Amount),
			BalanceAfter:  numericToDecimal(row.BalanceAfter),
			CreatedAt:     row.CreatedAt.Time,
		})
	}

	return payments, nil
}
