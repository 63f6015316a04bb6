package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/infrastructure/postgres/generated"
	"github.com/iho/emiledger/internal/usecase"
)

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	queries *generated.Queries
}

// NewCustomerRepository creates a new CustomerRepository. db is usually a
// *pgxpool.Pool.
func NewCustomerRepository(db generated.DBTX) *CustomerRepository {
	return &CustomerRepository{
		queries: generated.New(db),
	}
}

// Create inserts a new customer.
func (r *CustomerRepository) Create(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	_, err = queries.CreateCustomer(ctx, generated.CreateCustomerParams{
		AccountNumber:      customer.AccountNumber,
		CustomerName:       customer.CustomerName,
		IssueDate:          timeToPgDate(customer.IssueDate),
		InterestRate:       decimalToNumeric(customer.InterestRate),
		TenureMonths:       customer.TenureMonths,
		EmiDueAmount:       decimalToNumeric(customer.EMIDueAmount),
		LoanAmount:         decimalToNumeric(customer.LoanAmount),
		OutstandingBalance: decimalToNumeric(customer.OutstandingBalance),
		Version:            customer.Version,
		CreatedAt:          timeToPgTimestamptz(customer.CreatedAt),
		UpdatedAt:          timeToPgTimestamptz(customer.UpdatedAt),
	})

	return mapError(err)
}

// GetByAccountNumber reads a customer without locking.
func (r *CustomerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	row, err := r.queries.GetCustomerByAccountNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}

		return nil, mapError(err)
	}

	return rowToCustomer(row), nil
}

// GetByAccountNumberForUpdate reads a customer with a FOR UPDATE lock held
// until tx ends.
func (r *CustomerRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error) {
	queries, err := queriesFor(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetCustomerByAccountNumberForUpdate(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}

		return nil, mapError(err)
	}

	return rowToCustomer(row), nil
}

// UpdateBalance sets the outstanding balance and bumps the version.
func (r *CustomerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, accountNumber string, balance decimal.Decimal, updatedAt time.Time) error {
	queries, err := queriesFor(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateCustomerBalance(ctx, generated.UpdateCustomerBalanceParams{
		AccountNumber:      accountNumber,
		OutstandingBalance: decimalToNumeric(balance),
		UpdatedAt:          timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return mapError(err)
	}
	if n != 1 {
		return fmt.Errorf("%w: balance update touched %d rows", domain.ErrStorageFailure, n)
	}

	return nil
}

// List lists customers ordered by account number.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	rows, err := r.queries.ListCustomers(ctx, generated.ListCustomersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, mapError(err)
	}

	customers := make([]*domain.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, rowToCustomer(row))
	}

	return customers, nil
}

func rowToCustomer(row generated.Customer) *domain.Customer {
	return &domain.Customer{
		AccountNumber:      row.AccountNumber,
		CustomerName:       row.CustomerName,
		IssueDate:          row.IssueDate.Time,
		InterestRate:       numericToDecimal(row.InterestRate),
		TenureMonths:       row.TenureMonths,
		EMIDueAmount:       numericToDecimal(row.EmiDueAmount),
		LoanAmount:         numericToDecimal(row.LoanAmount),
		OutstandingBalance: numericToDecimal(row.OutstandingBalance),
		Version:            row.Version,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
}
