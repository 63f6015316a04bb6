package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase checks that every outstanding balance equals the loan
// amount minus the sum of the account's committed payments.
type ReconciliationUseCase struct {
	customerRepo CustomerRepository
	paymentRepo  PaymentRepository
	ledgerRepo   LedgerRepository
	clock        Clock
	metrics      *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	customerRepo CustomerRepository,
	paymentRepo PaymentRepository,
	ledgerRepo LedgerRepository,
	m *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		customerRepo: customerRepo,
		paymentRepo:  paymentRepo,
		ledgerRepo:   ledgerRepo,
		clock:        SystemClock{},
		metrics:      m,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountNumber     string
	LoanAmount        decimal.Decimal
	TotalPaid         decimal.Decimal
	PaymentCount      int
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount recomputes one account's balance from its full payment history.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountNumber string) (*ReconciliationResult, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	customer, err := uc.customerRepo.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	payments, err := uc.paymentRepo.ListByAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	result := uc.compare(customer, domain.TotalPaid(payments))
	result.PaymentCount = len(payments)
	return result, nil
}

func (uc *ReconciliationUseCase) compare(customer *domain.Customer, totalPaid decimal.Decimal) *ReconciliationResult {
	calculated := customer.ExpectedBalance(totalPaid)
	diff := customer.OutstandingBalance.Sub(calculated)

	return &ReconciliationResult{
		AccountNumber:     customer.AccountNumber,
		LoanAmount:        customer.LoanAmount,
		TotalPaid:         totalPaid,
		RecordedBalance:   customer.OutstandingBalance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       uc.clock.Now().UTC(),
	}
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	CheckedAt          time.Time
}

// GenerateReconciliationReport reconciles every customer using aggregated
// payment totals, one page of customers at a time.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	totals, err := uc.ledgerRepo.PaymentTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment totals: %w", err)
	}

	report := &ReconciliationReport{
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     uc.clock.Now().UTC(),
	}

	for offset := 0; ; offset += reconciliationPageSize {
		customers, err := uc.customerRepo.List(ctx, reconciliationPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list customers at offset %d: %w", offset, err)
		}

		for _, customer := range customers {
			paid, ok := totals[customer.AccountNumber]
			if !ok {
				paid = decimal.Zero
			}

			result := uc.compare(customer, paid)
			report.TotalAccounts++
			if result.IsReconciled {
				report.ReconciledAccounts++
			} else {
				report.Discrepancies = append(report.Discrepancies, result)
			}
		}

		if len(customers) < reconciliationPageSize {
			break
		}
	}

	if uc.metrics != nil {
		uc.metrics.Discrepancies.Set(float64(len(report.Discrepancies)))
	}

	return report, nil
}
