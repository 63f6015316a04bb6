package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
)

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	AccountNumber      string          `json:"account_number"`
	CustomerName       string          `json:"customer_name"`
	IssueDate          string          `json:"issue_date"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TenureMonths       int32           `json:"tenure_months"`
	EMIDueAmount       decimal.Decimal `json:"emi_due_amount"`
	LoanAmount         decimal.Decimal `json:"loan_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CustomerFromDomain converts a domain customer to a response.
func CustomerFromDomain(c *domain.Customer) *CustomerResponse {
	return &CustomerResponse{
		AccountNumber:      c.AccountNumber,
		CustomerName:       c.CustomerName,
		IssueDate:          c.IssueDate.Format(DateLayout),
		InterestRate:       c.InterestRate,
		TenureMonths:       c.TenureMonths,
		EMIDueAmount:       c.EMIDueAmount,
		LoanAmount:         c.LoanAmount,
		OutstandingBalance: c.OutstandingBalance,
		Version:            c.Version,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// CustomersFromDomain converts domain customers to responses.
func CustomersFromDomain(customers []*domain.Customer) []*CustomerResponse {
	result := make([]*CustomerResponse, len(customers))
	for i, c := range customers {
		result[i] = CustomerFromDomain(c)
	}
	return result
}

// ListCustomersResponse is a page of customers.
type ListCustomersResponse struct {
	Customers []*CustomerResponse `json:"customers"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

// PaymentResponse represents a payment record in API responses.
type PaymentResponse struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentFromDomain converts a domain payment to a response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		AccountNumber: p.AccountNumber,
		Amount:        p.Amount,
		BalanceAfter:  p.BalanceAfter,
		CreatedAt:     p.CreatedAt,
	}
}

// PaymentsFromDomain converts domain payments to responses.
func PaymentsFromDomain(payments []*domain.Payment) []*PaymentResponse {
	result := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		result[i] = PaymentFromDomain(p)
	}
	return result
}

// ApplyPaymentResponse is returned after a payment commits.
type ApplyPaymentResponse struct {
	Payment            *PaymentResponse `json:"payment"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance"`
}

// ApplyPaymentFromResult converts a use case result to a response.
func ApplyPaymentFromResult(r *usecase.PaymentResult) *ApplyPaymentResponse {
	return &ApplyPaymentResponse{
		Payment:            PaymentFromDomain(r.Payment),
		OutstandingBalance: r.OutstandingBalance,
	}
}

// ListPaymentsResponse is the payment history of one account.
type ListPaymentsResponse struct {
	AccountNumber string             `json:"account_number"`
	Payments      []*PaymentResponse `json:"payments"`
}

// ReconciliationResponse is the reconciliation state of one account.
type ReconciliationResponse struct {
	AccountNumber     string          `json:"account_number"`
	LoanAmount        decimal.Decimal `json:"loan_amount"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	PaymentCount      int             `json:"payment_count"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromResult converts a use case result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountNumber:     r.AccountNumber,
		LoanAmount:        r.LoanAmount,
		TotalPaid:         r.TotalPaid,
		PaymentCount:      r.PaymentCount,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse summarizes a full ledger check.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromResult converts a use case report to a response.
func ReconciliationReportFromResult(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromResult(d)
	}

	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
