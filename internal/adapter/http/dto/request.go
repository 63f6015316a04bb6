package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CreateCustomerRequest represents a request to register a loan account.
type CreateCustomerRequest struct {
	AccountNumber string           `json:"account_number"`
	CustomerName  string           `json:"customer_name"`
	IssueDate     string           `json:"issue_date"`
	InterestRate  decimal.Decimal  `json:"interest_rate"`
	TenureMonths  int32            `json:"tenure_months"`
	LoanAmount    decimal.Decimal  `json:"loan_amount"`
	EMIDueAmount  *decimal.Decimal `json:"emi_due_amount,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateCustomerRequest) ToUseCaseInput() (usecase.CreateCustomerInput, error) {
	issueDate, err := time.Parse(DateLayout, r.IssueDate)
	if err != nil {
		return usecase.CreateCustomerInput{}, fmt.Errorf("issue_date must be YYYY-MM-DD: %w", err)
	}

	input := usecase.CreateCustomerInput{
		AccountNumber: r.AccountNumber,
		CustomerName:  r.CustomerName,
		IssueDate:     issueDate,
		InterestRate:  r.InterestRate,
		TenureMonths:  r.TenureMonths,
		LoanAmount:    r.LoanAmount,
	}
	if r.EMIDueAmount != nil {
		input.EMIDueAmount = *r.EMIDueAmount
	}

	return input, nil
}

// ApplyPaymentRequest represents a payment against a loan account. Amount
// accepts a JSON string or number.
type ApplyPaymentRequest struct {
	AccountNumber string          `json:"account_number"`
	Amount        json.RawMessage `json:"amount"`
}

// ToUseCaseInput converts to use case input. An amount that is missing or not
// a decimal yields domain.ErrInvalidAmount.
func (r *ApplyPaymentRequest) ToUseCaseInput() (usecase.ApplyPaymentInput, error) {
	raw := bytes.TrimSpace(r.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return usecase.ApplyPaymentInput{}, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}

	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(raw); err != nil {
		return usecase.ApplyPaymentInput{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, err.Error())
	}

	return usecase.ApplyPaymentInput{
		AccountNumber: r.AccountNumber,
		Amount:        amount,
	}, nil
}
