package domain

import "time"

// Event types
const (
	EventTypeCustomerCreated = "customer.created"
	EventTypePaymentApplied  = "payment.applied"
)

// Aggregate types
const (
	AggregateTypeCustomer = "customer"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// CustomerCreatedEvent payload
type CustomerCreatedEvent struct {
	AccountNumber string `json:"account_number"`
	CustomerName  string `json:"customer_name"`
	LoanAmount    string `json:"loan_amount"`
	EMIDueAmount  string `json:"emi_due_amount"`
}

// PaymentAppliedEvent payload
type PaymentAppliedEvent struct {
	PaymentID          int64  `json:"payment_id"`
	AccountNumber      string `json:"account_number"`
	Amount             string `json:"amount"`
	OutstandingBalance string `json:"outstanding_balance"`
	AppliedAt          string `json:"applied_at"`
}

// ToMap flattens the payload for storage in the outbox.
func (e PaymentAppliedEvent) ToMap() map[string]any {
	return map[string]any{
		"payment_id":          e.PaymentID,
		"account_number":      e.AccountNumber,
		"amount":              e.Amount,
		"outstanding_balance": e.OutstandingBalance,
		"applied_at":          e.AppliedAt,
	}
}

// ToMap flattens the payload for storage in the outbox.
func (e CustomerCreatedEvent) ToMap() map[string]any {
	return map[string]any{
		"account_number": e.AccountNumber,
		"customer_name":  e.CustomerName,
		"loan_amount":    e.LoanAmount,
		"emi_due_amount": e.EMIDueAmount,
	}
}
