package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/emiledger/internal/adapter/http/dto"
	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
)

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	ApplyPayment(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	ListPayments(ctx context.Context, accountNumber string) ([]*domain.Payment, error)
}

// PaymentHandler handles payment HTTP requests.
type PaymentHandler struct {
	paymentUC PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC}
}

// Apply records a payment and reduces the outstanding balance.
func (h *PaymentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid payment amount", err)
		return
	}

	result, err := h.paymentUC.ApplyPayment(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ApplyPaymentFromResult(result))
}

// ListByAccount returns the payment history of an account, oldest first.
func (h *PaymentHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber := chi.URLParam(r, "accountNumber")
	if accountNumber == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account number", "")
		return
	}

	payments, err := h.paymentUC.ListPayments(r.Context(), accountNumber)
	if err != nil {
		writeDomainError(w, "failed to list payments", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListPaymentsResponse{
		AccountNumber: domain.NormalizeAccountNumber(accountNumber),
		Payments:      dto.PaymentsFromDomain(payments),
	})
}
