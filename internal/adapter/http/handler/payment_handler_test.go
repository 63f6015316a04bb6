package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/adapter/http/dto"
	"github.com/iho/emiledger/internal/adapter/repository/memory"
	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
	"github.com/iho/emiledger/internal/usecase/mocks"
)

type paymentServiceStub struct {
	applyFn func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error)
	listFn  func(ctx context.Context, accountNumber string) ([]*domain.Payment, error)
}

func (s *paymentServiceStub) ApplyPayment(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
	return s.applyFn(ctx, input)
}

func (s *paymentServiceStub) ListPayments(ctx context.Context, accountNumber string) ([]*domain.Payment, error) {
	return s.listFn(ctx, accountNumber)
}

// newLedgerHandler wires a PaymentHandler to a real use case over the memory store.
func newLedgerHandler(t *testing.T, balances map[string]int64) (*PaymentHandler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	for account, balance := range balances {
		err := usecase.RunInTx(ctx, store, func(tx usecase.Transaction) error {
			return store.Customers().Create(ctx, tx, &domain.Customer{
				AccountNumber:      account,
				CustomerName:       "Customer " + account,
				IssueDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				InterestRate:       decimal.NewFromInt(10),
				TenureMonths:       60,
				EMIDueAmount:       decimal.NewFromInt(5000),
				LoanAmount:         decimal.NewFromInt(balance),
				OutstandingBalance: decimal.NewFromInt(balance),
			})
		})
		if err != nil {
			t.Fatalf("seed %s: %v", account, err)
		}
	}

	uc := usecase.NewPaymentUseCase(store, store.Customers(), store.Payments(), store.Outbox(), mocks.NewMockIDGenerator())
	return NewPaymentHandler(uc), store
}

func postPayment(h *PaymentHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Apply(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestPaymentHandler_Apply_ReducesBalance(t *testing.T) {
	h, _ := newLedgerHandler(t, map[string]int64{"ACC001": 250000})

	rec := postPayment(h, `{"account_number":"ACC001","amount":"2000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ApplyPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OutstandingBalance.Equal(decimal.NewFromInt(248000)) {
		t.Fatalf("expected balance 248000, got %s", resp.OutstandingBalance)
	}
	if !resp.Payment.Amount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected payment amount 2000, got %s", resp.Payment.Amount)
	}
}

func TestPaymentHandler_Apply_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown account", `{"account_number":"ACC002","amount":"100"}`, http.StatusNotFound, CodeNotFound},
		{"negative amount", `{"account_number":"ACC001","amount":"-50"}`, http.StatusBadRequest, CodeInvalidAmount},
		{"zero amount", `{"account_number":"ACC001","amount":0}`, http.StatusBadRequest, CodeInvalidAmount},
		{"unparseable amount", `{"account_number":"ACC001","amount":"lots"}`, http.StatusBadRequest, CodeInvalidAmount},
		{"overpayment", `{"account_number":"ACC001","amount":"5001"}`, http.StatusUnprocessableEntity, CodeOverpayment},
		{"malformed body", `{"account_number":`, http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newLedgerHandler(t, map[string]int64{"ACC001": 5000})

			rec := postPayment(h, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Fatalf("expected code %q, got %q", tt.wantCode, got)
			}

			c, err := store.Customers().GetByAccountNumber(context.Background(), "ACC001")
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if !c.OutstandingBalance.Equal(decimal.NewFromInt(5000)) {
				t.Fatalf("rejected payment changed balance to %s", c.OutstandingBalance)
			}
		})
	}
}

func TestPaymentHandler_Apply_ConcurrentPayments(t *testing.T) {
	h, store := newLedgerHandler(t, map[string]int64{"ACC001": 5000})

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = postPayment(h, `{"account_number":"ACC001","amount":"1000"}`).Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusCreated {
			t.Fatalf("payment %d: expected 201, got %d", i, code)
		}
	}

	c, err := store.Customers().GetByAccountNumber(context.Background(), "ACC001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !c.OutstandingBalance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected balance 3000, got %s", c.OutstandingBalance)
	}
}

func TestPaymentHandler_Apply_LockTimeout(t *testing.T) {
	h := NewPaymentHandler(&paymentServiceStub{
		applyFn: func(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.PaymentResult, error) {
			return nil, domain.ErrLockTimeout
		},
	})

	rec := postPayment(h, `{"account_number":"ACC001","amount":"10"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on lock timeout")
	}
	if got := decodeError(t, rec).Code; got != CodeLockTimeout {
		t.Fatalf("expected lock_timeout code, got %q", got)
	}
}

func TestPaymentHandler_ListByAccount(t *testing.T) {
	h, _ := newLedgerHandler(t, map[string]int64{"ACC001": 5000})
	for _, amount := range []string{"100", "200"} {
		if rec := postPayment(h, `{"account_number":"ACC001","amount":"`+amount+`"}`); rec.Code != http.StatusCreated {
			t.Fatalf("apply %s: %d", amount, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ListByAccount(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/customers/acc001/payments", nil), "accountNumber", "acc001"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListPaymentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccountNumber != "ACC001" {
		t.Fatalf("expected normalized account number, got %q", resp.AccountNumber)
	}
	if len(resp.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(resp.Payments))
	}
	if !resp.Payments[0].BalanceAfter.Equal(decimal.NewFromInt(4900)) || !resp.Payments[1].BalanceAfter.Equal(decimal.NewFromInt(4700)) {
		t.Fatalf("payments out of order: %+v %+v", resp.Payments[0], resp.Payments[1])
	}

	rec = httptest.NewRecorder()
	h.ListByAccount(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/customers/ACC404/payments", nil), "accountNumber", "ACC404"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}
}
