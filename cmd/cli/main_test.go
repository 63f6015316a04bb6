package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--url", serverURL}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func fastBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = time.Millisecond
	return b
}

func TestPaymentsApplyRetriesLockTimeout(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/payments", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ACC001", body["account_number"])
		assert.Equal(t, "2000", body["amount"])

		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		attempt := len(keys)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if attempt < 3 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"failed to apply payment","code":"lock_timeout","message":"timed out waiting for account lock"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"outstanding_balance":"248000"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmdWithOptions(&rootOptions{out: &out, newBackOff: fastBackOff})
	cmd.SetArgs([]string{"--url", srv.URL, "payments", "apply", "ACC001", "2000"})
	require.NoError(t, cmd.Execute())

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "retries must reuse the idempotency key")
	assert.Equal(t, keys[0], keys[2])
	assert.Contains(t, out.String(), `"outstanding_balance": "248000"`)
}

func TestPaymentsApplyDoesNotRetryOverpayment(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"failed to apply payment","code":"overpayment_rejected","message":"payment exceeds outstanding balance"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	cmd := newRootCmdWithOptions(&rootOptions{out: &out, newBackOff: fastBackOff})
	cmd.SetArgs([]string{"--url", srv.URL, "payments", "apply", "ACC001", "999999", "--idempotency-key", "k1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overpayment_rejected")
	assert.Equal(t, 1, attempts)
}

func TestCustomersCommands(t *testing.T) {
	var gotCreate map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/customers/":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCreate))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"account_number":"ACC001"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/customers/ACC001":
			_, _ = w.Write([]byte(`{"account_number":"ACC001","outstanding_balance":"250000"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/customers/":
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"customers":[],"limit":5,"offset":0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"failed to get customer","code":"not_found","message":"customer not found"}`))
		}
	}))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "customers", "create", "--account", "ACC001", "--name", "Asha Rao",
		"--issue-date", "2024-01-01", "--rate", "10", "--tenure", "60", "--loan", "250000")
	require.NoError(t, err)
	assert.Equal(t, "ACC001", gotCreate["account_number"])
	assert.Equal(t, float64(60), gotCreate["tenure_months"])
	assert.NotContains(t, gotCreate, "emi_due_amount")

	out, err := runCLI(t, srv.URL, "customers", "get", "ACC001")
	require.NoError(t, err)
	assert.Contains(t, out, `"outstanding_balance": "250000"`)

	_, err = runCLI(t, srv.URL, "customers", "list", "--limit", "5")
	require.NoError(t, err)

	_, err = runCLI(t, srv.URL, "customers", "get", "ACC002")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_found")
}

func TestLedgerReconcile(t *testing.T) {
	report := `{"total_accounts":2,"reconciled_accounts":2,"discrepancies":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/ledger/reconciliation":
			_, _ = w.Write([]byte(report))
		case "/api/v1/customers/ACC007/reconciliation":
			_, _ = w.Write([]byte(`{"account_number":"ACC007","is_reconciled":false,"difference":"500"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "ledger", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_accounts": 2`)

	_, err = runCLI(t, srv.URL, "ledger", "reconcile", "ACC007")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciliation FAILED")

	report = `{"total_accounts":2,"reconciled_accounts":1,"discrepancies":[{"account_number":"ACC007"}]}`
	_, err = runCLI(t, srv.URL, "ledger", "reconcile")
	require.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"customers", "payments", "ledger", "migrate"} {
		assert.Contains(t, joined, want)
	}
}

func TestAPIErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "payments", "list", "ACC001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
