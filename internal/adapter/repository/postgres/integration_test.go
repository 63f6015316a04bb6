package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/emiledger/internal/adapter/repository/postgres"
	"github.com/iho/emiledger/internal/domain"
	infrapg "github.com/iho/emiledger/internal/infrastructure/postgres"
	"github.com/iho/emiledger/internal/usecase"
)

type testEnv struct {
	pool      *pgxpool.Pool
	customers *postgres.CustomerRepository
	payments  *postgres.PaymentRepository
	outbox    *postgres.OutboxRepository
	txManager *postgres.TxManager
	payUC     *usecase.PaymentUseCase
	custUC    *usecase.CustomerUseCase
}

// newTestEnv connects to TEST_DATABASE_URL, migrates it and empties the tables.
func newTestEnv(t *testing.T, lockTimeout time.Duration) *testEnv {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(dbURL, "../../../infrastructure/postgres/migrations"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPool(ctx, dbURL, 20, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE TABLE outbox_events, payments, customers`)
	require.NoError(t, err)

	env := &testEnv{
		pool:      pool,
		customers: postgres.NewCustomerRepository(pool),
		payments:  postgres.NewPaymentRepository(pool),
		outbox:    postgres.NewOutboxRepository(pool),
		txManager: postgres.NewTxManager(pool, postgres.WithLockTimeout(lockTimeout)),
	}
	idGen := postgres.NewULIDGenerator()
	env.payUC = usecase.NewPaymentUseCase(env.txManager, env.customers, env.payments, env.outbox, idGen,
		usecase.WithRetrier(postgres.NewRetrier()))
	env.custUC = usecase.NewCustomerUseCase(env.txManager, env.customers, env.outbox, idGen)

	return env
}

func (e *testEnv) seed(t *testing.T, accountNumber string, balance int64) {
	t.Helper()
	_, err := e.custUC.CreateCustomer(context.Background(), usecase.CreateCustomerInput{
		AccountNumber: accountNumber,
		CustomerName:  "Customer " + accountNumber,
		IssueDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InterestRate:  decimal.NewFromInt(10),
		TenureMonths:  60,
		LoanAmount:    decimal.NewFromInt(balance),
	})
	require.NoError(t, err)
}

func TestPostgresApplyPaymentScenario(t *testing.T) {
	env := newTestEnv(t, 2*time.Second)
	ctx := context.Background()
	env.seed(t, "ACC001", 250000)

	result, err := env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(2000)})
	require.NoError(t, err)
	assert.True(t, result.OutstandingBalance.Equal(decimal.NewFromInt(248000)))

	payments, err := env.payUC.ListPayments(ctx, "ACC001")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(2000)))

	_, err = env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC002", Amount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(-50)})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(300000)})
	require.ErrorIs(t, err, domain.ErrOverpaymentRejected)

	c, err := env.customers.GetByAccountNumber(ctx, "ACC001")
	require.NoError(t, err)
	assert.True(t, c.OutstandingBalance.Equal(decimal.NewFromInt(248000)))

	events, err := env.outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2, "customer.created and payment.applied")
}

func TestPostgresConcurrentPayments(t *testing.T) {
	env := newTestEnv(t, 5*time.Second)
	ctx := context.Background()
	env.seed(t, "ACC001", 5000)

	const workers = 40
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			_, err := env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(100)})
			if err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(workers), succeeded.Load())

	c, err := env.customers.GetByAccountNumber(ctx, "ACC001")
	require.NoError(t, err)
	assert.True(t, c.OutstandingBalance.Equal(decimal.NewFromInt(1000)), "got %s", c.OutstandingBalance)

	payments, err := env.payments.ListByAccount(ctx, "ACC001")
	require.NoError(t, err)
	require.Len(t, payments, workers)

	// Lock order: each payment saw the balance left by the previous one.
	for i, p := range payments {
		want := decimal.NewFromInt(5000 - int64(i+1)*100)
		assert.True(t, p.BalanceAfter.Equal(want), "payment %d balance_after %s, want %s", i, p.BalanceAfter, want)
	}
}

func TestPostgresLockTimeout(t *testing.T) {
	env := newTestEnv(t, 100*time.Millisecond)
	ctx := context.Background()
	env.seed(t, "ACC001", 5000)
	env.seed(t, "ACC002", 5000)

	holder, err := env.txManager.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback(ctx) }()
	_, err = env.customers.GetByAccountNumberForUpdate(ctx, holder, "ACC001")
	require.NoError(t, err)

	_, err = env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsRetryable(err))

	// other accounts are unaffected
	_, err = env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC002", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
}

func TestPostgresPaymentsAreAppendOnly(t *testing.T) {
	env := newTestEnv(t, time.Second)
	ctx := context.Background()
	env.seed(t, "ACC001", 5000)

	_, err := env.payUC.ApplyPayment(ctx, usecase.ApplyPaymentInput{AccountNumber: "ACC001", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = env.pool.Exec(ctx, `DELETE FROM payments`)
	require.Error(t, err)

	_, err = env.pool.Exec(ctx, `UPDATE payments SET amount = 1`)
	require.Error(t, err)
}

func TestPostgresDuplicateCustomer(t *testing.T) {
	env := newTestEnv(t, time.Second)
	env.seed(t, "ACC001", 5000)

	_, err := env.custUC.CreateCustomer(context.Background(), usecase.CreateCustomerInput{
		AccountNumber: "ACC001",
		CustomerName:  "Again",
		IssueDate:     time.Now(),
		InterestRate:  decimal.NewFromInt(10),
		TenureMonths:  12,
		LoanAmount:    decimal.NewFromInt(1000),
	})
	require.True(t, errors.Is(err, domain.ErrCustomerAlreadyExists), "got %v", err)
}
