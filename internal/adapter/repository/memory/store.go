// Package memory is an in-process storage backend. Per-account mutual
// exclusion is provided by a keyed lock with a bounded wait, and writes are
// buffered in the transaction until commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
)

// DefaultLockTimeout bounds how long a transaction waits for an account lock.
const DefaultLockTimeout = 5 * time.Second

// Store holds committed state and hands out transactions.
type Store struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer
	payments  []*domain.Payment
	outbox    []*domain.OutboxEvent
	nextID    int64

	locks       *keyedLocker
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets the maximum wait for an account lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		customers:   make(map[string]*domain.Customer),
		locks:       newKeyedLocker(),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: begin: %w", domain.ErrStorageFailure, err)
	}
	return &Tx{
		store:     s,
		held:      make(map[string]struct{}),
		customers: make(map[string]*domain.Customer),
		created:   make(map[string]struct{}),
	}, nil
}

// Customers returns the customer repository.
func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{store: s} }

// Payments returns the payment repository.
func (s *Store) Payments() *PaymentRepository { return &PaymentRepository{store: s} }

// Outbox returns the outbox repository.
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{store: s} }

// Ledger returns the ledger repository.
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{store: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) committedCustomer(accountNumber string) (*domain.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[accountNumber]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (s *Store) allocatePaymentID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// Tx buffers writes until Commit. Account locks taken through it are held
// until Commit or Rollback.
type Tx struct {
	mu        sync.Mutex
	store     *Store
	held      map[string]struct{}
	customers map[string]*domain.Customer
	created   map[string]struct{}
	payments  []*domain.Payment
	outbox    []*domain.OutboxEvent
	done      bool
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: foreign transaction %T", domain.ErrStorageFailure, tx)
	}
	if t.done {
		return nil, fmt.Errorf("%w: transaction already closed", domain.ErrStorageFailure)
	}
	return t, nil
}

func (t *Tx) lock(ctx context.Context, accountNumber string) error {
	t.mu.Lock()
	_, ok := t.held[accountNumber]
	t.mu.Unlock()
	if ok {
		return nil
	}

	if err := t.store.locks.lock(ctx, accountNumber, t.store.lockTimeout); err != nil {
		return err
	}

	t.mu.Lock()
	t.held[accountNumber] = struct{}{}
	t.mu.Unlock()
	return nil
}

// Commit publishes buffered writes atomically and releases held locks.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("%w: transaction already closed", domain.ErrStorageFailure)
	}
	t.done = true
	defer t.release()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for acc := range t.created {
		if _, exists := s.customers[acc]; exists {
			return domain.ErrCustomerAlreadyExists
		}
	}
	for acc, c := range t.customers {
		s.customers[acc] = c
	}
	s.payments = append(s.payments, t.payments...)
	s.outbox = append(s.outbox, t.outbox...)

	return nil
}

// Rollback discards buffered writes and releases held locks. It is a no-op
// on a closed transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *Tx) release() {
	for acc := range t.held {
		t.store.locks.unlock(acc)
	}
	t.held = nil
	t.customers = nil
	t.payments = nil
	t.outbox = nil
}

func (t *Tx) view(accountNumber string) (*domain.Customer, bool) {
	t.mu.Lock()
	c, ok := t.customers[accountNumber]
	t.mu.Unlock()
	if ok {
		cp := *c
		return &cp, true
	}
	return t.store.committedCustomer(accountNumber)
}

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	store *Store
}

// Create buffers a new customer.
func (r *CustomerRepository) Create(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, exists := t.view(customer.AccountNumber); exists {
		return domain.ErrCustomerAlreadyExists
	}

	cp := *customer
	t.mu.Lock()
	t.customers[customer.AccountNumber] = &cp
	t.created[customer.AccountNumber] = struct{}{}
	t.mu.Unlock()
	return nil
}

// GetByAccountNumber reads committed state.
func (r *CustomerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	c, ok := r.store.committedCustomer(accountNumber)
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return c, nil
}

// GetByAccountNumberForUpdate takes the account lock for the life of tx.
func (r *CustomerRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if _, ok := t.view(accountNumber); !ok {
		return nil, domain.ErrCustomerNotFound
	}
	if err := t.lock(ctx, accountNumber); err != nil {
		return nil, err
	}

	// re-read now that the lock is held
	c, ok := t.view(accountNumber)
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return c, nil
}

// UpdateBalance buffers a balance change and bumps the version.
func (r *CustomerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, accountNumber string, balance decimal.Decimal, updatedAt time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, accountNumber); err != nil {
		return err
	}

	c, ok := t.view(accountNumber)
	if !ok {
		return domain.ErrCustomerNotFound
	}
	if balance.IsNegative() {
		return fmt.Errorf("%w: outstanding balance cannot be negative", domain.ErrStorageFailure)
	}
	c.OutstandingBalance = balance
	c.Version++
	c.UpdatedAt = updatedAt

	t.mu.Lock()
	t.customers[accountNumber] = c
	t.mu.Unlock()
	return nil
}

// List returns committed customers ordered by account number.
func (r *CustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	r.store.mu.RLock()
	customers := make([]*domain.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		cp := *c
		customers = append(customers, &cp)
	}
	r.store.mu.RUnlock()

	sort.Slice(customers, func(i, j int) bool {
		return customers[i].AccountNumber < customers[j].AccountNumber
	})

	if offset >= len(customers) {
		return []*domain.Customer{}, nil
	}
	end := offset + limit
	if end > len(customers) {
		end = len(customers)
	}
	return customers[offset:end], nil
}

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	store *Store
}

// Create assigns the next payment ID and buffers the payment.
func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if payment.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	if _, ok := t.view(payment.AccountNumber); !ok {
		return domain.ErrCustomerNotFound
	}

	payment.ID = r.store.allocatePaymentID()
	cp := *payment

	t.mu.Lock()
	t.payments = append(t.payments, &cp)
	t.mu.Unlock()
	return nil
}

// ListByAccount returns committed payments in ascending ID order.
func (r *PaymentRepository) ListByAccount(ctx context.Context, accountNumber string) ([]*domain.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	payments := make([]*domain.Payment, 0)
	for _, p := range r.store.payments {
		if p.AccountNumber == accountNumber {
			cp := *p
			payments = append(payments, &cp)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments, nil
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// PaymentTotals sums committed payments per account.
func (r *LedgerRepository) PaymentTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for _, p := range r.store.payments {
		totals[p.AccountNumber] = totals[p.AccountNumber].Add(p.Amount)
	}
	return totals, nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// Create buffers an outbox event.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	cp := *event
	t.mu.Lock()
	t.outbox = append(t.outbox, &cp)
	t.mu.Unlock()
	return nil
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events := make([]*domain.OutboxEvent, 0, limit)
	for _, e := range r.store.outbox {
		if len(events) >= limit {
			break
		}
		if !e.Published {
			cp := *e
			events = append(events, &cp)
		}
	}
	return events, nil
}

// MarkPublished flags an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

// DeletePublished drops events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.outbox[:0]
	for _, e := range r.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept
	return nil
}
