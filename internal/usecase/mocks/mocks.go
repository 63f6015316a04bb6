package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/emiledger/internal/domain"
	"github.com/iho/emiledger/internal/usecase"
)

// MockCustomerRepository is a mock implementation of CustomerRepository.
// Without overrides it behaves like a non-transactional in-memory table.
type MockCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]*domain.Customer

	CreateFunc                      func(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error
	GetByAccountNumberFunc          func(ctx context.Context, accountNumber string) (*domain.Customer, error)
	GetByAccountNumberForUpdateFunc func(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error)
	UpdateBalanceFunc               func(ctx context.Context, tx usecase.Transaction, accountNumber string, balance decimal.Decimal, updatedAt time.Time) error
	ListFunc                        func(ctx context.Context, limit, offset int) ([]*domain.Customer, error)
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{
		customers: make(map[string]*domain.Customer),
	}
}

// Seed stores customers directly.
func (m *MockCustomerRepository) Seed(customers ...*domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range customers {
		m.customers[c.AccountNumber] = c
	}
}

func (m *MockCustomerRepository) Create(ctx context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, customer)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customer.AccountNumber]; ok {
		return domain.ErrCustomerAlreadyExists
	}
	m.customers[customer.AccountNumber] = customer
	return nil
}

func (m *MockCustomerRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	if m.GetByAccountNumberFunc != nil {
		return m.GetByAccountNumberFunc(ctx, accountNumber)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.customers[accountNumber]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *MockCustomerRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error) {
	if m.GetByAccountNumberForUpdateFunc != nil {
		return m.GetByAccountNumberForUpdateFunc(ctx, tx, accountNumber)
	}
	return m.GetByAccountNumber(ctx, accountNumber)
}

func (m *MockCustomerRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, accountNumber string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, accountNumber, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[accountNumber]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	c.OutstandingBalance = balance
	c.Version++
	c.UpdatedAt = updatedAt
	return nil
}

func (m *MockCustomerRepository) List(ctx context.Context, limit, offset int) ([]*domain.Customer, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	customers := make([]*domain.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].AccountNumber < customers[j].AccountNumber })
	if offset >= len(customers) {
		return []*domain.Customer{}, nil
	}
	end := offset + limit
	if end > len(customers) {
		end = len(customers)
	}
	return customers[offset:end], nil
}

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments []*domain.Payment
	nextID   int64

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error
	ListByAccountFunc func(ctx context.Context, accountNumber string) ([]*domain.Payment, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{}
}

func (m *MockPaymentRepository) Create(ctx context.Context, tx usecase.Transaction, payment *domain.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	payment.ID = m.nextID
	m.payments = append(m.payments, payment)
	return nil
}

func (m *MockPaymentRepository) ListByAccount(ctx context.Context, accountNumber string) ([]*domain.Payment, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountNumber)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.AccountNumber == accountNumber {
			out = append(out, p)
		}
	}
	return out, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	Commits   atomic.Int32
	Rollbacks atomic.Int32
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{
		CommitFunc: func(context.Context) error {
			m.Commits.Add(1)
			return nil
		},
		RollbackFunc: func(context.Context) error {
			m.Rollbacks.Add(1)
			return nil
		},
	}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockClock returns a fixed time.
type MockClock struct {
	T time.Time
}

func (m MockClock) Now() time.Time { return m.T }

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu       sync.RWMutex
	data     map[string][]byte
	versions map[string]int64

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	DeleteFunc func(ctx context.Context, key string) error
	Deleted    []string
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte), versions: make(map[string]int64)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, usecase.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) SetIfNewer(ctx context.Context, key string, version int64, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.versions[key]; ok && current >= version {
		return false, nil
	}
	m.data[key] = value
	m.versions[key] = version
	return true, nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.versions, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	Released        []string
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyInFlight)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.Released = append(m.Released, key)
	return nil
}
