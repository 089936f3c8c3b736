package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	ledger "meterbill/internal/ledger/domain"
)

// PaymentRepository is an in-memory repository for demo/testing.
type PaymentRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*ledger.Payment
}

// NewPaymentRepository constructs a repository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{data: make(map[uuid.UUID]*ledger.Payment)}
}

// Get loads a payment by id.
func (r *PaymentRepository) Get(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.data[id]
	if p == nil {
		return nil, ledger.ErrPaymentNotFound
	}
	return p.Clone(), nil
}

// Save persists a payment.
func (r *PaymentRepository) Save(ctx context.Context, p *ledger.Payment) error {
	_ = ctx
	if p == nil {
		return ledger.ErrNilPayment
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ID] = p.Clone()
	return nil
}

// ListByCustomer returns a customer's payments.
func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID string) ([]*ledger.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*ledger.Payment
	for _, p := range r.data {
		if p.CustomerID == customerID {
			result = append(result, p.Clone())
		}
	}
	return result, nil
}

// AccountRepository is an in-memory repository for demo/testing.
type AccountRepository struct {
	mu   sync.RWMutex
	data map[string]*ledger.CustomerAccount
}

// NewAccountRepository constructs a repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{data: make(map[string]*ledger.CustomerAccount)}
}

// Get loads an account by customer id.
func (r *AccountRepository) Get(ctx context.Context, customerID string) (*ledger.CustomerAccount, error) {
	_ = ctx
	if customerID == "" {
		return nil, ledger.ErrEmptyCustomerID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := r.data[customerID]
	if a == nil {
		return nil, ledger.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// Save persists an account.
func (r *AccountRepository) Save(ctx context.Context, a *ledger.CustomerAccount) error {
	_ = ctx
	if a == nil {
		return ledger.ErrNilAccount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.CustomerID] = a.Clone()
	return nil
}
