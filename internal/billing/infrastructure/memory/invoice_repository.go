package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	billing "meterbill/internal/billing/domain"
)

// InvoiceRepository is an in-memory repository for demo/testing.
type InvoiceRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*billing.Invoice
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{data: make(map[uuid.UUID]*billing.Invoice)}
}

// Get loads an invoice by id.
func (r *InvoiceRepository) Get(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv := r.data[id]
	if inv == nil {
		return nil, billing.ErrInvoiceNotFound
	}
	return inv.Clone(), nil
}

// Save persists an invoice.
func (r *InvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	_ = ctx
	if inv == nil {
		return billing.ErrNilInvoice
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[inv.ID] = inv.Clone()
	return nil
}

// ListByCustomer returns a customer's invoices.
func (r *InvoiceRepository) ListByCustomer(ctx context.Context, customerID string) ([]*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*billing.Invoice
	for _, inv := range r.data {
		if inv.CustomerID == customerID {
			result = append(result, inv.Clone())
		}
	}
	return result, nil
}

// ListOutstanding returns invoices that still carry a balance.
func (r *InvoiceRepository) ListOutstanding(ctx context.Context) ([]*billing.Invoice, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*billing.Invoice
	for _, inv := range r.data {
		switch inv.Status {
		case billing.StatusPending, billing.StatusPartial, billing.StatusOverdue:
			result = append(result, inv.Clone())
		}
	}
	return result, nil
}
